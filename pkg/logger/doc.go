// Package logger provides the structured logging interface used across followexport.
//
// It wraps zerolog behind a small Logger interface so components can accept a
// logger as a dependency and tests can swap in a capturing or no-op implementation.
//
// Basic Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//
//	logger.Info("export started")
//	logger.WithField("limit", 50).Info("harvest configured")
//	logger.WithError(err).Error("render failed")
//
// Component Usage:
//
//	log := logger.GetLogger().WithField("component", "harvest")
//	log.InfoWithFields("tick completed", map[string]interface{}{
//	    "tick":  12,
//	    "count": 240,
//	})
//
// When LoggingConfig.File is empty, output goes to stderr through a colored console
// writer; otherwise JSON lines are appended to the file.
package logger
