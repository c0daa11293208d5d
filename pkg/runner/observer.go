package runner

import (
	"followexport/pkg/logger"
	"followexport/pkg/models"
)

// LogObserver records observations at debug level
type LogObserver struct {
	logger logger.Logger
}

// NewLogObserver creates an observer writing to log
func NewLogObserver(log logger.Logger) *LogObserver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &LogObserver{logger: log}
}

func (o *LogObserver) OnProgress(obs models.Observation) {
	fields := map[string]interface{}{"phase": string(obs.Phase)}
	if obs.Tick > 0 {
		fields["tick"] = obs.Tick
		fields["count"] = obs.Count
		fields["stall"] = obs.Stall
	}
	if obs.Total > 0 {
		fields["index"] = obs.Index
		fields["total"] = obs.Total
	}
	o.logger.DebugWithFields(obs.Message, fields)
}
