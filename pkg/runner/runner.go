package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"time"

	"followexport/pkg/config"
	"followexport/pkg/enrich"
	"followexport/pkg/errors"
	"followexport/pkg/export"
	"followexport/pkg/fetcher"
	"followexport/pkg/harvest"
	"followexport/pkg/logger"
	"followexport/pkg/models"
	"followexport/pkg/store"
	"followexport/pkg/surface"
	"followexport/pkg/ui"
)

// Options are the per-invocation choices of an export
type Options struct {
	WithResources bool
	// Limit caps the number of harvested records. Zero means unlimited.
	Limit int
}

// Opener provides the surface for one run and a func that releases it
type Opener func(ctx context.Context) (surface.Surface, func(), error)

// ArtifactSaver persists the rendered document
type ArtifactSaver interface {
	SaveArtifact(name string, r io.Reader) (string, error)
}

// Runner drives one export at a time: harvest, optional enrichment, render, save.
type Runner struct {
	cfg      *config.Config
	open     Opener
	saver    ArtifactSaver
	fetcher  enrich.Fetcher
	observer models.Observer
	logger   logger.Logger
	now      func() time.Time

	running atomic.Bool
}

// New creates a runner. The observer receives every progress observation;
// they are also logged at debug level. A nil fetcher uses an HTTP client
// built from cfg.Enrich.
func New(cfg *config.Config, open Opener, saver ArtifactSaver, f enrich.Fetcher, obs models.Observer, log logger.Logger) *Runner {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log = log.WithField("component", "runner")
	if f == nil {
		f = fetcher.NewClient(fetcher.Options{
			Timeout:   cfg.Enrich.FetchTimeout,
			Referer:   cfg.Enrich.Referer,
			UserAgent: cfg.Enrich.UserAgent,
		}, log)
	}

	return &Runner{
		cfg:      cfg,
		open:     open,
		saver:    saver,
		fetcher:  f,
		observer: ui.Multi{obs, NewLogObserver(log)},
		logger:   log,
		now:      time.Now,
	}
}

// Running reports whether an export is in progress
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Run performs one export. A second call while one is active returns
// errors.ErrRunInProgress without side effects. Any other failure, including
// a panic, is returned as a run error after the terminal observation is
// emitted; the runner is then ready for the next invocation.
func (r *Runner) Run(ctx context.Context, opts Options) (summary models.RunSummary, err error) {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Warn("export rejected: another export is running")
		return models.RunSummary{}, errors.ErrRunInProgress
	}
	defer r.running.Store(false)

	if opts.Limit < 0 {
		opts.Limit = 0
	}
	start := r.now()

	defer func() {
		if p := recover(); p != nil {
			err = errors.Wrap(errors.ErrorTypeRun, "export panicked", fmt.Errorf("%v", p))
		}
		if err != nil {
			r.fail(err)
		}
	}()

	r.logger.InfoWithFields("export started", map[string]interface{}{
		"with_resources": opts.WithResources,
		"limit":          opts.Limit,
	})

	summary, err = r.run(ctx, opts)
	if err != nil {
		return summary, errors.Wrap(errors.ErrorTypeRun, "export failed", err)
	}
	summary.Duration = r.now().Sub(start)

	r.logger.InfoWithFields("export finished", map[string]interface{}{
		"path":     summary.Path,
		"count":    summary.Count,
		"ticks":    summary.Ticks,
		"reason":   string(summary.Reason),
		"enriched": summary.Enriched,
		"duration": summary.Duration,
	})
	return summary, nil
}

func (r *Runner) run(ctx context.Context, opts Options) (models.RunSummary, error) {
	summary := models.RunSummary{Limit: opts.Limit, WithResources: opts.WithResources}

	surf, release, err := r.open(ctx)
	if err != nil {
		return summary, err
	}
	if release != nil {
		defer release()
	}

	st := store.New()
	loop := harvest.New(r.harvestConfig(), surf, st, r.observer, r.logger)
	hs, err := loop.Run(ctx, opts.Limit)
	st.Freeze()
	summary.Ticks, summary.Count, summary.Reason = hs.Ticks, hs.Count, hs.Reason
	if err != nil {
		return summary, err
	}

	records := st.Values()
	if opts.WithResources {
		stage := enrich.New(r.fetcher, r.cfg.Enrich.MaxConcurrency, r.observer, r.logger)
		summary.Enriched = stage.Enrich(ctx, records)
	} else {
		r.observer.OnProgress(models.Observation{
			Phase:   models.PhaseSkipEnrich,
			Message: "No-avatar mode (avatar URLs only)...",
			Count:   len(records),
		})
	}

	r.observer.OnProgress(models.Observation{
		Phase:   models.PhaseRendering,
		Message: "Building HTML…",
		Count:   len(records),
	})
	generatedAt := r.now()
	doc, err := export.Render(records, opts.WithResources, generatedAt)
	if err != nil {
		return summary, err
	}

	name := export.FileName(opts.WithResources, opts.Limit, len(records), generatedAt)
	path, err := r.saver.SaveArtifact(name, bytes.NewReader(doc))
	if err != nil {
		return summary, fmt.Errorf("failed to save %s: %w", name, err)
	}
	summary.Path = path
	summary.FileName = filepath.Base(path)

	msg := fmt.Sprintf("Done. Exported %d.", len(records))
	if opts.Limit > 0 {
		msg = fmt.Sprintf("Done. Exported %d (limit %d).", len(records), opts.Limit)
	}
	r.observer.OnProgress(models.Observation{
		Phase:   models.PhaseDone,
		Message: msg,
		Count:   len(records),
		Limit:   opts.Limit,
		Tick:    summary.Ticks,
	})
	return summary, nil
}

func (r *Runner) fail(err error) {
	r.logger.WithError(err).Error("export failed")
	r.observer.OnProgress(models.Observation{
		Phase:   models.PhaseFailed,
		Message: "Error occurred. Check logs.",
	})
}

func (r *Runner) harvestConfig() harvest.Config {
	return harvest.Config{
		ScrollStepRatio:  r.cfg.Harvest.ScrollStepRatio,
		TickInterval:     r.cfg.Harvest.TickInterval,
		StallTicksToStop: r.cfg.Harvest.StallTicksToStop,
		MaxTicks:         r.cfg.Harvest.MaxTicks,
		ProfileBase:      r.cfg.Browser.ProfileBase,
	}
}
