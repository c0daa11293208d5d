// Package enrich embeds avatar images into harvested records.
package enrich

import (
	"context"
	"fmt"

	"followexport/internal/pool"
	"followexport/pkg/fetcher"
	"followexport/pkg/logger"
	"followexport/pkg/models"
)

// DefaultConcurrency is the in-flight fetch ceiling
const DefaultConcurrency = 6

// Fetcher resolves a resource URL into an embeddable encoding
type Fetcher interface {
	Fetch(ctx context.Context, url string) fetcher.Resource
}

// Stage fetches every record's resource through a bounded pool
type Stage struct {
	fetcher     Fetcher
	concurrency int
	observer    models.Observer
	logger      logger.Logger
}

// New creates an enrichment stage. A concurrency below 1 uses DefaultConcurrency.
func New(f Fetcher, concurrency int, obs models.Observer, log logger.Logger) *Stage {
	if log == nil {
		log = logger.GetLogger()
	}
	if obs == nil {
		obs = models.NopObserver{}
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Stage{
		fetcher:     f,
		concurrency: concurrency,
		observer:    obs,
		logger:      log.WithField("component", "enrich"),
	}
}

// Enrich sets EncodedResource on each record whose resource could be fetched.
// Failures leave the record untouched. It returns the number of records enriched.
func (s *Stage) Enrich(ctx context.Context, records []*models.Record) int {
	total := len(records)
	s.observer.OnProgress(models.Observation{
		Phase:   models.PhaseEnriching,
		Message: "Fetching avatars (base64)...",
		Total:   total,
	})

	tasks := make([]pool.Task[bool], total)
	for i, rec := range records {
		rec := rec
		tasks[i] = func(ctx context.Context) (bool, error) {
			if rec.ResourceURL == "" {
				return false, nil
			}
			res := s.fetcher.Fetch(ctx, rec.ResourceURL)
			if !res.OK {
				return false, fmt.Errorf("resource unavailable: %s", rec.ResourceURL)
			}
			rec.EncodedResource = res.Encoded
			return true, nil
		}
	}

	results := pool.Run(ctx, tasks, s.concurrency,
		pool.WithLogger(s.logger),
		pool.WithOnAdmit(func(index int) {
			s.observer.OnProgress(models.Observation{
				Phase:   models.PhaseEnriching,
				Message: fmt.Sprintf("Fetching avatar %d/%d", index+1, total),
				Index:   index + 1,
				Total:   total,
			})
		}),
	)

	enriched := 0
	for _, r := range results {
		if r.OK && r.Value {
			enriched++
		}
	}
	_, failed := pool.Tally(results)
	s.logger.InfoWithFields("enrichment finished", map[string]interface{}{
		"total":    total,
		"enriched": enriched,
		"failed":   failed,
		"skipped":  total - enriched - failed,
	})
	return enriched
}
