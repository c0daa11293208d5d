// Package harvest implements the scroll-driven collection loop over a candidate surface.
package harvest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"followexport/pkg/errors"
	"followexport/pkg/logger"
	"followexport/pkg/models"
	"followexport/pkg/store"
	"followexport/pkg/surface"
)

// DefaultProfileBase prefixes identity keys built from relative card links
const DefaultProfileBase = "https://weibo.com/"

// Config holds the loop pacing and termination policy
type Config struct {
	ScrollStepRatio  float64
	TickInterval     time.Duration
	StallTicksToStop int
	MaxTicks         int
	ProfileBase      string
}

// DefaultConfig returns the stock pacing
func DefaultConfig() Config {
	return Config{
		ScrollStepRatio:  0.9,
		TickInterval:     400 * time.Millisecond,
		StallTicksToStop: 6,
		MaxTicks:         600,
		ProfileBase:      DefaultProfileBase,
	}
}

// State is the loop lifecycle
type State int

const (
	StateIdle State = iota
	StateScanning
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Summary describes how a harvest ended
type Summary struct {
	Ticks  int
	Count  int
	Reason models.StopReason
}

// Loop samples the surface once per tick and merges new cards into the store.
// A Loop runs once.
type Loop struct {
	cfg      Config
	surface  surface.Surface
	store    *store.Store
	observer models.Observer
	logger   logger.Logger

	state State
	ticks int
	stall int
}

// New creates a loop over surf writing into st
func New(cfg Config, surf surface.Surface, st *store.Store, obs models.Observer, log logger.Logger) *Loop {
	if log == nil {
		log = logger.GetLogger()
	}
	if obs == nil {
		obs = models.NopObserver{}
	}
	if cfg.ProfileBase == "" {
		cfg.ProfileBase = DefaultProfileBase
	}
	return &Loop{
		cfg:      cfg,
		surface:  surf,
		store:    st,
		observer: obs,
		logger:   log.WithField("component", "harvest"),
	}
}

// State returns the current lifecycle state
func (l *Loop) State() State {
	return l.state
}

// Run harvests until the limit is reached, the surface stalls at its end, or
// the tick budget runs out. A limit of zero or less means unlimited. Surface
// errors abort the loop and are returned.
func (l *Loop) Run(ctx context.Context, limit int) (Summary, error) {
	if l.state != StateIdle {
		return Summary{}, errors.New(errors.ErrorTypeRun, "harvest loop already used")
	}
	if limit < 0 {
		limit = 0
	}
	l.state = StateScanning

	l.observer.OnProgress(models.Observation{
		Phase:   models.PhaseScanning,
		Message: "Scanning…" + limitNote(limit, " (limit %d)"),
		Limit:   limit,
	})

	reason, err := l.loop(ctx, limit)
	summary := Summary{Ticks: l.ticks, Count: l.store.Size(), Reason: reason}
	if err != nil {
		l.state = StateAborted
		l.logger.ErrorWithFields("harvest aborted", map[string]interface{}{
			"ticks": l.ticks,
			"count": summary.Count,
			"error": err.Error(),
		})
		return summary, err
	}

	l.state = StateDone
	l.observer.OnProgress(models.Observation{
		Phase:   models.PhaseScanDone,
		Message: fmt.Sprintf("Scan done. Total: %d%s.", summary.Count, limitNote(limit, " (limit %d)")),
		Count:   summary.Count,
		Limit:   limit,
		Tick:    l.ticks,
		Stall:   l.stall,
	})
	l.logger.InfoWithFields("harvest finished", map[string]interface{}{
		"ticks":  l.ticks,
		"count":  summary.Count,
		"reason": string(reason),
	})
	return summary, nil
}

func (l *Loop) loop(ctx context.Context, limit int) (models.StopReason, error) {
	lastCount := l.store.Size()

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		l.ticks++

		candidates, err := l.surface.Sample(ctx)
		if err != nil {
			return "", errors.Wrap(errors.ErrorTypeSurface, "sample failed", err)
		}
		hitLimit := l.merge(candidates, limit)

		count := l.store.Size()
		if count > lastCount {
			l.stall = 0
			lastCount = count
		} else {
			l.stall++
		}

		l.observer.OnProgress(models.Observation{
			Phase: models.PhaseScanning,
			Message: fmt.Sprintf("Collected: %d%s | tick: %d | no increase: %d/%d",
				count, limitNote(limit, "/%d"), l.ticks, l.stall, l.cfg.StallTicksToStop),
			Count: count,
			Limit: limit,
			Tick:  l.ticks,
			Stall: l.stall,
		})
		l.logger.DebugWithFields("tick", map[string]interface{}{
			"tick":    l.ticks,
			"sampled": len(candidates),
			"count":   count,
			"stall":   l.stall,
		})

		if hitLimit {
			return models.StopLimit, nil
		}

		if l.stall >= l.cfg.StallTicksToStop {
			atEnd, err := l.surface.AtEnd(ctx)
			if err != nil {
				return "", errors.Wrap(errors.ErrorTypeSurface, "end check failed", err)
			}
			if atEnd {
				return models.StopStall, nil
			}
		}

		if l.ticks >= l.cfg.MaxTicks {
			return models.StopBudget, nil
		}

		if err := l.surface.Advance(ctx, l.cfg.ScrollStepRatio); err != nil {
			return "", errors.Wrap(errors.ErrorTypeSurface, "advance failed", err)
		}
		if err := sleep(ctx, l.cfg.TickInterval); err != nil {
			return "", err
		}
	}
}

// merge adds unseen candidates in sample order and reports whether the limit
// was reached. Candidates after the limit-reaching one are ignored.
func (l *Loop) merge(candidates []models.Candidate, limit int) bool {
	for _, c := range candidates {
		if limit > 0 && l.store.Size() >= limit {
			return true
		}

		key := IdentityKey(l.cfg.ProfileBase, c.Href)
		if key == "" || l.store.Has(key) {
			continue
		}

		c := c
		l.store.TryAdd(key, func() *models.Record {
			return newRecord(key, c)
		})

		if limit > 0 && l.store.Size() >= limit {
			return true
		}
	}
	return false
}

func newRecord(key string, c models.Candidate) *models.Record {
	var lines []string
	for _, d := range c.Descriptions {
		if d = strings.TrimSpace(d); d != "" {
			lines = append(lines, d)
		}
		if len(lines) == 2 {
			break
		}
	}
	return &models.Record{
		IdentityKey:      key,
		DisplayName:      strings.TrimSpace(c.DisplayName),
		ResourceURL:      strings.TrimSpace(c.ResourceURL),
		DescriptionLines: lines,
	}
}

// IdentityKey builds the canonical profile link for a card href. "/u/<id>"
// becomes "<base>u/<id>", anything else is appended to base without its
// leading slash. An empty href has no identity.
func IdentityKey(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if strings.HasPrefix(href, "/u/") {
		return base + "u/" + strings.TrimPrefix(href, "/u/")
	}
	return base + strings.TrimPrefix(href, "/")
}

func limitNote(limit int, format string) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(format, limit)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
