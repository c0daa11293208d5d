package harvest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followexport/pkg/errors"
	"followexport/pkg/logger"
	"followexport/pkg/models"
	"followexport/pkg/store"
)

// fakeSurface replays one sample per tick. After the last page it keeps
// returning the last page. AtEnd becomes true once endAfter advances happened.
type fakeSurface struct {
	pages     [][]models.Candidate
	endAfter  int
	sampleErr error
	errOnTick int

	samples  int
	advances int
	ratios   []float64
}

func (f *fakeSurface) Sample(ctx context.Context) ([]models.Candidate, error) {
	f.samples++
	if f.sampleErr != nil && f.samples >= f.errOnTick {
		return nil, f.sampleErr
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	i := f.samples - 1
	if i >= len(f.pages) {
		i = len(f.pages) - 1
	}
	return f.pages[i], nil
}

func (f *fakeSurface) Advance(ctx context.Context, ratio float64) error {
	f.advances++
	f.ratios = append(f.ratios, ratio)
	return nil
}

func (f *fakeSurface) AtEnd(ctx context.Context) (bool, error) {
	return f.advances >= f.endAfter, nil
}

type recorder struct {
	observations []models.Observation
}

func (r *recorder) OnProgress(obs models.Observation) {
	r.observations = append(r.observations, obs)
}

func (r *recorder) messages() []string {
	out := make([]string, len(r.observations))
	for i, o := range r.observations {
		out[i] = o.Message
	}
	return out
}

func cards(ids ...string) []models.Candidate {
	out := make([]models.Candidate, len(ids))
	for i, id := range ids {
		out[i] = models.Candidate{
			Href:         "/u/" + id,
			DisplayName:  "user " + id,
			ResourceURL:  "https://img.example/" + id + ".jpg",
			Descriptions: []string{"first " + id, "second " + id, "third " + id},
		}
	}
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TickInterval = 0
	return cfg
}

func keys(st *store.Store) []string {
	var out []string
	for _, r := range st.Values() {
		out = append(out, r.IdentityKey)
	}
	return out
}

func TestExactLimitWithinOneSample(t *testing.T) {
	surf := &fakeSurface{pages: [][]models.Candidate{cards("1", "2", "3", "4", "5")}}
	st := store.New()
	loop := New(testConfig(), surf, st, nil, logger.NewNopLogger())

	summary, err := loop.Run(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, models.StopLimit, summary.Reason)
	assert.Equal(t, 1, summary.Ticks)
	assert.Equal(t, 3, summary.Count)
	assert.Equal(t, []string{
		"https://weibo.com/u/1",
		"https://weibo.com/u/2",
		"https://weibo.com/u/3",
	}, keys(st))
	assert.Zero(t, surf.advances, "no scroll after the limit is hit")
	assert.Equal(t, StateDone, loop.State())
}

func TestLimitReachedAcrossTicks(t *testing.T) {
	surf := &fakeSurface{pages: [][]models.Candidate{
		cards("1", "2"),
		cards("2", "3"),
		cards("3", "4", "5"),
	}}
	st := store.New()

	summary, err := New(testConfig(), surf, st, nil, logger.NewNopLogger()).Run(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, models.StopLimit, summary.Reason)
	assert.Equal(t, 3, summary.Ticks)
	assert.Equal(t, 4, st.Size())
	assert.False(t, st.Has("https://weibo.com/u/5"))
}

func TestDedupAcrossOverlappingSamples(t *testing.T) {
	surf := &fakeSurface{
		pages: [][]models.Candidate{
			cards("a", "b", "c"),
			cards("b", "c", "d"),
			cards("c", "d", "e", "a"),
		},
		endAfter: 2,
	}
	st := store.New()

	summary, err := New(testConfig(), surf, st, nil, logger.NewNopLogger()).Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, models.StopStall, summary.Reason)
	assert.Equal(t, []string{
		"https://weibo.com/u/a",
		"https://weibo.com/u/b",
		"https://weibo.com/u/c",
		"https://weibo.com/u/d",
		"https://weibo.com/u/e",
	}, keys(st))
}

func TestStallTerminationWithinThreshold(t *testing.T) {
	surf := &fakeSurface{pages: [][]models.Candidate{cards("1", "2")}, endAfter: 0}
	st := store.New()
	cfg := testConfig()

	summary, err := New(cfg, surf, st, nil, logger.NewNopLogger()).Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, models.StopStall, summary.Reason)
	// One productive tick, then StallTicksToStop ticks without growth.
	assert.Equal(t, 1+cfg.StallTicksToStop, summary.Ticks)
	assert.Equal(t, 2, summary.Count)
}

func TestStallRequiresSurfaceAtEnd(t *testing.T) {
	// The page stops growing but the scroller only reaches the end after 10 advances.
	surf := &fakeSurface{pages: [][]models.Candidate{cards("1")}, endAfter: 10}
	st := store.New()

	summary, err := New(testConfig(), surf, st, nil, logger.NewNopLogger()).Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, models.StopStall, summary.Reason)
	assert.Equal(t, 11, summary.Ticks)
}

func TestEmptySurface(t *testing.T) {
	surf := &fakeSurface{endAfter: 0}
	st := store.New()
	cfg := testConfig()

	summary, err := New(cfg, surf, st, nil, logger.NewNopLogger()).Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, models.StopStall, summary.Reason)
	assert.Equal(t, cfg.StallTicksToStop, summary.Ticks)
	assert.Zero(t, summary.Count)
}

func TestTickBudgetExhaustion(t *testing.T) {
	surf := &fakeSurface{endAfter: 1 << 30}
	st := store.New()
	cfg := testConfig()
	cfg.MaxTicks = 25

	summary, err := New(cfg, surf, st, nil, logger.NewNopLogger()).Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, models.StopBudget, summary.Reason)
	assert.Equal(t, 25, summary.Ticks)
	assert.Equal(t, 24, surf.advances)
}

func TestSurfaceErrorAborts(t *testing.T) {
	surf := &fakeSurface{
		pages:     [][]models.Candidate{cards("1")},
		endAfter:  100,
		sampleErr: fmt.Errorf("tab crashed"),
		errOnTick: 3,
	}
	st := store.New()
	loop := New(testConfig(), surf, st, nil, logger.NewNopLogger())

	summary, err := loop.Run(context.Background(), 0)
	require.Error(t, err)

	assert.True(t, errors.IsType(err, errors.ErrorTypeSurface))
	assert.Equal(t, StateAborted, loop.State())
	assert.Equal(t, 3, summary.Ticks)
	assert.Equal(t, 1, summary.Count)
}

func TestLoopRunsOnce(t *testing.T) {
	surf := &fakeSurface{pages: [][]models.Candidate{cards("1")}}
	loop := New(testConfig(), surf, store.New(), nil, logger.NewNopLogger())

	_, err := loop.Run(context.Background(), 1)
	require.NoError(t, err)

	_, err = loop.Run(context.Background(), 1)
	assert.Error(t, err)
}

func TestCancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loop := New(testConfig(), &fakeSurface{}, store.New(), nil, logger.NewNopLogger())
	_, err := loop.Run(ctx, 0)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateAborted, loop.State())
}

func TestObservations(t *testing.T) {
	surf := &fakeSurface{pages: [][]models.Candidate{cards("1", "2"), cards("2", "3")}}
	rec := &recorder{}

	_, err := New(testConfig(), surf, store.New(), rec, logger.NewNopLogger()).Run(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Scanning… (limit 3)",
		"Collected: 2/3 | tick: 1 | no increase: 0/6",
		"Collected: 3/3 | tick: 2 | no increase: 0/6",
		"Scan done. Total: 3 (limit 3).",
	}, rec.messages())

	last := rec.observations[2]
	assert.Equal(t, 3, last.Count)
	assert.Equal(t, 2, last.Tick)
}

func TestObservationsWithoutLimit(t *testing.T) {
	surf := &fakeSurface{endAfter: 0}
	rec := &recorder{}
	cfg := testConfig()
	cfg.StallTicksToStop = 1

	_, err := New(cfg, surf, store.New(), rec, logger.NewNopLogger()).Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Scanning…",
		"Collected: 0 | tick: 1 | no increase: 1/1",
		"Scan done. Total: 0.",
	}, rec.messages())
}

func TestRecordFields(t *testing.T) {
	surf := &fakeSurface{pages: [][]models.Candidate{{
		{Href: "/someone", DisplayName: "  Someone ", ResourceURL: "https://img/x.png", Descriptions: []string{"", " one ", "two", "three"}},
	}}}
	st := store.New()

	_, err := New(testConfig(), surf, st, nil, logger.NewNopLogger()).Run(context.Background(), 1)
	require.NoError(t, err)

	rec := st.Values()[0]
	assert.Equal(t, "https://weibo.com/someone", rec.IdentityKey)
	assert.Equal(t, "Someone", rec.DisplayName)
	assert.Equal(t, "https://img/x.png", rec.ResourceURL)
	assert.Equal(t, []string{"one", "two"}, rec.DescriptionLines)
	assert.Empty(t, rec.EncodedResource)
}

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://weibo.com/", "/u/123", "https://weibo.com/u/123"},
		{"https://weibo.com/", "/n/alice", "https://weibo.com/n/alice"},
		{"https://weibo.com/", "alice", "https://weibo.com/alice"},
		{"https://weibo.com", "/u/9", "https://weibo.com/u/9"},
		{"https://weibo.com/", "  ", ""},
		{"https://weibo.com/", "", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IdentityKey(tt.base, tt.href), tt.href)
	}
}

func TestCandidatesWithoutHrefAreSkipped(t *testing.T) {
	surf := &fakeSurface{pages: [][]models.Candidate{{{DisplayName: "ghost"}, {Href: "/u/1"}}}}
	st := store.New()

	_, err := New(testConfig(), surf, st, nil, logger.NewNopLogger()).Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://weibo.com/u/1"}, keys(st))
}
