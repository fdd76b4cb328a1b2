package jobs

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/pit/internal/brain"
	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/pointintime"
	"github.com/wonny/aegis/pit/internal/portfolio"
	"github.com/wonny/aegis/pit/internal/s0_data/quality"
	"github.com/wonny/aegis/pit/internal/s2_signals"
	"github.com/wonny/aegis/pit/internal/selection"
	"github.com/wonny/aegis/pit/pkg/logger"
	"github.com/wonny/aegis/pit/pkg/metrics"
)

// 2024-03-01 is a monthly rebalance date, 2024-03-04 is not
var (
	monthStart = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	midMonth   = time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
)

// panelSource serves a fixed panel
type panelSource struct {
	points []contracts.PricePoint
	err    error
}

func (s *panelSource) LoadPrices(_ context.Context, from, to time.Time) (*contracts.PricePanel, error) {
	if s.err != nil {
		return nil, s.err
	}
	var window []contracts.PricePoint
	for _, p := range s.points {
		if !p.Date.Before(from) && !p.Date.After(to) {
			window = append(window, p)
		}
	}
	return contracts.NewPricePanel(window)
}

func (s *panelSource) LoadFundamentals(context.Context) ([]contracts.FundamentalRecord, error) {
	return nil, nil
}

// trendingSource: A rises fastest, C falls
func trendingSource() *panelSource {
	return trendingSourceUntil(monthStart)
}

func trendingSourceUntil(end time.Time) *panelSource {
	rates := map[string]float64{"A": 0.003, "B": 0.001, "C": -0.002}
	src := &panelSource{}
	for id, rate := range rates {
		for i := 0; i < 80; i++ {
			d := contracts.Day(end).AddDate(0, 0, i-79)
			src.points = append(src.points, contracts.PricePoint{
				InstrumentID: id,
				Date:         d,
				Close:        100 * math.Pow(1+rate, float64(i)),
				Volume:       1e9,
			})
		}
	}
	return src
}

func newJob(src contracts.PanelSource, store portfolio.PriorStore, now time.Time) *RebalanceJob {
	log := logger.Nop()
	c := portfolio.DefaultConstraints()
	c.N = 2
	orch := brain.NewOrchestrator(
		pointintime.DefaultGuard(),
		s2_signals.NewScorer(s2_signals.ScorerConfig{
			Factors: []contracts.FactorDefinition{{ID: "mom", Type: contracts.FactorPriceMomentum, Lookback: 20}},
			Weights: map[string]float64{"mom": 1},
		}, log),
		selection.NewRanker(log),
		portfolio.NewConstructor(c, portfolio.StaticSectors{}, log),
		log,
	)
	gate := quality.NewQualityGate(pointintime.DefaultGuard(), quality.DefaultConfig())
	return NewRebalanceJob(orch, src, store, gate, metrics.New(), RebalanceConfig{
		Strategy:  "test",
		Frequency: pointintime.Monthly,
	}, log).WithClock(func() time.Time { return now })
}

func TestRebalanceJob_Defaults(t *testing.T) {
	job := newJob(trendingSource(), portfolio.NewMemoryStore(), monthStart)

	assert.Equal(t, "rebalance_test", job.Name())
	assert.Equal(t, DefaultRebalanceSchedule, job.Schedule())
	assert.Equal(t, DefaultLookbackDays, job.lookbackDays)
}

func TestRebalanceJob_SavesPrior(t *testing.T) {
	store := portfolio.NewMemoryStore()
	job := newJob(trendingSource(), store, monthStart)

	require.NoError(t, job.Run(context.Background()))

	prior, err := store.LoadPrior(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, contracts.WeightVector{"A": 0.5, "B": 0.5}, prior)
}

func TestRebalanceJob_SkipsOffSchedule(t *testing.T) {
	store := portfolio.NewMemoryStore()
	src := &panelSource{err: errors.New("must not be called")}

	require.NoError(t, newJob(src, store, midMonth).Run(context.Background()))

	prior, err := store.LoadPrior(context.Background(), "test")
	require.NoError(t, err)
	assert.Empty(t, prior)
}

func TestRebalanceJob_LoadError(t *testing.T) {
	src := &panelSource{err: errors.New("disk gone")}
	err := newJob(src, portfolio.NewMemoryStore(), monthStart).Run(context.Background())
	assert.ErrorContains(t, err, "disk gone")
}

func TestRebalanceJob_InsufficientDataKeepsPrior(t *testing.T) {
	store := portfolio.NewMemoryStore()
	kept := contracts.WeightVector{"X": 1}
	require.NoError(t, store.SavePrior(context.Background(), "test", monthStart, kept))

	require.NoError(t, newJob(&panelSource{}, store, monthStart).Run(context.Background()))

	prior, err := store.LoadPrior(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, kept, prior)
}

// june2024 returns the weekdays of June 2024 (June 1 is a Saturday)
func june2024() []time.Time {
	var days []time.Time
	for d := time.Date(2024, 6, 1, 16, 30, 0, 0, time.UTC); d.Month() == time.June; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
	}
	return days
}

func TestRebalanceJob_WeekendAnchorRunsNextWeekday(t *testing.T) {
	ctx := context.Background()
	store := portfolio.NewMemoryStore()
	src := trendingSourceUntil(time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC))

	var now time.Time
	job := newJob(src, store, now).WithClock(func() time.Time { return now })

	var ran []string
	for _, d := range june2024() {
		now = d
		before, err := store.LastRebalance(ctx, "test")
		require.NoError(t, err)
		require.NoError(t, job.Run(ctx))
		after, err := store.LastRebalance(ctx, "test")
		require.NoError(t, err)
		if !after.Equal(before) {
			ran = append(ran, after.Format("2006-01-02"))
		}
	}

	assert.Equal(t, []string{"2024-06-03"}, ran, "exactly one rebalance, on the first weekday")
}

func TestRebalanceJob_CatchesUpMissedPeriod(t *testing.T) {
	ctx := context.Background()
	store := portfolio.NewMemoryStore()
	require.NoError(t, store.SavePrior(ctx, "test", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), contracts.WeightVector{"C": 1}))

	src := trendingSourceUntil(time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC))
	points := src.points
	src.points, src.err = nil, errors.New("feed down")

	now := time.Date(2024, 6, 3, 16, 30, 0, 0, time.UTC)
	job := newJob(src, store, now).WithClock(func() time.Time { return now })
	assert.ErrorContains(t, job.Run(ctx), "feed down")

	src.points, src.err = points, nil
	now = time.Date(2024, 6, 4, 16, 30, 0, 0, time.UTC)
	require.NoError(t, job.Run(ctx))

	last, err := store.LastRebalance(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), last, "missed 06-03 run is caught up")

	now = time.Date(2024, 6, 5, 16, 30, 0, 0, time.UTC)
	src.err = errors.New("must not be called")
	require.NoError(t, job.Run(ctx), "period already rebalanced")
}
