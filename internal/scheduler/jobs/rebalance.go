package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis/pit/internal/brain"
	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/pointintime"
	"github.com/wonny/aegis/pit/internal/portfolio"
	"github.com/wonny/aegis/pit/internal/s0_data/quality"
	"github.com/wonny/aegis/pit/pkg/logger"
	"github.com/wonny/aegis/pit/pkg/metrics"
)

// DefaultRebalanceSchedule runs after the KRX close on weekdays (with seconds)
const DefaultRebalanceSchedule = "0 30 16 * * MON-FRI"

// DefaultLookbackDays is the calendar window of prices loaded per run
const DefaultLookbackDays = brain.DefaultWarmupDays

// RebalanceJob runs the per-date pipeline on the strategy's cadence and
// stores the result as the next run's prior weights
// ⭐ SSOT: 정기 리밸런싱 스케줄은 이 Job에서만
type RebalanceJob struct {
	orchestrator *brain.Orchestrator
	source       contracts.PanelSource
	store        portfolio.PriorStore
	gate         *quality.QualityGate
	recorder     *metrics.Recorder
	logger       *logger.Logger

	strategy     string
	frequency    pointintime.Frequency
	schedule     string
	lookbackDays int
	now          func() time.Time
}

// RebalanceConfig configures a RebalanceJob
type RebalanceConfig struct {
	Strategy     string
	Frequency    pointintime.Frequency
	Schedule     string // 빈 값이면 DefaultRebalanceSchedule
	LookbackDays int    // 0이면 DefaultLookbackDays
}

// NewRebalanceJob creates a new rebalance job. gate and recorder may be nil.
func NewRebalanceJob(
	orchestrator *brain.Orchestrator,
	source contracts.PanelSource,
	store portfolio.PriorStore,
	gate *quality.QualityGate,
	recorder *metrics.Recorder,
	config RebalanceConfig,
	log *logger.Logger,
) *RebalanceJob {
	if config.Schedule == "" {
		config.Schedule = DefaultRebalanceSchedule
	}
	if config.LookbackDays <= 0 {
		config.LookbackDays = DefaultLookbackDays
	}
	return &RebalanceJob{
		orchestrator: orchestrator,
		source:       source,
		store:        store,
		gate:         gate,
		recorder:     recorder,
		logger:       log,
		strategy:     config.Strategy,
		frequency:    config.Frequency,
		schedule:     config.Schedule,
		lookbackDays: config.LookbackDays,
		now:          time.Now,
	}
}

// WithClock overrides the job's clock (tests)
func (j *RebalanceJob) WithClock(now func() time.Time) *RebalanceJob {
	j.now = now
	return j
}

// Name returns the job name
func (j *RebalanceJob) Name() string {
	return "rebalance_" + j.strategy
}

// Schedule returns the cron schedule
func (j *RebalanceJob) Schedule() string {
	return j.schedule
}

// Run executes the pipeline if today is on the rebalance schedule
func (j *RebalanceJob) Run(ctx context.Context) error {
	date := contracts.Day(j.now())

	due, err := j.isDue(ctx, date)
	if err != nil {
		return err
	}
	if !due {
		j.logger.WithFields(map[string]interface{}{
			"strategy":  j.strategy,
			"date":      date.Format("2006-01-02"),
			"frequency": string(j.frequency),
		}).Debug("Not a rebalance date, skipping")
		return nil
	}

	input, err := brain.LoadInput(ctx, j.source, date, date, j.lookbackDays)
	if err != nil {
		return err
	}

	if j.gate != nil {
		snapshot := j.gate.Check(date, input.Prices, input.Fundamentals)
		if !snapshot.Passed {
			// 품질 미달이어도 실행은 계속 (경고만)
			j.logger.WithFields(map[string]interface{}{
				"quality_score": snapshot.QualityScore,
				"failures":      snapshot.Failures,
			}).Warn("Data quality below threshold, continuing with rebalance")
		}
	}

	prior, err := j.store.LoadPrior(ctx, j.strategy)
	if err != nil {
		return err
	}

	result, err := j.orchestrator.Run(ctx, brain.RunConfig{Date: date, Prior: prior}, input)
	if err != nil {
		j.recorder.RecordRun("pipeline", "error")
		return fmt.Errorf("pipeline run failed: %w", err)
	}
	j.recorder.RecordRun("pipeline", string(result.Status))

	if result.Status != contracts.StatusOK {
		// 데이터 부족 시 직전 비중 유지
		j.logger.WithFields(map[string]interface{}{
			"strategy": j.strategy,
			"status":   string(result.Status),
		}).Warn("Rebalance produced no portfolio, keeping prior weights")
		return nil
	}

	if err := j.store.SavePrior(ctx, j.strategy, date, result.Target.Weights); err != nil {
		return err
	}
	j.recorder.SetHoldings(j.strategy, result.Target.Count())

	j.logger.WithFields(map[string]interface{}{
		"strategy":  j.strategy,
		"date":      date.Format("2006-01-02"),
		"positions": result.Target.Count(),
		"turnover":  result.Target.Turnover,
		"hhi":       result.Concentration.HHI,
		"level":     string(result.Concentration.Level),
	}).Info("Rebalance completed")

	return nil
}

// isDue reports whether date rebalances the current period. The first weekday
// on or after the anchor is due; a period whose rebalance was missed is caught
// up on the next weekday run.
func (j *RebalanceJob) isDue(ctx context.Context, date time.Time) (bool, error) {
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false, nil
	}

	anchor, err := pointintime.PeriodStart(date, j.frequency)
	if err != nil {
		return false, err
	}
	if date.Equal(pointintime.FirstWeekday(anchor)) {
		return true, nil
	}

	last, err := j.store.LastRebalance(ctx, j.strategy)
	if err != nil {
		return false, err
	}
	// 실패/데이터 부족으로 놓친 기간은 다음 영업일에 수행
	return !last.IsZero() && last.Before(anchor), nil
}
