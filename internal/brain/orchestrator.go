package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/pointintime"
	"github.com/wonny/aegis/pit/internal/portfolio"
	"github.com/wonny/aegis/pit/internal/s2_signals"
	"github.com/wonny/aegis/pit/internal/selection"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// Orchestrator coordinates the per-date pipeline
// S0 (guard) → S2 (score) → S4 (rank) → S5 (construct)
// ⭐ SSOT: 파이프라인 조율은 여기서만
type Orchestrator struct {
	guard       pointintime.Guard
	scorer      *s2_signals.Scorer
	ranker      *selection.Ranker
	constructor *portfolio.Constructor
	logger      *logger.Logger
}

// Input is the frozen data a run reads from
type Input struct {
	Prices       *contracts.PricePanel
	Fundamentals []contracts.FundamentalRecord
}

// RunConfig holds configuration for one pipeline run
type RunConfig struct {
	Date  time.Time
	RunID string
	Prior contracts.WeightVector
}

// Scored is the output of the scoring half of the pipeline (S0-S4).
// It depends only on the date and the frozen input.
type Scored struct {
	Date       time.Time                    `json:"date"`
	Table      *contracts.FactorScoreTable  `json:"table"`
	Ranked     []contracts.RankedInstrument `json:"ranked"`
	Volatility map[string]float64           `json:"volatility,omitempty"`
	Prices     *contracts.PricePanel        `json:"-"` // 관찰 가능한 가격 뷰
}

// RunResult holds the results of a complete pipeline run
type RunResult struct {
	RunID           string                        `json:"run_id"`
	Date            time.Time                     `json:"date"`
	Status          contracts.Status              `json:"status"`
	CompletedStages []string                      `json:"completed_stages"`
	Scored          *Scored                       `json:"scored"`
	Target          *contracts.TargetPortfolio    `json:"target"`
	Concentration   portfolio.ConcentrationReport `json:"concentration"`
	Duration        time.Duration                 `json:"duration"`
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(
	guard pointintime.Guard,
	scorer *s2_signals.Scorer,
	ranker *selection.Ranker,
	constructor *portfolio.Constructor,
	logger *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		guard:       guard,
		scorer:      scorer,
		ranker:      ranker,
		constructor: constructor,
		logger:      logger,
	}
}

// Guard returns the temporal guard
func (o *Orchestrator) Guard() pointintime.Guard {
	return o.guard
}

// Sectors returns the constructor's sector lookup
func (o *Orchestrator) Sectors() contracts.SectorLookup {
	return o.constructor.Sectors()
}

// Run executes S0 → S5 for one date
func (o *Orchestrator) Run(ctx context.Context, config RunConfig, input Input) (*RunResult, error) {
	startTime := time.Now()
	if config.RunID == "" {
		config.RunID = GenerateRunID()
	}

	result := &RunResult{
		RunID:           config.RunID,
		Date:            contracts.Day(config.Date),
		CompletedStages: make([]string, 0, 4),
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id": config.RunID,
		"date":   result.Date.Format("2006-01-02"),
		"prior":  len(config.Prior),
	}).Info("Starting pipeline run")

	scored, err := o.Score(ctx, config.Date, input)
	if err != nil {
		return result, fmt.Errorf("scoring failed: %w", err)
	}
	result.Scored = scored
	result.CompletedStages = append(result.CompletedStages,
		contracts.StagePointInTime.String(), contracts.StageSignals.String(), contracts.StageRanker.String())

	target, err := o.Construct(ctx, scored, config.Prior)
	if err != nil {
		return result, fmt.Errorf("construction failed: %w", err)
	}
	result.Target = target
	result.Status = target.Status
	result.Concentration = portfolio.Concentration(target.Weights, o.constructor.Sectors())
	result.CompletedStages = append(result.CompletedStages, contracts.StagePortfolio.String())
	result.Duration = time.Since(startTime)

	o.logger.WithFields(map[string]interface{}{
		"run_id":    config.RunID,
		"status":    string(result.Status),
		"positions": target.Count(),
		"hhi":       result.Concentration.HHI,
		"duration":  result.Duration.Milliseconds(),
	}).Info("Pipeline run completed")

	return result, nil
}

// Score guards the input as of date, scores and ranks the universe.
// Safe to call concurrently for different dates over the same input.
func (o *Orchestrator) Score(ctx context.Context, date time.Time, input Input) (*Scored, error) {
	date = contracts.Day(date)
	prices := o.guard.Prices(input.Prices, date)
	fundamentals := o.guard.Fundamentals(input.Fundamentals, date)

	table, err := o.scorer.Score(ctx, date, prices, fundamentals)
	if err != nil {
		return nil, err
	}

	universe := s2_signals.Universe(prices, fundamentals)
	var ranked []contracts.RankedInstrument
	if table.Status == contracts.StatusOK {
		ranked, err = o.ranker.Rank(ctx, universe, table)
		if err != nil {
			return nil, err
		}
	}

	scored := &Scored{
		Date:   date,
		Table:  table,
		Ranked: ranked,
		Prices: prices,
	}

	constraints := o.constructor.Constraints()
	if constraints.Method == portfolio.MethodRiskParity {
		top := selection.TopN(ranked, constraints.N)
		ids := make([]string, len(top))
		for i, r := range top {
			ids[i] = r.InstrumentID
		}
		scored.Volatility = s2_signals.Volatilities(prices, ids, constraints.VolLookback)
	}

	return scored, nil
}

// Construct builds target weights from a scored date and the prior weights
func (o *Orchestrator) Construct(ctx context.Context, scored *Scored, prior contracts.WeightVector) (*contracts.TargetPortfolio, error) {
	return o.constructor.Construct(ctx, portfolio.Request{
		Date:       scored.Date,
		Ranked:     scored.Ranked,
		Prior:      prior,
		Volatility: scored.Volatility,
	})
}

// GenerateRunID generates a unique run ID
func GenerateRunID() string {
	return fmt.Sprintf("run_%s", time.Now().Format("20060102_150405"))
}
