package strategyconfig

import (
	"fmt"
	"time"

	"github.com/wonny/aegis/pit/internal/backtest"
	"github.com/wonny/aegis/pit/internal/brain"
	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/cost"
	"github.com/wonny/aegis/pit/internal/pointintime"
	"github.com/wonny/aegis/pit/internal/portfolio"
	"github.com/wonny/aegis/pit/internal/s2_signals"
	"github.com/wonny/aegis/pit/internal/selection"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// ScorerConfig converts the factor and signal sections
func (s *Spec) ScorerConfig() s2_signals.ScorerConfig {
	factors := make([]contracts.FactorDefinition, len(s.Factors))
	for i, f := range s.Factors {
		def := contracts.FactorDefinition{
			ID:          f.ID,
			Type:        contracts.FactorType(f.Type),
			Formula:     f.Formula,
			Lookback:    valueOr(f.Lookback, s2_signals.DefaultMomentumLookback),
			Skip:        f.Skip,
			Standardize: f.Standardize || f.ZScore,
		}
		if len(f.Winsorize) == 2 {
			def.Winsorize = &contracts.Bounds{Lower: f.Winsorize[0], Upper: f.Winsorize[1]}
		}
		factors[i] = def
	}

	weights := make(map[string]float64, len(s.Signal.Weights))
	for k, v := range s.Signal.Weights {
		weights[k] = v
	}

	return s2_signals.ScorerConfig{
		Factors: factors,
		Weights: weights,
		Method:  contracts.CompositeMethod(s.Signal.Method),
	}
}

// Constraints converts the portfolio and risk limit sections
func (s *Spec) Constraints() portfolio.Constraints {
	def := portfolio.DefaultConstraints()
	return portfolio.Constraints{
		N:           s.Portfolio.N,
		MaxWeight:   valueOr(s.Portfolio.MaxWeight, def.MaxWeight),
		SectorCap:   valueOr(s.Portfolio.SectorCap, def.SectorCap),
		MaxTurnover: valueOr(s.RiskLimits.MaxTurnover, def.MaxTurnover),
		Method:      portfolio.Method(s.Portfolio.Method),
		VolLookback: valueOr(s.Portfolio.VolLookback, def.VolLookback),
	}
}

// Costs converts the cost section
func (s *Spec) Costs() cost.Model {
	return cost.NewModel(s.CostModel.FeeBps, s.CostModel.SlippageBps, valueOr(s.Backtest.LiquidityMaxPct, cost.DefaultLiquidityMaxPct))
}

// Guard returns the temporal guard with the configured disclosure lag
func (s *Spec) Guard() pointintime.Guard {
	return pointintime.NewGuard(valueOr(s.Backtest.FinancialLagDays, pointintime.FinancialLagDays))
}

// Frequency returns the rebalance cadence
func (s *Spec) Frequency() pointintime.Frequency {
	return pointintime.Frequency(s.Rebalance.Freq)
}

// Window returns the backtest window, overridden by non-zero from/to
func (s *Spec) Window(from, to time.Time) (time.Time, time.Time, error) {
	start, end := from, to
	if start.IsZero() {
		if s.Backtest.Start == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("backtest start not set")
		}
		t, err := time.Parse(time.DateOnly, s.Backtest.Start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse backtest.start: %w", err)
		}
		start = t
	}
	if end.IsZero() {
		if s.Backtest.End == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("backtest end not set")
		}
		t, err := time.Parse(time.DateOnly, s.Backtest.End)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("parse backtest.end: %w", err)
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest window end %s before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return start, end, nil
}

// Orchestrator assembles the per-date pipeline. A nil sector lookup classifies
// every instrument as unclassified.
func (s *Spec) Orchestrator(sectors contracts.SectorLookup, log *logger.Logger) *brain.Orchestrator {
	return brain.NewOrchestrator(
		s.Guard(),
		s2_signals.NewScorer(s.ScorerConfig(), log),
		selection.NewRanker(log),
		portfolio.NewConstructor(s.Constraints(), sectors, log),
		log,
	)
}

// Engine assembles the backtest engine over the strategy's pipeline
func (s *Spec) Engine(sectors contracts.SectorLookup, log *logger.Logger) *backtest.Engine {
	return backtest.NewEngine(s.Orchestrator(sectors, log), s.Costs(), log)
}

// BacktestConfig returns the engine configuration for the window (zero from/to use the spec dates)
func (s *Spec) BacktestConfig(from, to time.Time) (backtest.Config, error) {
	start, end, err := s.Window(from, to)
	if err != nil {
		return backtest.Config{}, err
	}
	hash, err := Hash(s)
	if err != nil {
		return backtest.Config{}, err
	}
	return backtest.Config{
		Strategy:   s.Name,
		ConfigHash: hash,
		StartDate:  start,
		EndDate:    end,
		Frequency:  s.Frequency(),
		Capital:    valueOr(s.Backtest.Capital, backtest.DefaultCapital),
	}, nil
}

// valueOr dereferences an optional setting. Parse fills every default,
// so the fallback only applies to specs built in code.
func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
