// Package s2_signals computes cross-sectional factor scores.
package s2_signals

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// ScorerConfig describes the factors and how they combine
type ScorerConfig struct {
	Factors []contracts.FactorDefinition
	Weights map[string]float64
	Method  contracts.CompositeMethod
}

// Scorer turns guarded panels into a FactorScoreTable
// ⭐ SSOT: 팩터 점수 계산은 여기서만
type Scorer struct {
	config ScorerConfig
	logger *logger.Logger
}

// NewScorer creates a new factor scorer
func NewScorer(cfg ScorerConfig, log *logger.Logger) *Scorer {
	if cfg.Method == "" {
		cfg.Method = contracts.CompositeRankSum
	}
	return &Scorer{
		config: cfg,
		logger: log,
	}
}

// Config returns the scorer configuration
func (s *Scorer) Config() ScorerConfig {
	return s.config
}

// Score computes per-factor percentiles and the composite for every instrument
// in the union of the price and fundamental panels.
// Inputs must already be filtered to what is observable on asOf.
func (s *Scorer) Score(ctx context.Context, asOf time.Time, prices *contracts.PricePanel, fundamentals []contracts.FundamentalRecord) (*contracts.FactorScoreTable, error) {
	table := &contracts.FactorScoreTable{
		Date:    contracts.Day(asOf),
		Status:  contracts.StatusOK,
		Factors: s.factorIDs(),
		Scores:  make(map[string]*contracts.InstrumentScore),
	}

	universe := Universe(prices, fundamentals)
	if len(universe) < contracts.MinInvestable {
		s.logger.WithFields(map[string]interface{}{
			"stage":       contracts.StageSignals.String(),
			"date":        table.Date.Format("2006-01-02"),
			"instruments": len(universe),
		}).Warn("Insufficient instruments to score")
		table.Status = contracts.StatusInsufficientData
		return table, nil
	}

	latest := latestReports(fundamentals)

	for _, id := range universe {
		table.Scores[id] = &contracts.InstrumentScore{
			InstrumentID: id,
			Raw:          make(map[string]float64),
			Percentiles:  make(map[string]float64),
		}
	}

	for _, f := range s.config.Factors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw := make([]float64, len(universe))
		for i, id := range universe {
			raw[i] = s.rawValue(f, id, prices, latest)
		}

		pct := Normalize(f, raw)
		defined := 0
		for i, id := range universe {
			score := table.Scores[id]
			if !math.IsNaN(raw[i]) {
				score.Raw[f.ID] = raw[i]
				defined++
			}
			if math.IsNaN(pct[i]) {
				score.Percentiles[f.ID] = contracts.NeutralPercentile
			} else {
				score.Percentiles[f.ID] = pct[i]
			}
		}

		s.logger.WithFields(map[string]interface{}{
			"factor":  f.ID,
			"type":    string(f.Type),
			"defined": defined,
			"total":   len(universe),
		}).Debug("Calculated factor")
	}

	for _, id := range universe {
		score := table.Scores[id]
		score.Composite = Composite(score.Percentiles, s.config.Weights, s.config.Method)
	}

	s.logger.WithFields(map[string]interface{}{
		"stage":       contracts.StageSignals.String(),
		"date":        table.Date.Format("2006-01-02"),
		"instruments": len(universe),
		"factors":     len(s.config.Factors),
	}).Info("Scored universe")

	return table, nil
}

func (s *Scorer) rawValue(f contracts.FactorDefinition, id string, prices *contracts.PricePanel, latest map[string]contracts.FundamentalRecord) float64 {
	switch f.Type {
	case contracts.FactorRatio:
		record, ok := latest[id]
		if !ok {
			return math.NaN()
		}
		formula := f.Formula
		if formula == "" {
			formula = f.ID
		}
		return RatioValue(formula, record)
	case contracts.FactorPriceMomentum:
		return Momentum(prices.Series(id), f.Lookback, f.Skip)
	default:
		return math.NaN()
	}
}

func (s *Scorer) factorIDs() []string {
	ids := make([]string, 0, len(s.config.Factors))
	for _, f := range s.config.Factors {
		ids = append(ids, f.ID)
	}
	return ids
}

// Normalize applies winsorize and standardize when configured, then the percentile rank
func Normalize(f contracts.FactorDefinition, raw []float64) []float64 {
	values := raw
	if f.Winsorize != nil {
		values = Winsorize(values, f.Winsorize.Lower, f.Winsorize.Upper)
	}
	if f.Standardize {
		values = Standardize(values)
	}
	return PercentileRank(values)
}

// Composite combines percentiles with non-zero weights.
// Factors are visited in sorted order.
func Composite(percentiles, weights map[string]float64, method contracts.CompositeMethod) float64 {
	ids := make([]string, 0, len(weights))
	for id, w := range weights {
		if w != 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if method == contracts.CompositeRankProduct {
		product := 1.0
		for _, id := range ids {
			pct, ok := percentiles[id]
			if !ok {
				pct = contracts.NeutralPercentile
			}
			product *= math.Pow(pct, weights[id])
		}
		return product
	}

	sum := 0.0
	for _, id := range ids {
		pct, ok := percentiles[id]
		if !ok {
			pct = contracts.NeutralPercentile
		}
		sum += pct * weights[id]
	}
	return sum
}

// Universe returns the sorted union of instruments in both panels
func Universe(prices *contracts.PricePanel, fundamentals []contracts.FundamentalRecord) []string {
	seen := make(map[string]struct{})
	for _, id := range prices.Instruments() {
		seen[id] = struct{}{}
	}
	for _, id := range contracts.FundamentalInstruments(fundamentals) {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// latestReports keeps the most recent report per instrument
func latestReports(records []contracts.FundamentalRecord) map[string]contracts.FundamentalRecord {
	out := make(map[string]contracts.FundamentalRecord, len(records))
	for _, r := range records {
		cur, ok := out[r.InstrumentID]
		if !ok || !r.ReportDate.Before(cur.ReportDate) {
			out[r.InstrumentID] = r
		}
	}
	return out
}

// Volatilities returns the trailing volatility of each instrument with enough history
func Volatilities(prices *contracts.PricePanel, ids []string, lookback int) map[string]float64 {
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		if v := Volatility(prices.Series(id), lookback); !math.IsNaN(v) {
			out[id] = v
		}
	}
	return out
}
