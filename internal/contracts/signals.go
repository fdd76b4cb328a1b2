package contracts

import (
	"sort"
	"time"
)

// FactorType enumerates supported raw factor computations
type FactorType string

const (
	FactorRatio         FactorType = "ratio"
	FactorPriceMomentum FactorType = "price_momentum"
)

// CompositeMethod combines per-factor percentiles into one score
type CompositeMethod string

const (
	CompositeRankSum     CompositeMethod = "rank_sum"     // Σ pct × w
	CompositeRankProduct CompositeMethod = "rank_product" // Π pct^w
)

// NeutralPercentile is assigned when a factor input is missing or undefined
const NeutralPercentile = 50.0

// FactorDefinition describes how to compute and normalize one factor
type FactorDefinition struct {
	ID          string     `json:"id"`
	Type        FactorType `json:"type"`
	Formula     string     `json:"formula,omitempty"`  // ratio: "1/PER", "ROE", ...
	Lookback    int        `json:"lookback,omitempty"` // price_momentum
	Skip        int        `json:"skip,omitempty"`     // price_momentum
	Winsorize   *Bounds    `json:"winsorize,omitempty"`
	Standardize bool       `json:"standardize,omitempty"`
}

// Bounds is a [Lower, Upper] quantile pair
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// DefaultWinsorize is the 1%/99% clip
func DefaultWinsorize() Bounds {
	return Bounds{Lower: 0.01, Upper: 0.99}
}

// InstrumentScore holds per-factor percentiles and the composite for one instrument
type InstrumentScore struct {
	InstrumentID string             `json:"instrument_id"`
	Raw          map[string]float64 `json:"raw,omitempty"` // defined raw values only
	Percentiles  map[string]float64 `json:"percentiles"`
	Composite    float64            `json:"composite"`
}

// FactorScoreTable is the S2 output for one as-of date
// ⭐ SSOT: S2 → S4 점수 테이블 전달
type FactorScoreTable struct {
	Date    time.Time                   `json:"date"`
	Status  Status                      `json:"status"`
	Factors []string                    `json:"factors"`
	Scores  map[string]*InstrumentScore `json:"scores"`
}

// Get returns the score of an instrument
func (t *FactorScoreTable) Get(id string) (*InstrumentScore, bool) {
	if t == nil {
		return nil, false
	}
	s, ok := t.Scores[id]
	return s, ok
}

// Count returns the number of scored instruments
func (t *FactorScoreTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.Scores)
}

// Instruments returns scored instrument ids in ascending order
func (t *FactorScoreTable) Instruments() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, 0, len(t.Scores))
	for id := range t.Scores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
