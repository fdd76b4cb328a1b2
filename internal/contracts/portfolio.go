package contracts

import (
	"math"
	"sort"
	"time"
)

// MinWeight is the dust threshold: weights at or below it are pruned
const MinWeight = 0.001

// WeightVector maps instrument id to a non-negative portfolio weight
// ⭐ SSOT: S5 → S6 목표 비중 전달
type WeightVector map[string]float64

// Instruments returns ids in ascending order
// 합계 등 부동소수 연산은 항상 정렬 순서로 수행 (재현성)
func (w WeightVector) Instruments() []string {
	ids := make([]string, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sum returns the total weight
func (w WeightVector) Sum() float64 {
	total := 0.0
	for _, id := range w.Instruments() {
		total += w[id]
	}
	return total
}

// Clone returns an independent copy
func (w WeightVector) Clone() WeightVector {
	out := make(WeightVector, len(w))
	for id, v := range w {
		out[id] = v
	}
	return out
}

// Get returns the weight of id, zero when absent
func (w WeightVector) Get(id string) float64 {
	return w[id]
}

// IsNormalized reports whether the vector is empty or sums into (0.999, 1.001]
func (w WeightVector) IsNormalized() bool {
	if len(w) == 0 {
		return true
	}
	s := w.Sum()
	return s > 0.999 && s <= 1.001
}

// Union returns the sorted ids present in either vector
func Union(a, b WeightVector) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for id := range a {
		seen[id] = struct{}{}
	}
	for id := range b {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Action represents the trade direction for an instrument at a rebalance
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// OrderStatus is the liquidity outcome of an order
type OrderStatus string

const (
	OrderFilled   OrderStatus = "filled"
	OrderScaled   OrderStatus = "scaled"
	OrderRejected OrderStatus = "rejected"
)

// TradeLogEntry is one row of the trade log
type TradeLogEntry struct {
	Date         time.Time   `json:"date"`
	InstrumentID string      `json:"instrument_id"`
	Action       Action      `json:"action"`
	PriorWeight  float64     `json:"prior_weight"`
	TargetWeight float64     `json:"target_weight"`
	FilledWeight float64     `json:"filled_weight"`
	Notional     float64     `json:"notional"`
	Status       OrderStatus `json:"status"`
}

// ActionFor classifies a weight change
func ActionFor(prior, target float64) Action {
	switch d := target - prior; {
	case math.Abs(d) < 1e-12:
		return ActionHold
	case d > 0:
		return ActionBuy
	default:
		return ActionSell
	}
}

// TargetPortfolio is the S5 output with its realized turnover
type TargetPortfolio struct {
	Date     time.Time    `json:"date"`
	Status   Status       `json:"status"`
	Weights  WeightVector `json:"weights"`
	Prior    WeightVector `json:"prior,omitempty"`
	Turnover float64      `json:"turnover"`
}

// Count returns the number of positions
func (tp *TargetPortfolio) Count() int {
	return len(tp.Weights)
}
