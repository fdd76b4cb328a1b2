// Package cost implements the transaction cost and liquidity model.
// Fees and slippage are expressed in basis points of traded notional.
package cost

import (
	"math"

	"github.com/wonny/aegis/pit/internal/contracts"
)

const (
	bpsDenominator = 10000.0

	// DefaultLiquidityMaxPct caps an order at 10% of daily traded value
	DefaultLiquidityMaxPct = 0.1
)

// TradeCost returns the one-way cost of trading notional
func TradeCost(notional, feeBps, slippageBps float64) float64 {
	return notional * (feeBps + slippageBps) / bpsDenominator
}

// RoundTripCost returns the cost of buying and later selling notional
func RoundTripCost(notional, feeBps, slippageBps float64) float64 {
	return 2 * TradeCost(notional, feeBps, slippageBps)
}

// ApplyCostToReturn deducts round-trip cost for the traded fraction of the book
func ApplyCostToReturn(gross, turnover, feeBps, slippageBps float64) float64 {
	return gross - turnover*2*(feeBps+slippageBps)/bpsDenominator
}

// Turnover returns Σ|next - prior| over the union of instruments.
// Entering a name from cash counts its full weight.
func Turnover(prior, next contracts.WeightVector) float64 {
	total := 0.0
	for _, id := range contracts.Union(prior, next) {
		total += math.Abs(next[id] - prior[id])
	}
	return total
}

// LiquidityOK reports whether an order fits within maxPct of daily traded value.
// maxPct <= 0 uses DefaultLiquidityMaxPct.
func LiquidityOK(orderNotional, dailyVolume, price, maxPct float64) bool {
	return orderNotional <= LiquidityCap(dailyVolume, price, maxPct)
}

// LiquidityCap returns the largest order notional LiquidityOK accepts
func LiquidityCap(dailyVolume, price, maxPct float64) float64 {
	if maxPct <= 0 {
		maxPct = DefaultLiquidityMaxPct
	}
	return dailyVolume * price * maxPct
}

// Model bundles the cost parameters of a strategy
type Model struct {
	FeeBps          float64 `json:"fee_bps"`
	SlippageBps     float64 `json:"slippage_bps"`
	LiquidityMaxPct float64 `json:"liquidity_max_pct"`
}

// NewModel creates a cost model (liquidityMaxPct <= 0 uses the default)
func NewModel(feeBps, slippageBps, liquidityMaxPct float64) Model {
	if liquidityMaxPct <= 0 {
		liquidityMaxPct = DefaultLiquidityMaxPct
	}
	return Model{FeeBps: feeBps, SlippageBps: slippageBps, LiquidityMaxPct: liquidityMaxPct}
}

// TotalBps returns fee + slippage
func (m Model) TotalBps() float64 {
	return m.FeeBps + m.SlippageBps
}

// TradeCost returns the one-way cost of notional
func (m Model) TradeCost(notional float64) float64 {
	return TradeCost(notional, m.FeeBps, m.SlippageBps)
}

// RoundTripCost returns the two-way cost of notional
func (m Model) RoundTripCost(notional float64) float64 {
	return RoundTripCost(notional, m.FeeBps, m.SlippageBps)
}

// ApplyCostToReturn deducts the round-trip cost of turnover from gross
func (m Model) ApplyCostToReturn(gross, turnover float64) float64 {
	return ApplyCostToReturn(gross, turnover, m.FeeBps, m.SlippageBps)
}

// CostOfTurnover returns the return drag charged for turnover
func (m Model) CostOfTurnover(turnover float64) float64 {
	return turnover * 2 * m.TotalBps() / bpsDenominator
}

// LiquidityOK checks an order against the model's participation cap
func (m Model) LiquidityOK(orderNotional, dailyVolume, price float64) bool {
	return LiquidityOK(orderNotional, dailyVolume, price, m.LiquidityMaxPct)
}

// LiquidityCap returns the model's max order notional
func (m Model) LiquidityCap(dailyVolume, price float64) float64 {
	return LiquidityCap(dailyVolume, price, m.LiquidityMaxPct)
}
