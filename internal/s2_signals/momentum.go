package s2_signals

import (
	"math"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// DefaultMomentumLookback is used when a momentum factor omits lookback
const DefaultMomentumLookback = 60

// Momentum returns (p[t-skip] - p[t-skip-lookback]) / p[t-skip-lookback]
// where t is the last index of the series.
// Returns NaN with fewer than lookback+skip+1 points or a zero start price.
func Momentum(series []contracts.PricePoint, lookback, skip int) float64 {
	if lookback <= 0 {
		lookback = DefaultMomentumLookback
	}
	if skip < 0 {
		skip = 0
	}
	if len(series) < lookback+skip+1 {
		return math.NaN()
	}

	t := len(series) - 1
	end := series[t-skip].Close
	start := series[t-skip-lookback].Close
	if start == 0 {
		return math.NaN()
	}
	return (end - start) / start
}

// Volatility returns the sample std of the last lookback daily returns.
// NaN when fewer than two returns are available.
func Volatility(series []contracts.PricePoint, lookback int) float64 {
	if lookback <= 0 {
		lookback = DefaultMomentumLookback
	}
	if len(series) < 3 {
		return math.NaN()
	}

	from := len(series) - lookback - 1
	if from < 0 {
		from = 0
	}

	returns := make([]float64, 0, lookback)
	for i := from + 1; i < len(series); i++ {
		prev := series[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, series[i].Close/prev-1)
	}
	if len(returns) < 2 {
		return math.NaN()
	}

	_, std := meanStd(returns)
	return std
}
