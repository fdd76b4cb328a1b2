package backtest

import (
	"math"

	"github.com/wonny/aegis/pit/internal/contracts"
)

const (
	// TradingDaysPerYear annualizes daily statistics
	TradingDaysPerYear = 252

	// RiskFreeRate is the annual risk-free rate (연 3%)
	RiskFreeRate = 0.03

	// downsideFloor replaces the downside deviation with fewer than two losing days
	downsideFloor = 1e-8

	// zeroStd treats float noise in a constant series as zero variance
	zeroStd = 1e-12
)

// CalculateMetrics derives the performance tuple of a daily return series.
// Fewer than two observations yield the zero tuple.
func CalculateMetrics(series contracts.ReturnSeries) contracts.PerformanceMetrics {
	if len(series) < 2 {
		return contracts.PerformanceMetrics{}
	}

	returns := series.Values()
	winRate, profitFactor := monthlyStats(series)

	return contracts.PerformanceMetrics{
		CAGR:         cagr(returns),
		Sharpe:       sharpe(returns),
		Sortino:      sortino(returns),
		MDD:          maxDrawdown(returns),
		WinRate:      winRate,
		ProfitFactor: profitFactor,
	}
}

func cagr(returns []float64) float64 {
	total := 1.0
	for _, r := range returns {
		total *= 1 + r
	}
	if total <= 0 {
		return -1
	}
	return math.Pow(total, float64(TradingDaysPerYear)/float64(len(returns))) - 1
}

func sharpe(returns []float64) float64 {
	rf := RiskFreeRate / TradingDaysPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rf
	}
	mean, std := meanStd(excess)
	if std <= zeroStd {
		return 0
	}
	return mean / std * math.Sqrt(TradingDaysPerYear)
}

func sortino(returns []float64) float64 {
	rf := RiskFreeRate / TradingDaysPerYear
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}

	downStd := downsideFloor
	if len(downside) >= 2 {
		if _, std := meanStd(downside); std > downsideFloor {
			downStd = std
		}
	}

	mean, _ := meanStd(returns)
	return (mean - rf) / downStd * math.Sqrt(TradingDaysPerYear)
}

// maxDrawdown tracks the running peak from the initial capital of 1.0
func maxDrawdown(returns []float64) float64 {
	cumulative, peak, mdd := 1.0, 1.0, 0.0
	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := (cumulative - peak) / peak; dd < mdd {
			mdd = dd
		}
	}
	return mdd
}

// monthlyStats aggregates log returns by calendar month
func monthlyStats(series contracts.ReturnSeries) (winRate, profitFactor float64) {
	type month struct {
		year int
		mon  int
	}

	var order []month
	sums := make(map[month]float64)
	for _, p := range series {
		key := month{p.Date.Year(), int(p.Date.Month())}
		if _, ok := sums[key]; !ok {
			order = append(order, key)
		}
		sums[key] += math.Log1p(p.Return)
	}

	wins, gains, losses := 0, 0.0, 0.0
	for _, key := range order {
		switch v := sums[key]; {
		case v > 0:
			wins++
			gains += v
		case v < 0:
			losses += v
		}
	}

	winRate = float64(wins) / float64(len(order))
	if losses == 0 {
		return winRate, math.Inf(1)
	}
	return winRate, gains / math.Abs(losses)
}

// meanStd returns the mean and sample (n-1) standard deviation
func meanStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}

	ss := 0.0
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(ss / float64(len(values)-1))
}
