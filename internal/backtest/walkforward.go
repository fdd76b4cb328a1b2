package backtest

import (
	"math"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
)

const (
	// SplitRatio is the in-sample share of a walk-forward split
	SplitRatio = 0.7

	// MinSplitObservations is the series length above which the series is split
	MinSplitObservations = 20

	// OverfitSharpeRatio flags OOS/IS Sharpe below this ratio
	OverfitSharpeRatio = 0.5

	// OverfitWarning is emitted when out-of-sample Sharpe collapses
	OverfitWarning = "in-sample/out-of-sample Sharpe gap above 50%: possible overfitting"
)

// Verdict is the walk-forward classification
type Verdict string

const (
	VerdictOverfit Verdict = "OVERFIT"
	VerdictValid   Verdict = "VALID"
	VerdictInvalid Verdict = "INVALID"
)

// Window is one evaluation slice of a return series
type Window struct {
	Start       time.Time                    `json:"start"`
	End         time.Time                    `json:"end"`
	Days        int                          `json:"days"`
	TotalReturn float64                      `json:"total_return"`
	Metrics     contracts.PerformanceMetrics `json:"metrics"`
}

// WalkForward is the in-sample/out-of-sample validation block
type WalkForward struct {
	InSample    Window  `json:"in_sample"`
	OutOfSample Window  `json:"out_of_sample"`
	Split       bool    `json:"split"`
	Warning     string  `json:"warning,omitempty"`
	Degradation float64 `json:"degradation"` // IS 대비 OOS 연환산 수익 저하율 (%)
	Verdict     Verdict `json:"verdict"`
}

// Split partitions a series chronologically into in-sample (first int(0.7n))
// and out-of-sample. Series of 20 or fewer points are not split.
func Split(series contracts.ReturnSeries) (inSample, outOfSample contracts.ReturnSeries, split bool) {
	if len(series) <= MinSplitObservations {
		return series, series, false
	}
	idx := int(float64(len(series)) * SplitRatio)
	return series[:idx], series[idx:], true
}

// NewWindow computes the metrics of one slice
func NewWindow(series contracts.ReturnSeries) Window {
	return Window{
		Start:       series.Start(),
		End:         series.End(),
		Days:        len(series),
		TotalReturn: series.TotalReturn(),
		Metrics:     CalculateMetrics(series),
	}
}

// Validate runs the walk-forward split and overfitting checks
func Validate(series contracts.ReturnSeries) WalkForward {
	is, oos, split := Split(series)
	wf := WalkForward{
		InSample:    NewWindow(is),
		OutOfSample: NewWindow(oos),
		Split:       split,
	}

	isSharpe := wf.InSample.Metrics.Sharpe
	oosSharpe := wf.OutOfSample.Metrics.Sharpe
	if isSharpe > 0 && oosSharpe/math.Max(isSharpe, 0.01) < OverfitSharpeRatio {
		wf.Warning = OverfitWarning
	}

	// 길이가 다른 구간이므로 연환산 수익률로 비교
	isCAGR, oosCAGR := wf.InSample.Metrics.CAGR, wf.OutOfSample.Metrics.CAGR
	if isCAGR != 0 {
		wf.Degradation = (isCAGR - oosCAGR) / math.Abs(isCAGR) * 100
	}

	switch {
	case isCAGR > 0 && wf.Degradation > 50:
		wf.Verdict = VerdictOverfit
	case wf.OutOfSample.TotalReturn > 0 && oosSharpe > 0:
		wf.Verdict = VerdictValid
	default:
		wf.Verdict = VerdictInvalid
	}

	return wf
}
