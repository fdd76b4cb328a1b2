package contracts

import (
	"encoding/json"
	"math"
	"time"
)

// ReturnPoint is one day of portfolio return
type ReturnPoint struct {
	Date   time.Time `json:"date"`
	Return float64   `json:"return"`
}

// ReturnSeries is a contiguous, date-ordered daily return series
type ReturnSeries []ReturnPoint

// Values returns the raw returns
func (s ReturnSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Return
	}
	return out
}

// Start returns the first date, zero when empty
func (s ReturnSeries) Start() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Date
}

// End returns the last date, zero when empty
func (s ReturnSeries) End() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

// TotalReturn returns the compounded return of the series
func (s ReturnSeries) TotalReturn() float64 {
	total := 1.0
	for _, p := range s {
		total *= 1 + p.Return
	}
	return total - 1
}

// RebalanceEvent records one rebalance of a run
type RebalanceEvent struct {
	Date     time.Time    `json:"date"`
	Weights  WeightVector `json:"weights"`
	Prior    WeightVector `json:"prior"`
	Turnover float64      `json:"turnover"`
	Cost     float64      `json:"cost"`
	Status   Status       `json:"status"`
}

// PerformanceMetrics is the derived metric tuple of a return window
type PerformanceMetrics struct {
	CAGR         float64 `json:"cagr"`
	Sharpe       float64 `json:"sharpe"`
	Sortino      float64 `json:"sortino"`
	MDD          float64 `json:"mdd"`
	WinRate      float64 `json:"win_rate"`
	ProfitFactor float64 `json:"profit_factor"`
}

type metricsJSON struct {
	CAGR         float64     `json:"cagr"`
	Sharpe       float64     `json:"sharpe"`
	Sortino      float64     `json:"sortino"`
	MDD          float64     `json:"mdd"`
	WinRate      float64     `json:"win_rate"`
	ProfitFactor interface{} `json:"profit_factor"`
}

// MarshalJSON encodes an infinite profit factor as "inf"
func (m PerformanceMetrics) MarshalJSON() ([]byte, error) {
	out := metricsJSON{
		CAGR:         m.CAGR,
		Sharpe:       m.Sharpe,
		Sortino:      m.Sortino,
		MDD:          m.MDD,
		WinRate:      m.WinRate,
		ProfitFactor: m.ProfitFactor,
	}
	if math.IsInf(m.ProfitFactor, 1) {
		out.ProfitFactor = "inf"
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the "inf" encoding
func (m *PerformanceMetrics) UnmarshalJSON(data []byte) error {
	var in metricsJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = PerformanceMetrics{
		CAGR:    in.CAGR,
		Sharpe:  in.Sharpe,
		Sortino: in.Sortino,
		MDD:     in.MDD,
		WinRate: in.WinRate,
	}
	switch v := in.ProfitFactor.(type) {
	case float64:
		m.ProfitFactor = v
	case string:
		if v == "inf" {
			m.ProfitFactor = math.Inf(1)
		}
	}
	return nil
}
