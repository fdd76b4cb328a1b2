package backtest

import (
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/cost"
)

// Period is the date range covered by a return series
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Report is the S7 run report
// ⭐ SSOT: 백테스트 결과 포맷
type Report struct {
	Strategy     string                       `json:"strategy"`
	ConfigHash   string                       `json:"config_hash,omitempty"`
	Status       contracts.Status             `json:"status"`
	Period       Period                       `json:"period"`
	Metrics      contracts.PerformanceMetrics `json:"metrics"`
	WalkForward  WalkForward                  `json:"walk_forward"`
	Holdings     int                          `json:"holdings"`
	FinalWeights contracts.WeightVector       `json:"final_weights"`
	CostModel    cost.Model                   `json:"cost_model"`
	TotalCost    float64                      `json:"total_cost"` // 누적 비용 (수익률 차감분 합)
	Rebalances   []contracts.RebalanceEvent   `json:"rebalances"`
	Trades       []contracts.TradeLogEntry    `json:"trades"`
	Returns      contracts.ReturnSeries       `json:"returns,omitempty"`
}

// NewReport computes metrics and walk-forward validation for a finished run
func NewReport(strategy string, series contracts.ReturnSeries, events []contracts.RebalanceEvent, trades []contracts.TradeLogEntry, final contracts.WeightVector, model cost.Model) *Report {
	report := &Report{
		Strategy:     strategy,
		Status:       contracts.StatusOK,
		Period:       Period{Start: series.Start(), End: series.End()},
		Metrics:      CalculateMetrics(series),
		WalkForward:  Validate(series),
		Holdings:     len(final),
		FinalWeights: final,
		CostModel:    model,
		Rebalances:   events,
		Trades:       trades,
		Returns:      series,
	}
	if len(series) == 0 {
		report.Status = contracts.StatusInsufficientData
	}
	for _, e := range events {
		report.TotalCost += e.Cost
	}
	return report
}

// HasWarning reports whether the walk-forward check flagged overfitting
func (r *Report) HasWarning() bool {
	return r.WalkForward.Warning != ""
}
