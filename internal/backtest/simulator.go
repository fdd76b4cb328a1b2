package backtest

import (
	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/cost"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// Simulator replays a fixed weight vector over a return matrix
// ⭐ SSOT: 단일 비중 백테스트 재생은 여기서만
type Simulator struct {
	model  cost.Model
	logger *logger.Logger
}

// NewSimulator creates a new simulator
func NewSimulator(model cost.Model, logger *logger.Logger) *Simulator {
	return &Simulator{
		model:  model,
		logger: logger,
	}
}

// Model returns the cost model
func (s *Simulator) Model() cost.Model {
	return s.model
}

// Replay returns the daily portfolio return of weights over every date of the matrix.
// The first day pays the round-trip cost of entering from cash (turnover = Σw).
func (s *Simulator) Replay(matrix *ReturnMatrix, weights contracts.WeightVector) contracts.ReturnSeries {
	if matrix.Len() == 0 || len(weights) == 0 {
		return contracts.ReturnSeries{}
	}

	series := make(contracts.ReturnSeries, matrix.Len())
	entry := weights.Sum()
	for i, d := range matrix.Dates() {
		r := matrix.PortfolioReturn(weights, i)
		if i == 0 {
			r = s.model.ApplyCostToReturn(r, entry)
		}
		series[i] = contracts.ReturnPoint{Date: d, Return: r}
	}

	s.logger.WithFields(map[string]interface{}{
		"stage":     contracts.StageSimulation.String(),
		"days":      len(series),
		"holdings":  len(weights),
		"entry_bps": s.model.CostOfTurnover(entry) * 1e4,
	}).Debug("Replayed weights")

	return series
}

// Run replays a fixed weight vector over the whole panel (single rebalance)
func (s *Simulator) Run(strategy string, panel *contracts.PricePanel, weights contracts.WeightVector) *Report {
	matrix := NewReturnMatrix(panel)
	series := s.Replay(matrix, weights)
	trades := EntryTrades(matrix, weights)

	entry := contracts.RebalanceEvent{
		Weights:  weights,
		Turnover: weights.Sum(),
		Cost:     s.model.CostOfTurnover(weights.Sum()),
		Status:   contracts.StatusOK,
	}
	if matrix.Len() > 0 {
		entry.Date = matrix.Dates()[0]
	}

	return NewReport(strategy, series, []contracts.RebalanceEvent{entry}, trades, weights, s.model)
}

// EntryTrades logs one BUY per instrument entering the portfolio
func EntryTrades(matrix *ReturnMatrix, weights contracts.WeightVector) []contracts.TradeLogEntry {
	if matrix.Len() == 0 {
		return nil
	}
	date := matrix.Dates()[0]
	trades := make([]contracts.TradeLogEntry, 0, len(weights))
	for _, id := range weights.Instruments() {
		trades = append(trades, contracts.TradeLogEntry{
			Date:         date,
			InstrumentID: id,
			Action:       contracts.ActionBuy,
			TargetWeight: weights[id],
			FilledWeight: weights[id],
			Status:       contracts.OrderFilled,
		})
	}
	return trades
}
