package portfolio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/cost"
)

func TestSizeOrders(t *testing.T) {
	panel, err := contracts.NewPricePanel([]contracts.PricePoint{
		{InstrumentID: "A", Date: rebalanceDate.AddDate(0, 0, -1), Close: 100, Volume: 1000},
		{InstrumentID: "B", Date: rebalanceDate.AddDate(0, 0, -1), Close: 100, Volume: 1e9},
		{InstrumentID: "E", Date: rebalanceDate.AddDate(0, 0, -1), Close: 100, Volume: 0},
	})
	require.NoError(t, err)

	prior := contracts.WeightVector{"D": 0.2, "E": 0.1, "F": 0.7}
	target := contracts.WeightVector{"A": 0.3, "B": 0.3, "C": 0.3, "F": 0.1}
	model := cost.NewModel(5, 10, 0.1)

	exec := SizeOrders(rebalanceDate, prior, target, panel, 1_000_000, model)

	byID := make(map[string]contracts.TradeLogEntry)
	for _, tr := range exec.Trades {
		byID[tr.InstrumentID] = tr
	}

	// A: 300,000 주문 vs 한도 10,000
	assert.Equal(t, contracts.OrderScaled, byID["A"].Status)
	assert.InDelta(t, 0.01, byID["A"].FilledWeight, 1e-12)
	assert.InDelta(t, 10000, byID["A"].Notional, 1e-6)

	assert.Equal(t, contracts.OrderFilled, byID["B"].Status)
	assert.Equal(t, contracts.OrderRejected, byID["C"].Status, "buy without an observable bar")
	assert.Equal(t, contracts.OrderFilled, byID["D"].Status, "sell without a bar still fills")
	assert.Equal(t, contracts.OrderRejected, byID["E"].Status, "no volume no capacity")
	assert.Equal(t, contracts.ActionSell, byID["F"].Action)

	assert.InDelta(t, 0.01, exec.Weights["A"], 1e-12)
	assert.InDelta(t, 0.3, exec.Weights["B"], 1e-12)
	assert.NotContains(t, exec.Weights, "C")
	assert.NotContains(t, exec.Weights, "D")
	assert.InDelta(t, 0.1, exec.Weights["E"], 1e-12)
	assert.LessOrEqual(t, exec.Weights.Sum(), 1.0+1e-12)
}

func TestSizeOrders_UnknownVolumeSkipsLiquidity(t *testing.T) {
	panel, err := contracts.NewPricePanel([]contracts.PricePoint{
		{InstrumentID: "A", Date: rebalanceDate.AddDate(0, 0, -1), Close: 100, Volume: math.NaN()},
		{InstrumentID: "B", Date: rebalanceDate.AddDate(0, 0, -1), Close: 100, Volume: 0},
	})
	require.NoError(t, err)

	target := contracts.WeightVector{"A": 0.5, "B": 0.5}
	exec := SizeOrders(rebalanceDate, nil, target, panel, 1_000_000, cost.NewModel(5, 10, 0.1))

	require.Len(t, exec.Trades, 2)
	assert.Equal(t, contracts.OrderFilled, exec.Trades[0].Status, "unknown volume is not zero volume")
	assert.Equal(t, contracts.OrderRejected, exec.Trades[1].Status)
	assert.InDelta(t, 0.5, exec.Weights["A"], 1e-12)
	assert.NotContains(t, exec.Weights, "B")
	assert.Equal(t, 1, exec.Unchecked)
}

func TestSizeOrders_NoCapitalFillsEverything(t *testing.T) {
	prior := contracts.WeightVector{"A": 1}
	target := contracts.WeightVector{"A": 0.5, "B": 0.5}

	exec := SizeOrders(rebalanceDate, prior, target, nil, 0, cost.NewModel(0, 0, 0))
	assert.Equal(t, target, exec.Weights)
	require.Len(t, exec.Trades, 2)
	for _, tr := range exec.Trades {
		assert.Equal(t, contracts.OrderFilled, tr.Status)
	}
}

func TestSizeOrders_HoldIsNotLogged(t *testing.T) {
	w := contracts.WeightVector{"A": 0.5, "B": 0.5}
	exec := SizeOrders(rebalanceDate, w, w, nil, 1e6, cost.NewModel(0, 0, 0))
	assert.Empty(t, exec.Trades)
	assert.Equal(t, w, exec.Weights)
}
