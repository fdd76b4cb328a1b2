package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/cost"
	"github.com/wonny/aegis/pit/pkg/logger"
)

func twoAssetPanel(t *testing.T, days int) *contracts.PricePanel {
	t.Helper()
	dates := businessDays(jan2, days)
	points := append(geometricPrices("A", dates, 0.001), geometricPrices("B", dates, -0.0005)...)
	panel, err := contracts.NewPricePanel(points)
	require.NoError(t, err)
	return panel
}

func TestSimulator_FixedWeights(t *testing.T) {
	sim := NewSimulator(cost.NewModel(3, 5, 0), logger.Nop())
	weights := contracts.WeightVector{"A": 0.5, "B": 0.5}

	report := sim.Run("fixed", twoAssetPanel(t, 300), weights)

	require.Len(t, report.Returns, 300)
	assert.Equal(t, contracts.StatusOK, report.Status)
	// 첫날: 수익 0, 진입 비용 1 × 2 × 8bps
	assert.InDelta(t, -0.0016, report.Returns[0].Return, 1e-12)
	assert.InDelta(t, 0.5*0.001+0.5*-0.0005, report.Returns[1].Return, 1e-12)

	assert.InDelta(t, -0.0016, report.Metrics.MDD, 1e-12)
	assert.Greater(t, report.Metrics.CAGR, 0.0)
	assert.InDelta(t, 0.0016, report.TotalCost, 1e-12)

	require.Len(t, report.Trades, 2)
	for _, tr := range report.Trades {
		assert.Equal(t, contracts.ActionBuy, tr.Action)
		assert.Equal(t, contracts.OrderFilled, tr.Status)
	}
	assert.Equal(t, 2, report.Holdings)
	assert.True(t, report.WalkForward.Split)
}

func TestSimulator_EmptyInputs(t *testing.T) {
	sim := NewSimulator(cost.NewModel(3, 5, 0), logger.Nop())

	report := sim.Run("empty", twoAssetPanel(t, 10), nil)
	assert.Equal(t, contracts.StatusInsufficientData, report.Status)
	assert.Empty(t, report.Returns)

	assert.Empty(t, sim.Replay(NewReturnMatrix(nil), contracts.WeightVector{"A": 1}))
}

func TestReturnMatrix_Gaps(t *testing.T) {
	dates := businessDays(jan2, 4)
	points := []contracts.PricePoint{
		{InstrumentID: "A", Date: dates[0], Close: 100},
		{InstrumentID: "A", Date: dates[1], Close: 110},
		{InstrumentID: "A", Date: dates[2], Close: 121},
		{InstrumentID: "A", Date: dates[3], Close: 121},
		{InstrumentID: "B", Date: dates[0], Close: 50},
		// dates[1] 누락
		{InstrumentID: "B", Date: dates[2], Close: 55},
		{InstrumentID: "B", Date: dates[3], Close: 44},
	}
	panel, err := contracts.NewPricePanel(points)
	require.NoError(t, err)

	m := NewReturnMatrix(panel)
	require.Equal(t, 4, m.Len())

	assert.Equal(t, 0.0, m.Return("A", 0), "first observation")
	assert.InDelta(t, 0.1, m.Return("A", 1), 1e-12)
	assert.Equal(t, 0.0, m.Return("B", 1), "missing row")
	assert.InDelta(t, 0.1, m.Return("B", 2), 1e-12, "compares to last known close")
	assert.InDelta(t, -0.2, m.Return("B", 3), 1e-12)
	assert.Equal(t, 0.0, m.Return("Z", 1), "unknown instrument")
	assert.Equal(t, 0.0, m.Return("A", 9), "out of range")

	assert.Equal(t, 1, m.IndexAfter(dates[0]))
	assert.Equal(t, 0, m.IndexAfter(dates[0].AddDate(0, 0, -1)))
	assert.Equal(t, 4, m.IndexAfter(dates[3]))
}

func TestReturnMatrix_Drift(t *testing.T) {
	dates := businessDays(jan2, 2)
	panel, err := contracts.NewPricePanel([]contracts.PricePoint{
		{InstrumentID: "A", Date: dates[0], Close: 100},
		{InstrumentID: "A", Date: dates[1], Close: 120},
		{InstrumentID: "B", Date: dates[0], Close: 100},
		{InstrumentID: "B", Date: dates[1], Close: 100},
	})
	require.NoError(t, err)
	m := NewReturnMatrix(panel)

	drifted := m.Drift(contracts.WeightVector{"A": 0.5, "B": 0.5}, 1)
	assert.InDelta(t, 0.6/1.1, drifted["A"], 1e-12)
	assert.InDelta(t, 0.5/1.1, drifted["B"], 1e-12)
	assert.InDelta(t, 1.0, drifted.Sum(), 1e-12)

	// 현금 비중은 수익 0
	partial := m.Drift(contracts.WeightVector{"A": 0.5}, 1)
	assert.InDelta(t, 0.6/1.1, partial["A"], 1e-12)
}
