package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/aegis/pit/internal/contracts"
)

func TestTradeCost(t *testing.T) {
	tests := []struct {
		name     string
		notional float64
		fee      float64
		slip     float64
		want     float64
	}{
		{"standard", 1_000_000, 5, 10, 1500},
		{"zero bps", 1_000_000, 0, 0, 0},
		{"zero notional", 0, 5, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TradeCost(tt.notional, tt.fee, tt.slip), 1e-9)
			assert.InDelta(t, 2*tt.want, RoundTripCost(tt.notional, tt.fee, tt.slip), 1e-9)
		})
	}
}

func TestApplyCostToReturn(t *testing.T) {
	// 0.01 - 0.5 * 2 * 15 / 10000
	assert.InDelta(t, 0.0085, ApplyCostToReturn(0.01, 0.5, 5, 10), 1e-12)
	assert.Equal(t, 0.01, ApplyCostToReturn(0.01, 0, 5, 10))
	assert.Equal(t, 0.01, ApplyCostToReturn(0.01, 1, 0, 0))
}

func TestTurnover(t *testing.T) {
	tests := []struct {
		name  string
		prior contracts.WeightVector
		next  contracts.WeightVector
		want  float64
	}{
		{"from cash", nil, contracts.WeightVector{"A": 0.5, "B": 0.5}, 1.0},
		{"to cash", contracts.WeightVector{"A": 1}, nil, 1.0},
		{"unchanged", contracts.WeightVector{"A": 0.5, "B": 0.5}, contracts.WeightVector{"A": 0.5, "B": 0.5}, 0},
		{"rotation", contracts.WeightVector{"A": 0.6, "B": 0.4}, contracts.WeightVector{"A": 0.1, "B": 0.1, "C": 0.8}, 1.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Turnover(tt.prior, tt.next), 1e-12)
		})
	}
}

func TestLiquidityOK(t *testing.T) {
	// cap = 1000 * 100 * 0.1 = 10000
	assert.True(t, LiquidityOK(10000, 1000, 100, 0.1))
	assert.False(t, LiquidityOK(10000.01, 1000, 100, 0.1))
	assert.True(t, LiquidityOK(10000, 1000, 100, 0), "non-positive pct falls back to default")
	assert.False(t, LiquidityOK(1, 0, 100, 0.1), "no volume means no capacity")
}

func TestModel(t *testing.T) {
	m := NewModel(5, 10, 0)
	assert.Equal(t, DefaultLiquidityMaxPct, m.LiquidityMaxPct)
	assert.Equal(t, 15.0, m.TotalBps())
	assert.InDelta(t, 1500, m.TradeCost(1_000_000), 1e-9)
	assert.InDelta(t, 3000, m.RoundTripCost(1_000_000), 1e-9)
	assert.InDelta(t, 0.003, m.CostOfTurnover(1), 1e-12)
	assert.InDelta(t, 0.01-0.003, m.ApplyCostToReturn(0.01, 1), 1e-12)
	assert.True(t, m.LiquidityOK(5000, 1000, 100))
	assert.InDelta(t, 10000, m.LiquidityCap(1000, 100), 1e-9)
}
