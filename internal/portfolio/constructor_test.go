package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/cost"
	"github.com/wonny/aegis/pit/pkg/logger"
)

var rebalanceDate = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func rankedOf(ids ...string) []contracts.RankedInstrument {
	out := make([]contracts.RankedInstrument, len(ids))
	for i, id := range ids {
		out[i] = contracts.RankedInstrument{InstrumentID: id, Rank: i + 1, Composite: float64(100 - i), Scored: true}
	}
	return out
}

func construct(t *testing.T, c Constraints, sectors contracts.SectorLookup, req Request) *contracts.TargetPortfolio {
	t.Helper()
	req.Date = rebalanceDate
	tp, err := NewConstructor(c, sectors, logger.Nop()).Construct(context.Background(), req)
	require.NoError(t, err)
	return tp
}

func TestConstruct_EqualWeightTopN(t *testing.T) {
	c := DefaultConstraints()
	c.N = 3

	tp := construct(t, c, nil, Request{Ranked: rankedOf("A", "B", "C", "D", "E")})

	assert.Equal(t, contracts.StatusOK, tp.Status)
	assert.Equal(t, []string{"A", "B", "C"}, tp.Weights.Instruments())
	for _, w := range tp.Weights {
		assert.InDelta(t, 1.0/3, w, 1e-6)
	}
	assert.True(t, tp.Weights.IsNormalized())
	assert.InDelta(t, 1.0, tp.Turnover, 1e-6, "entering from cash counts full notional")
}

func TestConstruct_SectorCapRedistributes(t *testing.T) {
	c := DefaultConstraints()
	c.N = 4
	c.SectorCap = 0.5
	sectors := StaticSectors{"A": "semi", "B": "semi", "C": "semi", "D": "auto"}

	tp := construct(t, c, sectors, Request{Ranked: rankedOf("A", "B", "C", "D")})

	semi := tp.Weights["A"] + tp.Weights["B"] + tp.Weights["C"]
	assert.InDelta(t, 0.5, semi, 1e-5)
	assert.InDelta(t, 0.5, tp.Weights["D"], 1e-6, "lost weight goes to the sector with room")
	assert.InDelta(t, tp.Weights["A"], tp.Weights["C"], 1e-9)
	assert.True(t, tp.Weights.IsNormalized())
}

func TestConstruct_NameCapWithRoom(t *testing.T) {
	c := DefaultConstraints()
	c.N = 3
	c.MaxWeight = 0.5
	c.SectorCap = 0.6
	sectors := StaticSectors{"A": "x", "B": "x", "C": "y"}

	tp := construct(t, c, sectors, Request{Ranked: rankedOf("A", "B", "C")})

	// x: 2/3 → 0.6, y 1/3 → 0.4 (room to 0.5 but sector y cap 0.6)
	assert.InDelta(t, 0.3, tp.Weights["A"], 1e-6)
	assert.InDelta(t, 0.3, tp.Weights["B"], 1e-6)
	assert.InDelta(t, 0.4, tp.Weights["C"], 1e-6)
	for _, w := range tp.Weights {
		assert.LessOrEqual(t, w, c.MaxWeight+1e-6)
	}
}

func TestConstruct_InfeasibleCapsScaleProportionally(t *testing.T) {
	c := DefaultConstraints()
	c.N = 2
	c.MaxWeight = 0.3
	assert.False(t, c.Feasible(2, 1))

	tp := construct(t, c, nil, Request{Ranked: rankedOf("A", "B")})
	assert.InDelta(t, 0.5, tp.Weights["A"], 1e-6)
	assert.InDelta(t, 0.5, tp.Weights["B"], 1e-6)
}

func TestConstruct_RiskParity(t *testing.T) {
	c := DefaultConstraints()
	c.N = 3
	c.Method = MethodRiskParity

	tp := construct(t, c, nil, Request{
		Ranked:     rankedOf("A", "B"),
		Volatility: map[string]float64{"A": 0.01, "B": 0.02},
	})
	assert.InDelta(t, 2.0/3, tp.Weights["A"], 1e-6)
	assert.InDelta(t, 1.0/3, tp.Weights["B"], 1e-6)

	// 변동성 없으면 동일 비중
	tp = construct(t, c, nil, Request{Ranked: rankedOf("A", "B")})
	assert.InDelta(t, 0.5, tp.Weights["A"], 1e-6)
}

func TestConstruct_TurnoverLimited(t *testing.T) {
	c := DefaultConstraints()
	c.N = 2
	c.MaxTurnover = 0.5
	prior := contracts.WeightVector{"A": 0.5, "B": 0.5}

	tp := construct(t, c, nil, Request{Ranked: rankedOf("C", "D"), Prior: prior})

	assert.InDelta(t, 0.375, tp.Weights["A"], 1e-6, "dropped names keep prior × (1 − scale)")
	assert.InDelta(t, 0.375, tp.Weights["B"], 1e-6)
	assert.InDelta(t, 0.125, tp.Weights["C"], 1e-6)
	assert.InDelta(t, 0.125, tp.Weights["D"], 1e-6)
	assert.InDelta(t, 0.5, tp.Turnover, 1e-6)
	assert.InDelta(t, tp.Turnover, cost.Turnover(prior, tp.Weights), 1e-12)
}

func TestLimitTurnover_Rotation(t *testing.T) {
	prior := contracts.WeightVector{"A": 0.6, "B": 0.4}
	next := contracts.WeightVector{"A": 0.1, "B": 0.1, "C": 0.8}

	got, limited := LimitTurnover(next, prior, 0.3)
	require.True(t, limited)
	got = Prune(got)

	assert.InDelta(t, 0.50625, got["A"], 1e-9)
	assert.InDelta(t, 0.34375, got["B"], 1e-9)
	assert.InDelta(t, 0.15, got["C"], 1e-9)
	assert.InDelta(t, 1.0, got.Sum(), 1e-9)
	assert.InDelta(t, 0.3, cost.Turnover(prior, got), 1e-9)
}

func TestLimitTurnover_NoPriorOrWithinLimit(t *testing.T) {
	next := contracts.WeightVector{"A": 1}

	got, limited := LimitTurnover(next, nil, 0.1)
	assert.False(t, limited)
	assert.Equal(t, next, got)

	got, limited = LimitTurnover(next, contracts.WeightVector{"A": 0.9, "B": 0.1}, 0.2)
	assert.False(t, limited)
	assert.Equal(t, next, got)
}

func TestPrune(t *testing.T) {
	got := Prune(contracts.WeightVector{"A": 0.9995, "B": 0.0005})
	assert.Equal(t, contracts.WeightVector{"A": 1}, got)

	got = Prune(contracts.WeightVector{"A": 0.1234567, "B": 0.8765433})
	assert.Equal(t, 0.123457, got["A"])
	assert.Equal(t, 0.876543, got["B"])
}

func TestConstruct_EmptyRanking(t *testing.T) {
	tp := construct(t, DefaultConstraints(), nil, Request{Ranked: nil, Prior: contracts.WeightVector{"A": 1}})
	assert.Equal(t, contracts.StatusInsufficientData, tp.Status)
	assert.Empty(t, tp.Weights)
	assert.InDelta(t, 1.0, tp.Turnover, 1e-12)

	c := DefaultConstraints()
	c.N = 0
	tp = construct(t, c, nil, Request{Ranked: rankedOf("A", "B")})
	assert.Empty(t, tp.Weights)
}

func TestConstruct_Idempotent(t *testing.T) {
	c := DefaultConstraints()
	c.N = 4
	c.SectorCap = 0.4
	c.MaxTurnover = 0.3
	sectors := StaticSectors{"A": "x", "B": "x", "C": "y", "D": "z"}
	ranked := rankedOf("A", "B", "C", "D", "E")

	first := construct(t, c, sectors, Request{Ranked: ranked})
	second := construct(t, c, sectors, Request{Ranked: ranked})
	assert.Equal(t, first.Weights, second.Weights)

	again := construct(t, c, sectors, Request{Ranked: ranked, Prior: first.Weights})
	assert.Equal(t, first.Weights, again.Weights, "same ranking and prior yields no trades")
	assert.InDelta(t, 0, again.Turnover, 1e-12)
}

func TestConstruct_PropertiesAcrossSizes(t *testing.T) {
	ids := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	sectors := StaticSectors{"A": "s1", "B": "s1", "C": "s1", "D": "s2", "E": "s2", "F": "s3", "G": "s3", "H": "s4", "I": "s4", "J": "s5"}

	for n := 1; n <= len(ids); n++ {
		c := DefaultConstraints()
		c.N = n
		c.MaxWeight = 0.4
		c.SectorCap = 0.5

		tp := construct(t, c, sectors, Request{Ranked: rankedOf(ids...)})
		assert.Len(t, tp.Weights, n)
		assert.True(t, tp.Weights.IsNormalized(), "n=%d sum=%f", n, tp.Weights.Sum())
		for id, w := range tp.Weights {
			assert.Greater(t, w, contracts.MinWeight, "n=%d id=%s", n, id)
		}
	}
}
