package pointintime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/aegis/pit/internal/contracts"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dailyPanel(t *testing.T, id string, from string, n int) *contracts.PricePanel {
	t.Helper()
	points := make([]contracts.PricePoint, 0, n)
	d := day(from)
	for i := 0; i < n; i++ {
		points = append(points, contracts.PricePoint{InstrumentID: id, Date: d.AddDate(0, 0, i), Close: float64(100 + i)})
	}
	panel, err := contracts.NewPricePanel(points)
	require.NoError(t, err)
	return panel
}

func TestGuard_PricesExcludeSameDay(t *testing.T) {
	panel := dailyPanel(t, "005930", "2024-01-01", 31)
	asOf := day("2024-01-15")

	view := DefaultGuard().Prices(panel, asOf)
	series := view.Series("005930")
	require.Len(t, series, 14)
	assert.Equal(t, day("2024-01-14"), series[len(series)-1].Date)

	for _, p := range series {
		assert.True(t, ValidateNoLookahead(p.Date, asOf), "price %s leaks into %s", p.Date, asOf)
	}
}

func TestGuard_PricesLookaheadProperty(t *testing.T) {
	panel := dailyPanel(t, "A", "2023-06-01", 200)
	guard := DefaultGuard()

	for _, asOf := range panel.Dates() {
		view := guard.Prices(panel, asOf)
		for _, p := range view.Series("A") {
			if !ValidateNoLookahead(p.Date, asOf) {
				t.Fatalf("lookahead: %s visible on %s", p.Date, asOf)
			}
		}
	}
}

func TestGuard_FundamentalsLag(t *testing.T) {
	records := []contracts.FundamentalRecord{
		{InstrumentID: "A", ReportDate: day("2023-03-31"), Metrics: map[string]float64{"per": 10}},
		{InstrumentID: "A", ReportDate: day("2023-06-30"), Metrics: map[string]float64{"per": 12}},
		{InstrumentID: "A", ReportDate: day("2023-09-30"), Metrics: map[string]float64{"per": 14}},
		{InstrumentID: "B", ReportDate: day("2023-09-30"), Metrics: map[string]float64{"per": 8}},
	}
	guard := DefaultGuard()

	// 2023-06-30 + 90 = 2023-09-28
	got := guard.Fundamentals(records, day("2023-09-28"))
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].InstrumentID)
	assert.Equal(t, day("2023-06-30"), got[0].ReportDate)

	got = guard.Fundamentals(records, day("2023-09-27"))
	require.Len(t, got, 1)
	assert.Equal(t, day("2023-03-31"), got[0].ReportDate)

	// 2023-09-30 + 90 = 2023-12-29
	got = guard.Fundamentals(records, day("2023-12-29"))
	require.Len(t, got, 2)
	assert.Equal(t, day("2023-09-30"), got[0].ReportDate)
	assert.Equal(t, "B", got[1].InstrumentID)

	for _, asOf := range []time.Time{day("2023-07-01"), day("2024-01-01")} {
		for _, r := range guard.Fundamentals(records, asOf) {
			assert.True(t, ValidateNoLookahead(r.ReportDate, asOf))
		}
	}
}

func TestGuard_CustomLag(t *testing.T) {
	g := NewGuard(30)
	assert.Equal(t, 30, g.LagDays())
	assert.True(t, g.Observable(day("2024-01-01"), day("2024-01-31")))
	assert.False(t, g.Observable(day("2024-01-01"), day("2024-01-30")))

	assert.Equal(t, FinancialLagDays, NewGuard(-1).LagDays())
	assert.Equal(t, FinancialLagDays, Guard{}.LagDays())
}

func TestGuard_ZeroLag(t *testing.T) {
	g := NewGuard(0)
	assert.Equal(t, 0, g.LagDays())
	assert.True(t, g.Observable(day("2024-01-31"), day("2024-01-31")), "a zero lag reads the report on its own date")
	assert.False(t, g.Observable(day("2024-02-01"), day("2024-01-31")))
}

func TestGuard_Deterministic(t *testing.T) {
	panel := dailyPanel(t, "A", "2024-01-01", 10)
	g := DefaultGuard()
	a := g.Prices(panel, day("2024-01-06"))
	b := g.Prices(panel, day("2024-01-06"))
	assert.Equal(t, a.Series("A"), b.Series("A"))
}

func TestValidateNoLookahead(t *testing.T) {
	assert.True(t, ValidateNoLookahead(day("2024-01-01"), day("2024-01-02")))
	assert.False(t, ValidateNoLookahead(day("2024-01-02"), day("2024-01-02")))
	assert.False(t, ValidateNoLookahead(day("2024-01-03"), day("2024-01-02")))
}
