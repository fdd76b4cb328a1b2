package contracts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestNewPricePanel_SortsAndIndexes(t *testing.T) {
	panel, err := NewPricePanel([]PricePoint{
		{InstrumentID: "000660", Date: day("2024-01-03"), Close: 102},
		{InstrumentID: "005930", Date: day("2024-01-02"), Close: 70},
		{InstrumentID: "000660", Date: day("2024-01-02"), Close: 100},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"000660", "005930"}, panel.Instruments())
	assert.Equal(t, 3, panel.Len())

	s := panel.Series("000660")
	require.Len(t, s, 2)
	assert.True(t, s[0].Date.Before(s[1].Date), "series must be date ordered")

	assert.Equal(t, []time.Time{day("2024-01-02"), day("2024-01-03")}, panel.Dates())
}

func TestNewPricePanel_RejectsDuplicates(t *testing.T) {
	_, err := NewPricePanel([]PricePoint{
		{InstrumentID: "005930", Date: day("2024-01-02"), Close: 70},
		{InstrumentID: "005930", Date: day("2024-01-02").Add(3 * time.Hour), Close: 71},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicatePrice))
}

func TestPricePanel_Truncate(t *testing.T) {
	panel, err := NewPricePanel([]PricePoint{
		{InstrumentID: "A", Date: day("2024-01-02"), Close: 1},
		{InstrumentID: "A", Date: day("2024-01-03"), Close: 2},
		{InstrumentID: "B", Date: day("2024-01-05"), Close: 3},
	})
	require.NoError(t, err)

	view := panel.Truncate(day("2024-01-02"))
	assert.Equal(t, []string{"A"}, view.Instruments())
	assert.Equal(t, 1, view.Len())

	// 원본은 변경되지 않음
	assert.Equal(t, 3, panel.Len())

	latest, ok := view.Latest("A")
	require.True(t, ok)
	assert.Equal(t, 1.0, latest.Close)

	_, ok = view.Latest("B")
	assert.False(t, ok)
}

func TestNilPanel(t *testing.T) {
	var panel *PricePanel
	assert.True(t, panel.IsEmpty())
	assert.Nil(t, panel.Instruments())
	assert.True(t, panel.Truncate(day("2024-01-01")).IsEmpty())
}

func TestFundamentalInstruments(t *testing.T) {
	records := []FundamentalRecord{
		{InstrumentID: "B", Metrics: map[string]float64{MetricPER: 10}},
		{InstrumentID: "A"},
		{InstrumentID: "B"},
	}
	assert.Equal(t, []string{"A", "B"}, FundamentalInstruments(records))

	v, ok := records[0].Metric(MetricPER)
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)

	_, ok = records[1].Metric(MetricROE)
	assert.False(t, ok)
}
