package pointintime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebalanceDates(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		freq  Frequency
		want  []string
	}{
		{
			name:  "daily skips weekend",
			start: "2024-01-05", end: "2024-01-09", freq: Daily,
			want: []string{"2024-01-05", "2024-01-08", "2024-01-09"},
		},
		{
			name:  "weekly mondays",
			start: "2024-01-03", end: "2024-01-22", freq: Weekly,
			want: []string{"2024-01-08", "2024-01-15", "2024-01-22"},
		},
		{
			name:  "monthly month start",
			start: "2024-01-15", end: "2024-04-01", freq: Monthly,
			want: []string{"2024-02-01", "2024-03-01", "2024-04-01"},
		},
		{
			name:  "monthly includes start on first",
			start: "2024-01-01", end: "2024-02-10", freq: Monthly,
			want: []string{"2024-01-01", "2024-02-01"},
		},
		{
			name:  "quarterly",
			start: "2023-11-20", end: "2024-07-01", freq: Quarterly,
			want: []string{"2024-01-01", "2024-04-01", "2024-07-01"},
		},
		{
			name:  "empty when end before start",
			start: "2024-02-01", end: "2024-01-01", freq: Monthly,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RebalanceDates(day(tt.start), day(tt.end), tt.freq)
			require.NoError(t, err)

			var gotStr []string
			for _, d := range got {
				gotStr = append(gotStr, d.Format("2006-01-02"))
			}
			assert.Equal(t, tt.want, gotStr)
		})
	}
}

func TestRebalanceDates_OrderedUnique(t *testing.T) {
	for _, f := range []Frequency{Daily, Weekly, Monthly, Quarterly} {
		dates, err := RebalanceDates(day("2022-01-01"), day("2024-12-31"), f)
		require.NoError(t, err)
		for i := 1; i < len(dates); i++ {
			assert.True(t, dates[i].After(dates[i-1]), "%s: %s !> %s", f, dates[i], dates[i-1])
		}
	}
}

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency("M")
	require.NoError(t, err)
	assert.Equal(t, Monthly, f)

	_, err = ParseFrequency("Y")
	assert.Error(t, err)

	_, err = RebalanceDates(time.Now(), time.Now(), Frequency("Y"))
	assert.Error(t, err)
}

func TestPeriodStart(t *testing.T) {
	tests := []struct {
		name string
		date string
		freq Frequency
		want string
	}{
		{"daily", "2024-06-05", Daily, "2024-06-05"},
		{"weekly from wednesday", "2024-06-05", Weekly, "2024-06-03"},
		{"weekly from sunday", "2024-06-09", Weekly, "2024-06-03"},
		{"monthly", "2024-06-18", Monthly, "2024-06-01"},
		{"quarterly", "2024-08-20", Quarterly, "2024-07-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeriodStart(day(tt.date), tt.freq)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}

	_, err := PeriodStart(day("2024-06-05"), Frequency("Y"))
	assert.Error(t, err)
}

func TestFirstWeekday(t *testing.T) {
	// 2024-06-01 토요일, 2024-09-01 일요일
	assert.Equal(t, "2024-06-03", FirstWeekday(day("2024-06-01")).Format("2006-01-02"))
	assert.Equal(t, "2024-09-02", FirstWeekday(day("2024-09-01")).Format("2006-01-02"))
	assert.Equal(t, "2024-05-01", FirstWeekday(day("2024-05-01")).Format("2006-01-02"))
}
