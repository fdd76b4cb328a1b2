package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		wantIS  int
		wantOOS int
		split   bool
	}{
		{"at threshold not split", 20, 20, 20, false},
		{"just above threshold", 21, 14, 7, true},
		{"hundred", 100, 70, 30, true},
		{"floor", 33, 23, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series := seriesOf(jan2, repeat([]float64{0.001}, tt.n)...)
			is, oos, split := Split(series)
			assert.Len(t, is, tt.wantIS)
			assert.Len(t, oos, tt.wantOOS)
			assert.Equal(t, tt.split, split)
			if split {
				assert.True(t, is.End().Before(oos.Start()), "chronological split")
			}
		})
	}
}

func TestValidate_OverfitWarning(t *testing.T) {
	returns := append(repeat([]float64{0.01, 0.005}, 21), repeat([]float64{-0.01, -0.005}, 9)...)
	wf := Validate(seriesOf(jan2, returns...))

	assert.True(t, wf.Split)
	assert.Greater(t, wf.InSample.Metrics.Sharpe, 0.0)
	assert.Less(t, wf.OutOfSample.Metrics.Sharpe, 0.0)
	assert.Equal(t, OverfitWarning, wf.Warning)
	assert.Equal(t, VerdictOverfit, wf.Verdict)
	assert.Greater(t, wf.Degradation, 50.0)
}

func TestValidate_ConsistentStrategyIsValid(t *testing.T) {
	wf := Validate(seriesOf(jan2, repeat([]float64{0.01, 0.002}, 60)...))

	assert.Empty(t, wf.Warning)
	assert.Equal(t, VerdictValid, wf.Verdict)
	assert.InDelta(t, 0, wf.Degradation, 5)
}

func TestValidate_LosingStrategyIsInvalid(t *testing.T) {
	wf := Validate(seriesOf(jan2, repeat([]float64{-0.01, 0.002}, 60)...))

	assert.Empty(t, wf.Warning, "no warning when in-sample Sharpe is not positive")
	assert.Equal(t, VerdictInvalid, wf.Verdict)
}

func TestValidate_ShortSeriesUsesFullSeries(t *testing.T) {
	wf := Validate(seriesOf(jan2, 0.01, -0.005, 0.002))
	assert.False(t, wf.Split)
	assert.Equal(t, wf.InSample, wf.OutOfSample)
	assert.Empty(t, wf.Warning)
}
