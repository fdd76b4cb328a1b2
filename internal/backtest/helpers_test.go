package backtest

import (
	"math"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// businessDays returns n weekdays starting at from
func businessDays(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := from; len(out) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

// geometricPrices builds closes growing by (1+rate) per day
func geometricPrices(id string, dates []time.Time, rate float64) []contracts.PricePoint {
	points := make([]contracts.PricePoint, len(dates))
	for i, d := range dates {
		points[i] = contracts.PricePoint{
			InstrumentID: id,
			Date:         d,
			Close:        100 * math.Pow(1+rate, float64(i)),
			Volume:       1e9,
		}
	}
	return points
}

func seriesOf(from time.Time, returns ...float64) contracts.ReturnSeries {
	dates := businessDays(from, len(returns))
	s := make(contracts.ReturnSeries, len(returns))
	for i, r := range returns {
		s[i] = contracts.ReturnPoint{Date: dates[i], Return: r}
	}
	return s
}

func repeat(pattern []float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}

var jan2 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
