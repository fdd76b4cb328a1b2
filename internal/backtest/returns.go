package backtest

import (
	"sort"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// ReturnMatrix holds daily close-to-close returns aligned on the union of trading dates.
// The first observation of an instrument is 0; a date with no row is 0 and the
// next row compares to the last known close.
type ReturnMatrix struct {
	dates   []time.Time
	returns map[string][]float64
}

// NewReturnMatrix builds the matrix from a price panel
func NewReturnMatrix(panel *contracts.PricePanel) *ReturnMatrix {
	dates := panel.Dates()
	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}

	m := &ReturnMatrix{
		dates:   dates,
		returns: make(map[string][]float64),
	}

	for _, id := range panel.Instruments() {
		row := make([]float64, len(dates))
		prev := 0.0
		for k, p := range panel.Series(id) {
			if k > 0 && prev != 0 {
				row[index[p.Date]] = p.Close/prev - 1
			}
			prev = p.Close
		}
		m.returns[id] = row
	}
	return m
}

// Dates returns the trading dates in ascending order
func (m *ReturnMatrix) Dates() []time.Time {
	return m.dates
}

// Len returns the number of trading dates
func (m *ReturnMatrix) Len() int {
	return len(m.dates)
}

// Return returns the return of id on date index i (0 when unknown)
func (m *ReturnMatrix) Return(id string, i int) float64 {
	row, ok := m.returns[id]
	if !ok || i < 0 || i >= len(row) {
		return 0
	}
	return row[i]
}

// PortfolioReturn returns Σ w·r on date index i
func (m *ReturnMatrix) PortfolioReturn(weights contracts.WeightVector, i int) float64 {
	total := 0.0
	for _, id := range weights.Instruments() {
		total += weights[id] * m.Return(id, i)
	}
	return total
}

// IndexAfter returns the first date index strictly after t (Len() when none)
func (m *ReturnMatrix) IndexAfter(t time.Time) int {
	t = contracts.Day(t)
	return sort.Search(len(m.dates), func(i int) bool { return m.dates[i].After(t) })
}

// Drift returns weights after one day of returns. Uninvested weight is cash
// earning zero, so the total may move away from 1.
func (m *ReturnMatrix) Drift(weights contracts.WeightVector, i int) contracts.WeightVector {
	gross := m.PortfolioReturn(weights, i)
	if 1+gross <= 0 {
		return contracts.WeightVector{}
	}
	out := make(contracts.WeightVector, len(weights))
	for _, id := range weights.Instruments() {
		if w := weights[id] * (1 + m.Return(id, i)) / (1 + gross); w > 0 {
			out[id] = w
		}
	}
	return out
}
