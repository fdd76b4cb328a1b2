package contracts

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"
)

// PricePoint is one daily bar for one instrument
type PricePoint struct {
	InstrumentID string    `json:"instrument_id"`
	Date         time.Time `json:"date"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"volume"` // NaN = 거래량 미상
}

// HasVolume reports whether the traded volume is known
func (p PricePoint) HasVolume() bool {
	return !math.IsNaN(p.Volume)
}

// Day truncates t to a UTC calendar day
// 모든 날짜 비교는 일 단위로 수행
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PricePanel is an immutable per-instrument price history
// ⭐ SSOT: S0 → S2/S6 가격 패널 전달
// Per instrument, dates are strictly increasing with no duplicates.
type PricePanel struct {
	series      map[string][]PricePoint
	instruments []string
}

// NewPricePanel builds a panel, sorting each instrument by date.
// Duplicate (instrument, date) keys are rejected.
func NewPricePanel(points []PricePoint) (*PricePanel, error) {
	series := make(map[string][]PricePoint)
	for _, p := range points {
		p.Date = Day(p.Date)
		series[p.InstrumentID] = append(series[p.InstrumentID], p)
	}

	for id, s := range series {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
		for i := 1; i < len(s); i++ {
			if s[i].Date.Equal(s[i-1].Date) {
				return nil, fmt.Errorf("%w: %s %s", ErrDuplicatePrice, id, s[i].Date.Format("2006-01-02"))
			}
		}
	}

	return newPanel(series), nil
}

func newPanel(series map[string][]PricePoint) *PricePanel {
	instruments := make([]string, 0, len(series))
	for id, s := range series {
		if len(s) > 0 {
			instruments = append(instruments, id)
		}
	}
	sort.Strings(instruments)
	return &PricePanel{series: series, instruments: instruments}
}

// Instruments returns instrument ids in ascending order
func (p *PricePanel) Instruments() []string {
	if p == nil {
		return nil
	}
	return slices.Clone(p.instruments)
}

// Series returns the date-ordered history of one instrument.
// The slice is shared with the panel and must not be modified.
func (p *PricePanel) Series(id string) []PricePoint {
	if p == nil {
		return nil
	}
	return p.series[id]
}

// Len returns the total number of rows
func (p *PricePanel) Len() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, s := range p.series {
		n += len(s)
	}
	return n
}

// IsEmpty reports whether the panel has no rows
func (p *PricePanel) IsEmpty() bool {
	return p.Len() == 0
}

// Dates returns the sorted union of trading dates across instruments
func (p *PricePanel) Dates() []time.Time {
	if p == nil {
		return nil
	}
	seen := make(map[time.Time]struct{})
	for _, s := range p.series {
		for _, pt := range s {
			seen[pt.Date] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Truncate returns a view keeping, per instrument, rows dated on or before cutoff.
// Series are sorted so each view is a prefix of the original.
func (p *PricePanel) Truncate(cutoff time.Time) *PricePanel {
	if p == nil {
		return newPanel(map[string][]PricePoint{})
	}
	cutoff = Day(cutoff)
	out := make(map[string][]PricePoint, len(p.series))
	for id, s := range p.series {
		k := sort.Search(len(s), func(i int) bool { return s[i].Date.After(cutoff) })
		if k > 0 {
			out[id] = s[:k:k]
		}
	}
	return newPanel(out)
}

// Latest returns the last row of an instrument
func (p *PricePanel) Latest(id string) (PricePoint, bool) {
	s := p.Series(id)
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// Fundamental metric keys
const (
	MetricPER       = "per"
	MetricPBR       = "pbr"
	MetricROE       = "roe"
	MetricDebtRatio = "debt_ratio"
	MetricOpMargin  = "op_margin"
)

// FundamentalMetrics lists the metric columns of a fundamental table
func FundamentalMetrics() []string {
	return []string{MetricPER, MetricPBR, MetricROE, MetricDebtRatio, MetricOpMargin}
}

// FundamentalRecord is one disclosed report for one instrument.
// A missing metric is an absent key, never a zero.
type FundamentalRecord struct {
	InstrumentID string             `json:"instrument_id"`
	ReportDate   time.Time          `json:"report_date"`
	Metrics      map[string]float64 `json:"metrics"`
}

// Metric returns a metric value and whether it is present
func (f FundamentalRecord) Metric(name string) (float64, bool) {
	v, ok := f.Metrics[name]
	return v, ok
}

// FundamentalInstruments returns the distinct instrument ids of records, sorted
func FundamentalInstruments(records []FundamentalRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.InstrumentID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
