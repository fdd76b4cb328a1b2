// Package quality scores the coverage of input panels before a run.
package quality

import (
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/pointintime"
)

// Coverage keys
const (
	CoveragePrice        = "price"
	CoverageVolume       = "volume"
	CoverageFundamentals = "fundamentals"
)

// Config holds quality gate thresholds
type Config struct {
	MinPriceCoverage       float64 `yaml:"min_price_coverage" json:"min_price_coverage"`             // 0.95
	MinVolumeCoverage      float64 `yaml:"min_volume_coverage" json:"min_volume_coverage"`           // 0.90
	MinFundamentalCoverage float64 `yaml:"min_fundamental_coverage" json:"min_fundamental_coverage"` // 0.50
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MinPriceCoverage:       0.95,
		MinVolumeCoverage:      0.90,
		MinFundamentalCoverage: 0.50,
	}
}

// Snapshot is the coverage of a panel as of one date
type Snapshot struct {
	Date             time.Time          `json:"date"`
	TotalInstruments int                `json:"total_instruments"`
	ValidInstruments int                `json:"valid_instruments"`
	Coverage         map[string]float64 `json:"coverage"`
	QualityScore     float64            `json:"quality_score"`
	Passed           bool               `json:"passed"`
	Failures         []string           `json:"failures,omitempty"`
}

// QualityGate validates panel coverage
type QualityGate struct {
	guard  pointintime.Guard
	config Config
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(guard pointintime.Guard, config Config) *QualityGate {
	return &QualityGate{
		guard:  guard,
		config: config,
	}
}

// Check measures what is observable on date over the union of instruments.
// Price and volume coverage look at the last trading day before date;
// fundamental coverage counts instruments with an observable report.
// ⭐ SSOT: S0 입력 품질 검증
func (g *QualityGate) Check(date time.Time, prices *contracts.PricePanel, fundamentals []contracts.FundamentalRecord) *Snapshot {
	date = contracts.Day(date)
	snapshot := &Snapshot{
		Date:     date,
		Coverage: make(map[string]float64),
		Passed:   true,
	}

	visible := g.guard.Prices(prices, date)
	reports := g.guard.Fundamentals(fundamentals, date)

	universe := make(map[string]struct{})
	for _, id := range prices.Instruments() {
		universe[id] = struct{}{}
	}
	for _, id := range contracts.FundamentalInstruments(fundamentals) {
		universe[id] = struct{}{}
	}
	snapshot.TotalInstruments = len(universe)
	if snapshot.TotalInstruments == 0 {
		snapshot.Passed = false
		snapshot.Failures = append(snapshot.Failures, "empty universe")
		return snapshot
	}

	// 기준일: 관찰 가능한 마지막 거래일
	var lastDay time.Time
	if dates := visible.Dates(); len(dates) > 0 {
		lastDay = dates[len(dates)-1]
	}

	priced, withVolume := 0, 0
	for id := range universe {
		bar, ok := visible.Latest(id)
		if !ok || !bar.Date.Equal(lastDay) {
			continue
		}
		priced++
		if bar.Volume > 0 {
			withVolume++
		}
	}

	total := float64(snapshot.TotalInstruments)
	snapshot.Coverage[CoveragePrice] = float64(priced) / total
	snapshot.Coverage[CoverageVolume] = float64(withVolume) / total
	snapshot.Coverage[CoverageFundamentals] = float64(len(reports)) / total

	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.ValidInstruments = priced

	g.threshold(snapshot, CoveragePrice, g.config.MinPriceCoverage)
	g.threshold(snapshot, CoverageVolume, g.config.MinVolumeCoverage)
	// 재무 팩터를 쓰지 않는 데이터셋은 재무 파일이 없을 수 있음
	if len(fundamentals) > 0 {
		g.threshold(snapshot, CoverageFundamentals, g.config.MinFundamentalCoverage)
	}

	return snapshot
}

func (g *QualityGate) threshold(snapshot *Snapshot, key string, floor float64) {
	if snapshot.Coverage[key] < floor {
		snapshot.Passed = false
		snapshot.Failures = append(snapshot.Failures, key)
	}
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		CoveragePrice:        0.40, // 가격 데이터 필수
		CoverageVolume:       0.30, // 유동성 검증용
		CoverageFundamentals: 0.30, // 재무제표
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}
