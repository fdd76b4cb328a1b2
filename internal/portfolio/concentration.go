package portfolio

import (
	"math"
	"sort"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// ConcentrationLevel classifies a Herfindahl-Hirschman index
type ConcentrationLevel string

const (
	LevelEmpty              ConcentrationLevel = "EMPTY"
	LevelDiversified        ConcentrationLevel = "DIVERSIFIED"
	LevelModerate           ConcentrationLevel = "MODERATE"            // HHI >= 1500
	LevelConcentrated       ConcentrationLevel = "CONCENTRATED"        // HHI >= 2500
	LevelHighlyConcentrated ConcentrationLevel = "HIGHLY_CONCENTRATED" // HHI >= 4000
)

// SectorExposure is the total weight held in one sector
type SectorExposure struct {
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"`
}

// ConcentrationReport summarizes how concentrated a weight vector is
type ConcentrationReport struct {
	HHI       float64            `json:"hhi"` // 0 ~ 10000 (%단위 제곱합)
	Level     ConcentrationLevel `json:"level"`
	Holdings  int                `json:"holdings"`
	MaxID     string             `json:"max_id,omitempty"`
	MaxWeight float64            `json:"max_weight"`
	Sectors   []SectorExposure   `json:"sectors"` // 비중 내림차순
}

// Concentration computes HHI, its level and per-sector exposure
func Concentration(weights contracts.WeightVector, sectors contracts.SectorLookup) ConcentrationReport {
	total := weights.Sum()
	if len(weights) == 0 || total <= 0 {
		return ConcentrationReport{Level: LevelEmpty}
	}

	report := ConcentrationReport{Holdings: len(weights)}
	bySector := make(map[string]float64)

	for _, id := range weights.Instruments() {
		w := weights[id] / total
		report.HHI += (w * 100) * (w * 100)
		if w > report.MaxWeight {
			report.MaxWeight, report.MaxID = w, id
		}
		bySector[sectorOf(sectors, id)] += w
	}
	report.HHI = math.Round(report.HHI)
	report.Level = levelOf(report.HHI)

	for sector, w := range bySector {
		report.Sectors = append(report.Sectors, SectorExposure{Sector: sector, Weight: w})
	}
	sort.Slice(report.Sectors, func(i, j int) bool {
		if report.Sectors[i].Weight != report.Sectors[j].Weight {
			return report.Sectors[i].Weight > report.Sectors[j].Weight
		}
		return report.Sectors[i].Sector < report.Sectors[j].Sector
	})

	return report
}

func levelOf(hhi float64) ConcentrationLevel {
	switch {
	case hhi >= 4000:
		return LevelHighlyConcentrated
	case hhi >= 2500:
		return LevelConcentrated
	case hhi >= 1500:
		return LevelModerate
	default:
		return LevelDiversified
	}
}
