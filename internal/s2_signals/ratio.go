package s2_signals

import (
	"math"
	"strings"

	"github.com/wonny/aegis/pit/internal/contracts"
)

type ratioColumn struct {
	metric string
	invert bool
}

// ratioFormulas maps a normalized formula to its fundamental column
var ratioFormulas = map[string]ratioColumn{
	"PER":        {metric: contracts.MetricPER},
	"1/PER":      {metric: contracts.MetricPER, invert: true},
	"PBR":        {metric: contracts.MetricPBR},
	"1/PBR":      {metric: contracts.MetricPBR, invert: true},
	"ROE":        {metric: contracts.MetricROE},
	"DEBT_RATIO": {metric: contracts.MetricDebtRatio},
	"OP_MARGIN":  {metric: contracts.MetricOpMargin},
}

// SupportedFormula reports whether a ratio formula is known (case-insensitive)
func SupportedFormula(formula string) bool {
	_, ok := ratioFormulas[normalizeFormula(formula)]
	return ok
}

func normalizeFormula(formula string) string {
	return strings.ToUpper(strings.ReplaceAll(formula, " ", ""))
}

// RatioValue evaluates a ratio formula against one report.
// Missing columns, unknown formulas and zero denominators are NaN.
func RatioValue(formula string, record contracts.FundamentalRecord) float64 {
	col, ok := ratioFormulas[normalizeFormula(formula)]
	if !ok {
		return math.NaN()
	}
	v, ok := record.Metric(col.metric)
	if !ok || math.IsNaN(v) {
		return math.NaN()
	}
	if col.invert {
		if v == 0 {
			return math.NaN()
		}
		return 1 / v
	}
	return v
}
