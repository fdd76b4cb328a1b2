package portfolio

import (
	"context"
	"math"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/cost"
	"github.com/wonny/aegis/pit/internal/selection"
	"github.com/wonny/aegis/pit/pkg/logger"
)

const epsilon = 1e-12

// Constructor implements S5: Portfolio construction
// ⭐ SSOT: S5 포트폴리오 구성 로직은 여기서만
type Constructor struct {
	constraints Constraints
	sectors     contracts.SectorLookup
	logger      *logger.Logger
}

// Request is the input of one construction
type Request struct {
	Date       time.Time
	Ranked     []contracts.RankedInstrument
	Prior      contracts.WeightVector
	Volatility map[string]float64 // risk_parity 전용
}

// NewConstructor creates a new portfolio constructor
func NewConstructor(constraints Constraints, sectors contracts.SectorLookup, logger *logger.Logger) *Constructor {
	if sectors == nil {
		sectors = StaticSectors{}
	}
	return &Constructor{
		constraints: constraints,
		sectors:     sectors,
		logger:      logger,
	}
}

// Constraints returns the configured constraints
func (c *Constructor) Constraints() Constraints {
	return c.constraints
}

// Sectors returns the sector lookup
func (c *Constructor) Sectors() contracts.SectorLookup {
	return c.sectors
}

// Construct builds target weights from a ranked list
func (c *Constructor) Construct(ctx context.Context, req Request) (*contracts.TargetPortfolio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := &contracts.TargetPortfolio{
		Date:    contracts.Day(req.Date),
		Status:  contracts.StatusOK,
		Weights: contracts.WeightVector{},
		Prior:   req.Prior.Clone(),
	}

	// 1. Select top N
	top := selection.TopN(req.Ranked, c.constraints.N)
	if len(top) == 0 {
		c.logger.WithFields(map[string]interface{}{
			"stage": contracts.StagePortfolio.String(),
			"date":  target.Date.Format("2006-01-02"),
		}).Warn("No instruments selected for portfolio")
		target.Status = contracts.StatusInsufficientData
		target.Turnover = cost.Turnover(req.Prior, target.Weights)
		return target, nil
	}

	// 2. Raw weights capped at max_weight
	weights := c.rawWeights(top, req.Volatility)

	// 3. Sector cap
	weights = c.applySectorCap(weights)

	// 4. Renormalize (water-filling)
	weights, feasible := c.renormalize(weights)
	if !feasible {
		c.logger.WithFields(map[string]interface{}{
			"n":          len(top),
			"max_weight": c.constraints.MaxWeight,
			"sector_cap": c.constraints.SectorCap,
		}).Warn("Caps infeasible, scaled proportionally")
	}

	// 5. Turnover limit
	weights, limited := LimitTurnover(weights, req.Prior, c.constraints.MaxTurnover)

	// 6. Prune dust and round
	weights = Prune(weights)

	target.Weights = weights
	target.Turnover = cost.Turnover(req.Prior, weights)

	c.logger.WithFields(map[string]interface{}{
		"stage":            contracts.StagePortfolio.String(),
		"date":             target.Date.Format("2006-01-02"),
		"positions":        len(weights),
		"total_weight":     weights.Sum(),
		"turnover":         target.Turnover,
		"turnover_limited": limited,
	}).Info("Portfolio constructed")

	return target, nil
}

// rawWeights assigns 1/N (or inverse volatility) capped at max_weight
func (c *Constructor) rawWeights(top []contracts.RankedInstrument, vols map[string]float64) contracts.WeightVector {
	weights := make(contracts.WeightVector, len(top))

	switch c.constraints.Method {
	case MethodRiskParity:
		weights = inverseVolatility(top, vols)
	default:
		for _, r := range top {
			weights[r.InstrumentID] = 1.0 / float64(len(top))
		}
	}

	for id, w := range weights {
		weights[id] = math.Min(w, c.constraints.MaxWeight)
	}
	return weights
}

// inverseVolatility weights by 1/σ. Names without a usable σ get the
// average inverse volatility of the rest; with no σ at all it is equal weight.
func inverseVolatility(top []contracts.RankedInstrument, vols map[string]float64) contracts.WeightVector {
	inv := make(map[string]float64, len(top))
	sum, known := 0.0, 0
	for _, r := range top {
		if v, ok := vols[r.InstrumentID]; ok && v > 0 && !math.IsNaN(v) {
			inv[r.InstrumentID] = 1 / v
			sum += 1 / v
			known++
		}
	}

	fill := 1.0
	if known > 0 {
		fill = sum / float64(known)
	}

	total := 0.0
	for _, r := range top {
		if _, ok := inv[r.InstrumentID]; !ok {
			inv[r.InstrumentID] = fill
		}
		total += inv[r.InstrumentID]
	}

	weights := make(contracts.WeightVector, len(top))
	for _, r := range top {
		weights[r.InstrumentID] = inv[r.InstrumentID] / total
	}
	return weights
}

// applySectorCap scales every sector above the cap down to exactly the cap
func (c *Constructor) applySectorCap(weights contracts.WeightVector) contracts.WeightVector {
	out := weights.Clone()
	totals := c.sectorTotals(out)
	for _, id := range out.Instruments() {
		sector := sectorOf(c.sectors, id)
		if total := totals[sector]; total > c.constraints.SectorCap {
			out[id] *= c.constraints.SectorCap / total
		}
	}
	return out
}

// renormalize brings the sum to 1.0 by redistributing to names whose name and
// sector caps have room. Falls back to a proportional rescale when no room is left.
func (c *Constructor) renormalize(weights contracts.WeightVector) (contracts.WeightVector, bool) {
	out := weights.Clone()
	ids := out.Instruments()
	maxIter := len(ids) + len(c.sectorTotals(out)) + 10

	for iter := 0; iter < maxIter; iter++ {
		deficit := 1 - out.Sum()
		if deficit <= epsilon {
			return out, true
		}

		totals := c.sectorTotals(out)
		var eligible []string
		base := 0.0
		for _, id := range ids {
			room := math.Min(c.constraints.MaxWeight-out[id], c.constraints.SectorCap-totals[sectorOf(c.sectors, id)])
			if room > epsilon {
				eligible = append(eligible, id)
				base += out[id]
			}
		}
		if len(eligible) == 0 {
			break
		}

		adds := make(map[string]float64, len(eligible))
		sectorAdds := make(map[string]float64)
		for _, id := range eligible {
			share := 1.0 / float64(len(eligible))
			if base > 0 {
				share = out[id] / base
			}
			add := math.Min(deficit*share, c.constraints.MaxWeight-out[id])
			adds[id] = add
			sectorAdds[sectorOf(c.sectors, id)] += add
		}

		for _, id := range eligible {
			sector := sectorOf(c.sectors, id)
			room := c.constraints.SectorCap - totals[sector]
			if sectorAdds[sector] > room {
				adds[id] *= room / sectorAdds[sector]
			}
			out[id] += adds[id]
		}
	}

	if 1-out.Sum() <= 1e-9 {
		return out, true
	}
	return scaleToOne(out), false
}

func (c *Constructor) sectorTotals(weights contracts.WeightVector) map[string]float64 {
	totals := make(map[string]float64)
	for _, id := range weights.Instruments() {
		totals[sectorOf(c.sectors, id)] += weights[id]
	}
	return totals
}

// LimitTurnover blends new toward prior so that Σ|final − prior| ≤ maxTurnover.
// Names dropped from new keep prior × (1 − scale). No prior means no limit.
func LimitTurnover(next, prior contracts.WeightVector, maxTurnover float64) (contracts.WeightVector, bool) {
	if len(prior) == 0 {
		return next, false
	}
	turnover := cost.Turnover(prior, next)
	if turnover <= maxTurnover || turnover <= epsilon {
		return next, false
	}

	scale := maxTurnover / turnover
	out := make(contracts.WeightVector, len(next)+len(prior))
	for _, id := range next.Instruments() {
		out[id] = prior[id] + (next[id]-prior[id])*scale
	}
	for _, id := range prior.Instruments() {
		if _, ok := next[id]; !ok {
			out[id] = prior[id] * (1 - scale)
		}
	}
	return scaleToOne(out), true
}

// Prune drops weights at or below contracts.MinWeight, renormalizes when
// something was dropped, and rounds to 6 decimals
func Prune(weights contracts.WeightVector) contracts.WeightVector {
	out := make(contracts.WeightVector, len(weights))
	pruned := false
	for _, id := range weights.Instruments() {
		if weights[id] > contracts.MinWeight {
			out[id] = weights[id]
		} else {
			pruned = true
		}
	}
	if pruned {
		out = scaleToOne(out)
	}
	for id, w := range out {
		out[id] = math.Round(w*1e6) / 1e6
	}
	return out
}

func scaleToOne(weights contracts.WeightVector) contracts.WeightVector {
	total := weights.Sum()
	if total <= 0 {
		return weights
	}
	out := make(contracts.WeightVector, len(weights))
	for id, w := range weights {
		out[id] = w / total
	}
	return out
}
