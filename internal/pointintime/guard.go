// Package pointintime enforces point-in-time data access.
//
// A rebalance decided on date R may read prices dated R-1 or earlier and
// fundamentals whose report date plus the disclosure lag is on or before R.
package pointintime

import (
	"sort"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// FinancialLagDays is the conservative disclosure lag for financial statements
// 한국시장 재무제표 공시 래그 (보수적 90일)
const FinancialLagDays = 90

// Guard filters panels to what was observable as of a rebalance date
// ⭐ SSOT: 룩어헤드 방지는 여기서만
type Guard struct {
	lagDays int
	set     bool // zero Guard → FinancialLagDays
}

// NewGuard creates a guard with the given disclosure lag.
// 0 makes a report usable on its report date; a negative lag uses the default.
func NewGuard(lagDays int) Guard {
	if lagDays < 0 {
		lagDays = FinancialLagDays
	}
	return Guard{lagDays: lagDays, set: true}
}

// DefaultGuard uses FinancialLagDays
func DefaultGuard() Guard {
	return NewGuard(FinancialLagDays)
}

// LagDays returns the configured disclosure lag
func (g Guard) LagDays() int {
	if !g.set {
		return FinancialLagDays
	}
	return g.lagDays
}

// PriceCutoff is the last observable price date for a rebalance on asOf
func PriceCutoff(asOf time.Time) time.Time {
	return contracts.Day(asOf).AddDate(0, 0, -1)
}

// Prices returns rows dated on or before asOf - 1 day
func (g Guard) Prices(panel *contracts.PricePanel, asOf time.Time) *contracts.PricePanel {
	return panel.Truncate(PriceCutoff(asOf))
}

// Observable reports whether a report dated reportDate is usable on asOf
func (g Guard) Observable(reportDate, asOf time.Time) bool {
	available := contracts.Day(reportDate).AddDate(0, 0, g.LagDays())
	return !available.After(contracts.Day(asOf))
}

// Fundamentals returns, per instrument, the latest report observable on asOf.
// Output is ordered by instrument id.
func (g Guard) Fundamentals(records []contracts.FundamentalRecord, asOf time.Time) []contracts.FundamentalRecord {
	latest := make(map[string]contracts.FundamentalRecord)
	for _, r := range records {
		if !g.Observable(r.ReportDate, asOf) {
			continue
		}
		cur, ok := latest[r.InstrumentID]
		if !ok || r.ReportDate.After(cur.ReportDate) {
			latest[r.InstrumentID] = r
		}
	}

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]contracts.FundamentalRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, latest[id])
	}
	return out
}

// ValidateNoLookahead returns true only if dataDate is strictly before rebalanceDate.
// Used as an assertion, not a filter.
func ValidateNoLookahead(dataDate, rebalanceDate time.Time) bool {
	return contracts.Day(dataDate).Before(contracts.Day(rebalanceDate))
}
