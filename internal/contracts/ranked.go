package contracts

// RankedInstrument is an instrument with its composite rank, passed from S4 to S5
// ⭐ SSOT: S4 → S5 랭킹 결과 전달
type RankedInstrument struct {
	InstrumentID string             `json:"instrument_id"`
	Rank         int                `json:"rank"` // 1-based, 1 = highest composite
	Composite    float64            `json:"composite"`
	Percentiles  map[string]float64 `json:"percentiles,omitempty"`
	Scored       bool               `json:"scored"`
}

// IsTopRanked checks if the instrument is within the top n ranks
func (r *RankedInstrument) IsTopRanked(n int) bool {
	return r.Rank <= n && r.Rank > 0
}
