package portfolio

import "fmt"

// Method selects the raw weighting scheme
type Method string

const (
	MethodTopNEqual  Method = "top_n_equal"
	MethodRiskParity Method = "risk_parity" // 역변동성 가중
)

// Constraints defines portfolio construction constraints
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	N           int     // 상위 N 종목
	MaxWeight   float64 // 종목당 최대 비중 (0.0 ~ 1.0)
	SectorCap   float64 // 섹터당 최대 비중 (0.0 ~ 1.0)
	MaxTurnover float64 // 리밸런싱당 최대 회전율 (Σ|Δw|)
	Method      Method
	VolLookback int // risk_parity 변동성 관찰 기간
}

// DefaultConstraints returns unconstrained equal-weight settings
func DefaultConstraints() Constraints {
	return Constraints{
		N:           20,
		MaxWeight:   1.0,
		SectorCap:   1.0,
		MaxTurnover: 1.0,
		Method:      MethodTopNEqual,
		VolLookback: 60,
	}
}

// Validate checks the constraint ranges
func (c Constraints) Validate() error {
	if c.N < 0 {
		return fmt.Errorf("n must be >= 0, got %d", c.N)
	}
	if c.MaxWeight <= 0 || c.MaxWeight > 1 {
		return fmt.Errorf("max_weight must be in (0, 1], got %g", c.MaxWeight)
	}
	if c.SectorCap <= 0 || c.SectorCap > 1 {
		return fmt.Errorf("sector_cap must be in (0, 1], got %g", c.SectorCap)
	}
	if c.MaxTurnover < 0 {
		return fmt.Errorf("max_turnover must be >= 0, got %g", c.MaxTurnover)
	}
	switch c.Method {
	case MethodTopNEqual, MethodRiskParity:
	default:
		return fmt.Errorf("unknown portfolio method %q", c.Method)
	}
	return nil
}

// Feasible reports whether name and sector caps can hold a fully invested book
// of n names spread over the given number of sectors
func (c Constraints) Feasible(n, sectors int) bool {
	return float64(n)*c.MaxWeight >= 1-1e-9 && float64(sectors)*c.SectorCap >= 1-1e-9
}
