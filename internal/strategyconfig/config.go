// Package strategyconfig loads and validates the strategy specification.
package strategyconfig

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// Spec is the full strategy specification
// ⭐ SSOT: 전략 설정 스키마는 여기서만 정의
type Spec struct {
	Name       string     `yaml:"name" json:"name" validate:"required"`
	Universe   Universe   `yaml:"universe" json:"universe"`
	Rebalance  Rebalance  `yaml:"rebalance" json:"rebalance"`
	Factors    []Factor   `yaml:"factors" json:"factors" validate:"required,min=1,dive"`
	Signal     Signal     `yaml:"signal" json:"signal"`
	Portfolio  Portfolio  `yaml:"portfolio" json:"portfolio"`
	CostModel  CostModel  `yaml:"cost_model" json:"cost_model"`
	RiskLimits RiskLimits `yaml:"risk_limits" json:"risk_limits"`
	Backtest   Backtest   `yaml:"backtest" json:"backtest"`
}

// Universe 투자 대상 시장
type Universe struct {
	Market string `yaml:"market" json:"market" validate:"required"`
}

// Rebalance 리밸런싱 주기
type Rebalance struct {
	Freq string `yaml:"freq" json:"freq" validate:"required,oneof=D W M Q"`
}

// Factor is one raw factor definition
type Factor struct {
	ID          string    `yaml:"id" json:"id" validate:"required"`
	Type        string    `yaml:"type" json:"type" validate:"required,oneof=ratio price_momentum"`
	Formula     string    `yaml:"formula,omitempty" json:"formula,omitempty"`
	Lookback    *int      `yaml:"lookback,omitempty" json:"lookback,omitempty" default:"60" validate:"omitempty,gte=1"`
	Skip        int       `yaml:"skip,omitempty" json:"skip,omitempty" validate:"gte=0"`
	Winsorize   Winsorize `yaml:"winsorize,omitempty" json:"winsorize,omitempty" validate:"omitempty,len=2,dive,gte=0,lte=1"`
	Standardize bool      `yaml:"standardize,omitempty" json:"standardize,omitempty"`
	ZScore      bool      `yaml:"zscore,omitempty" json:"zscore,omitempty"` // standardize 별칭
}

// Winsorize is a [lower, upper] quantile pair.
// `winsorize: true` selects the 1%/99% default.
type Winsorize []float64

// UnmarshalYAML accepts a bool or a two-element list
func (w *Winsorize) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!bool" {
		var on bool
		if err := node.Decode(&on); err != nil {
			return err
		}
		*w = nil
		if on {
			b := contracts.DefaultWinsorize()
			*w = Winsorize{b.Lower, b.Upper}
		}
		return nil
	}

	var bounds []float64
	if err := node.Decode(&bounds); err != nil {
		return err
	}
	*w = bounds
	return nil
}

// Signal 복합 점수 방식
type Signal struct {
	Method  string             `yaml:"method" json:"method" validate:"required,oneof=rank_sum rank_product"`
	Weights map[string]float64 `yaml:"weights" json:"weights" validate:"required,min=1"`
}

// Portfolio 포트폴리오 구성
type Portfolio struct {
	Method      string   `yaml:"method" json:"method" validate:"required,oneof=top_n_equal risk_parity"`
	N           int      `yaml:"n" json:"n" validate:"gte=1"`
	MaxWeight   *float64 `yaml:"max_weight,omitempty" json:"max_weight,omitempty" default:"1" validate:"omitempty,gt=0,lte=1"`
	SectorCap   *float64 `yaml:"sector_cap,omitempty" json:"sector_cap,omitempty" default:"1" validate:"omitempty,gt=0,lte=1"`
	VolLookback *int     `yaml:"vol_lookback,omitempty" json:"vol_lookback,omitempty" default:"60" validate:"omitempty,gte=2"`
}

// CostModel 거래비용 (bps)
type CostModel struct {
	FeeBps      float64 `yaml:"fee_bps" json:"fee_bps" validate:"gte=0"`
	SlippageBps float64 `yaml:"slippage_bps" json:"slippage_bps" validate:"gte=0"`
}

// RiskLimits 정적 한도
type RiskLimits struct {
	// 0 = 기존 비중 유지 (첫 리밸런싱 제외)
	MaxTurnover *float64 `yaml:"max_turnover,omitempty" json:"max_turnover,omitempty" default:"1" validate:"omitempty,gte=0,lte=2"`
}

// Backtest 백테스트 구간 및 실행 파라미터
type Backtest struct {
	Start            string   `yaml:"start,omitempty" json:"start,omitempty" validate:"omitempty,datetime=2006-01-02"`
	End              string   `yaml:"end,omitempty" json:"end,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Capital          *float64 `yaml:"capital,omitempty" json:"capital,omitempty" default:"100000000" validate:"omitempty,gt=0"`
	LiquidityMaxPct  *float64 `yaml:"liquidity_max_pct,omitempty" json:"liquidity_max_pct,omitempty" default:"0.1" validate:"omitempty,gt=0,lte=1"`
	FinancialLagDays *int     `yaml:"financial_lag_days,omitempty" json:"financial_lag_days,omitempty" default:"90" validate:"omitempty,gte=0"`
}

// DecisionSnapshot 의사결정 스냅샷 (재현성용)
type DecisionSnapshot struct {
	ConfigHash     string    `json:"config_hash"`
	ConfigYAML     string    `json:"config_yaml"`
	Strategy       string    `json:"strategy"`
	GitCommit      string    `json:"git_commit,omitempty"`
	DataSnapshotID string    `json:"data_snapshot_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
