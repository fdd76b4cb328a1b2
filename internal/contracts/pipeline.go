package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 메트릭 라벨에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S2 → S4 → S5 → S6 → S7
//   PIT  Signals  Ranker  Portfolio  Simulation  Report

// Stage represents a pipeline stage
type Stage string

const (
	// StagePointInTime S0: 시점 정합성 필터 (룩어헤드 방지)
	// 위치: internal/pointintime/
	StagePointInTime Stage = "S0_POINT_IN_TIME"

	// StageSignals S2: 팩터 계산 및 백분위 정규화
	// 위치: internal/s2_signals/
	StageSignals Stage = "S2_SIGNALS"

	// StageRanker S4: 복합 점수 산출 및 순위 부여
	// 위치: internal/selection/ranker.go
	StageRanker Stage = "S4_RANKER"

	// StagePortfolio S5: 목표 비중 결정, 제약 조건 적용
	// 위치: internal/portfolio/
	StagePortfolio Stage = "S5_PORTFOLIO"

	// StageSimulation S6: 비용 반영 수익률 재생
	// 위치: internal/backtest/
	StageSimulation Stage = "S6_SIMULATION"

	// StageReport S7: 성과 지표, walk-forward 검증
	// 위치: internal/backtest/report.go
	StageReport Stage = "S7_REPORT"
)

// String returns the stage identifier
func (s Stage) String() string {
	return string(s)
}

// AllStages returns stages in pipeline order
func AllStages() []Stage {
	return []Stage{
		StagePointInTime,
		StageSignals,
		StageRanker,
		StagePortfolio,
		StageSimulation,
		StageReport,
	}
}

// Status is the outcome of a stage that degrades instead of failing
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
)
