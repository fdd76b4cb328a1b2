package contracts

import (
	"context"
	"time"
)

// PanelSource supplies the frozen input panels of a run
// ⭐ SSOT: 입력 패널 인터페이스 (CSV, Postgres)
type PanelSource interface {
	LoadPrices(ctx context.Context, from, to time.Time) (*PricePanel, error)
	LoadFundamentals(ctx context.Context) ([]FundamentalRecord, error)
}

// SectorLookup maps an instrument to its sector id
// 미분류 종목은 UnclassifiedSector 반환
type SectorLookup interface {
	SectorOf(instrumentID string) string
}

// UnclassifiedSector is the default sector id
const UnclassifiedSector = "unclassified"
