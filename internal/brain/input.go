package brain

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// DefaultWarmupDays is the calendar history loaded ahead of the first date,
// enough for a 252-day momentum lookback plus holidays
const DefaultWarmupDays = 400

// LoadInput reads the frozen input for dates in [from, to] from a panel source.
// Prices start warmupDays before from; fundamentals are loaded whole and guarded per date.
func LoadInput(ctx context.Context, source contracts.PanelSource, from, to time.Time, warmupDays int) (Input, error) {
	if warmupDays < 0 {
		warmupDays = 0
	}
	prices, err := source.LoadPrices(ctx, contracts.Day(from).AddDate(0, 0, -warmupDays), contracts.Day(to))
	if err != nil {
		return Input{}, fmt.Errorf("load prices failed: %w", err)
	}
	fundamentals, err := source.LoadFundamentals(ctx)
	if err != nil {
		return Input{}, fmt.Errorf("load fundamentals failed: %w", err)
	}
	return Input{Prices: prices, Fundamentals: fundamentals}, nil
}
