package s0_data

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// priceHeader is the column order written by WritePrices
var priceHeader = []string{"date", "instrument_id", "open", "high", "low", "close", "volume"}

// WritePrices writes points as a prices.csv table sorted by (date, instrument_id)
func WritePrices(w io.Writer, points []contracts.PricePoint) error {
	sorted := make([]contracts.PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].InstrumentID < sorted[j].InstrumentID
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(priceHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range sorted {
		record := []string{
			contracts.Day(p.Date).Format("2006-01-02"),
			p.InstrumentID,
			formatFloat(p.Open),
			formatFloat(p.High),
			formatFloat(p.Low),
			formatFloat(p.Close),
			formatVolume(p),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write %s %s: %w", p.InstrumentID, record[0], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatVolume leaves the cell empty when volume is unknown
func formatVolume(p contracts.PricePoint) string {
	if !p.HasVolume() {
		return ""
	}
	return formatFloat(p.Volume)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
