package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted section header
func PrintHeader(title string, lines ...string) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", title)
	if len(lines) > 0 {
		PrintSeparator()
		for _, line := range lines {
			fmt.Printf("  %s\n", line)
		}
	}
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintJSON writes v as indented JSON to stdout
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	for i := 0; i < totalWidth; i++ {
		fmt.Print("─")
	}
	fmt.Println()
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintWeights prints a weight vector sorted by weight descending
func PrintWeights(weights contracts.WeightVector, prior contracts.WeightVector) {
	ids := contracts.Union(weights, prior)
	sort.SliceStable(ids, func(i, j int) bool {
		if weights.Get(ids[i]) != weights.Get(ids[j]) {
			return weights.Get(ids[i]) > weights.Get(ids[j])
		}
		return ids[i] < ids[j]
	})

	widths := []int{12, 10, 10, 6}
	PrintTableHeader([]string{"Instrument", "Weight", "Prior", "Action"}, widths)
	for _, id := range ids {
		PrintTableRow([]string{
			id,
			formatPct(weights.Get(id)),
			formatPct(prior.Get(id)),
			string(contracts.ActionFor(prior.Get(id), weights.Get(id))),
		}, widths)
	}
}

// PrintMetrics prints a metric tuple
func PrintMetrics(label string, m contracts.PerformanceMetrics) {
	fmt.Printf("  %-14s CAGR %8s  Sharpe %6.2f  Sortino %6.2f  MDD %8s  Win %6s  PF %s\n",
		label,
		formatPct(m.CAGR),
		m.Sharpe,
		m.Sortino,
		formatPct(m.MDD),
		formatPct(m.WinRate),
		formatRatio(m.ProfitFactor),
	)
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func formatRatio(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", v)
}
