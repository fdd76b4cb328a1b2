package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/pit/internal/brain"
	"github.com/wonny/aegis/pit/internal/contracts"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "팩터 점수 및 랭킹 출력",
	Long: `기준일 시점의 팩터 백분위, 복합 점수, 랭킹을 계산합니다.

기준일 당일 가격은 사용하지 않습니다 (D-1까지만 관찰).

Example:
  go run ./cmd/quant signals --date 2024-03-04
  go run ./cmd/quant signals --date 2024-03-04 --top 30 --json`,
	RunE: runSignals,
}

var (
	signalsDate string
	signalsTop  int
)

func init() {
	rootCmd.AddCommand(signalsCmd)
	signalsCmd.Flags().StringVar(&signalsDate, "date", "", "as-of date (YYYY-MM-DD, default: today)")
	signalsCmd.Flags().IntVar(&signalsTop, "top", 20, "rows to print (0 = all)")
}

func runSignals(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, err := parseDateFlag("date", signalsDate)
	if err != nil {
		return err
	}
	if date.IsZero() {
		date = time.Now()
	}
	date = contracts.Day(date)

	rt, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	input, err := brain.LoadInput(ctx, rt.source, date, date, brain.DefaultWarmupDays)
	if err != nil {
		return err
	}

	scored, err := rt.spec.Orchestrator(nil, rt.log).Score(ctx, date, input)
	if err != nil {
		return fmt.Errorf("scoring failed: %w", err)
	}

	if jsonOutput {
		return PrintJSON(scored)
	}

	PrintHeader("Signals",
		fmt.Sprintf("Strategy : %s", rt.spec.Name),
		fmt.Sprintf("As of    : %s", date.Format(time.DateOnly)),
		fmt.Sprintf("Status   : %s (%d scored)", scored.Table.Status, scored.Table.Count()),
	)
	if scored.Table.Status != contracts.StatusOK {
		PrintWarning("Insufficient data for this date")
		return nil
	}

	factors := scored.Table.Factors
	columns := append([]string{"Rank", "Instrument", "Composite"}, factors...)
	widths := make([]int, len(columns))
	for i := range widths {
		widths[i] = 10
	}
	PrintTableHeader(columns, widths)

	for i, r := range scored.Ranked {
		if signalsTop > 0 && i >= signalsTop {
			break
		}
		row := []string{strconv.Itoa(r.Rank), r.InstrumentID, fmt.Sprintf("%.2f", r.Composite)}
		for _, f := range factors {
			row = append(row, fmt.Sprintf("%.1f", r.Percentiles[f]))
		}
		PrintTableRow(row, widths)
	}
	return nil
}
