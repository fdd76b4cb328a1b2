package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/pit/internal/backtest"
	"github.com/wonny/aegis/pit/internal/brain"
	"github.com/wonny/aegis/pit/internal/s0_data/quality"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "백테스트 실행",
	Long: `전략 설정대로 리밸런싱 일정 전체를 시뮬레이션합니다.

각 리밸런싱 시점은 D-1까지의 데이터만 사용합니다.
결과에는 전체/IS/OOS 성과 지표와 walk-forward 판정이 포함됩니다.

Example:
  go run ./cmd/quant backtest
  go run ./cmd/quant backtest --from 2021-01-01 --to 2023-12-31
  go run ./cmd/quant backtest --resolve-sectors --json`,
	RunE: runBacktest,
}

var (
	backtestFrom    string
	backtestTo      string
	backtestSectors bool
	backtestTrades  bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "start date (YYYY-MM-DD, default: backtest.start)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "end date (YYYY-MM-DD, default: backtest.end)")
	backtestCmd.Flags().BoolVar(&backtestSectors, "resolve-sectors", false, "look up sectors on Naver Finance")
	backtestCmd.Flags().BoolVar(&backtestTrades, "trades", false, "print the rebalance log")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	from, err := parseDateFlag("from", backtestFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", backtestTo)
	if err != nil {
		return err
	}

	rt, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	config, err := rt.spec.BacktestConfig(from, to)
	if err != nil {
		return err
	}

	input, err := brain.LoadInput(ctx, rt.source, config.StartDate, config.EndDate, brain.DefaultWarmupDays)
	if err != nil {
		return err
	}

	// 시작일 기준 입력 품질 (실패해도 진행)
	gate := quality.NewQualityGate(rt.spec.Guard(), quality.DefaultConfig())
	snapshot := gate.Check(config.StartDate, input.Prices, input.Fundamentals)
	if !snapshot.Passed {
		rt.log.WithFields(map[string]interface{}{
			"date":     config.StartDate.Format(time.DateOnly),
			"score":    snapshot.QualityScore,
			"failures": strings.Join(snapshot.Failures, "; "),
		}).Warn("Input quality gate failed")
	}

	sectors := rt.sectors(ctx, backtestSectors, input.Prices.Instruments())
	report, err := rt.spec.Engine(sectors, rt.log).Run(ctx, config, input)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	if jsonOutput {
		return PrintJSON(report)
	}
	printReport(report, backtestTrades)
	return nil
}

func printReport(report *backtest.Report, trades bool) {
	PrintHeader("Backtest",
		fmt.Sprintf("Strategy   : %s", report.Strategy),
		fmt.Sprintf("Hash       : %s", report.ConfigHash),
		fmt.Sprintf("Period     : %s ~ %s", report.Period.Start.Format(time.DateOnly), report.Period.End.Format(time.DateOnly)),
		fmt.Sprintf("Status     : %s", report.Status),
		fmt.Sprintf("Rebalances : %d", len(report.Rebalances)),
	)

	PrintMetrics("Full period", report.Metrics)
	wf := report.WalkForward
	if wf.Split {
		PrintMetrics("In-sample", wf.InSample.Metrics)
		PrintMetrics("Out-of-sample", wf.OutOfSample.Metrics)
	}

	fmt.Println()
	fmt.Printf("  Walk-forward : %s (degradation %.1f%%)\n", wf.Verdict, wf.Degradation)
	fmt.Printf("  Total cost   : %s\n", formatPct(report.TotalCost))
	fmt.Printf("  Holdings     : %d\n", report.Holdings)
	if report.HasWarning() {
		PrintWarning(wf.Warning)
	}

	if trades {
		fmt.Println()
		widths := []int{12, 10, 10, 10}
		PrintTableHeader([]string{"Date", "Positions", "Turnover", "Cost"}, widths)
		for _, e := range report.Rebalances {
			PrintTableRow([]string{
				e.Date.Format(time.DateOnly),
				fmt.Sprintf("%d", len(e.Weights)),
				formatPct(e.Turnover),
				formatPct(e.Cost),
			}, widths)
		}
	}

	if len(report.FinalWeights) > 0 {
		fmt.Println()
		PrintWeights(report.FinalWeights, nil)
	}
}
