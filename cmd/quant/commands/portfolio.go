package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/pit/internal/brain"
	"github.com/wonny/aegis/pit/internal/contracts"
)

// portfolioCmd represents the portfolio command
var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "목표 포트폴리오 산출",
	Long: `기준일 시점 파이프라인(S0→S5)을 실행해 목표 비중을 산출합니다.

직전 비중은 prior 저장소(Redis → Postgres → 메모리)에서 읽습니다.
--save 지정 시 결과를 다음 리밸런싱의 prior로 저장합니다.

Example:
  go run ./cmd/quant portfolio --date 2024-03-04
  go run ./cmd/quant portfolio --date 2024-03-04 --resolve-sectors --save`,
	RunE: runPortfolio,
}

var (
	portfolioDate    string
	portfolioSave    bool
	portfolioSectors bool
)

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.Flags().StringVar(&portfolioDate, "date", "", "as-of date (YYYY-MM-DD, default: today)")
	portfolioCmd.Flags().BoolVar(&portfolioSave, "save", false, "store the weights as the next prior")
	portfolioCmd.Flags().BoolVar(&portfolioSectors, "resolve-sectors", false, "look up sectors on Naver Finance")
}

func runPortfolio(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, err := parseDateFlag("date", portfolioDate)
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

	store := rt.priorStore()
	prior, err := store.LoadPrior(ctx, rt.spec.Name)
	if err != nil {
		return err
	}

	sectors := rt.sectors(ctx, portfolioSectors, input.Prices.Instruments())
	result, err := rt.spec.Orchestrator(sectors, rt.log).Run(ctx, brain.RunConfig{Date: date, Prior: prior}, input)
	if err != nil {
		return err
	}

	if portfolioSave && result.Status == contracts.StatusOK {
		if err := store.SavePrior(ctx, rt.spec.Name, date, result.Target.Weights); err != nil {
			return err
		}
	}

	if jsonOutput {
		return PrintJSON(result)
	}

	PrintHeader("Target portfolio",
		fmt.Sprintf("Strategy : %s", rt.spec.Name),
		fmt.Sprintf("As of    : %s", date.Format(time.DateOnly)),
		fmt.Sprintf("Status   : %s", result.Status),
		fmt.Sprintf("Turnover : %s", formatPct(result.Target.Turnover)),
		fmt.Sprintf("HHI      : %.0f (%s)", result.Concentration.HHI, result.Concentration.Level),
	)
	if result.Status != contracts.StatusOK {
		PrintWarning("Insufficient data for this date, no portfolio produced")
		return nil
	}
	PrintWeights(result.Target.Weights, result.Target.Prior)

	fmt.Println()
	for _, s := range result.Concentration.Sectors {
		fmt.Printf("  %-24s %s\n", s.Sector, formatPct(s.Weight))
	}
	if portfolioSave {
		PrintSuccess("Saved as prior weights")
	}
	return nil
}
