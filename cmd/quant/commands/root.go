package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyPath string
	dataDir      string
	dataSource   string
	jsonOutput   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Point-in-time 팩터 전략 백테스터",
	Long: `Point-in-time factor strategy CLI

전략 YAML → 팩터 점수 → 랭킹 → 포트폴리오 → 백테스트.
모든 단계는 리밸런싱 시점에 관찰 가능한 데이터만 사용합니다.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant validate --strategy config/strategy.yaml
  go run ./cmd/quant signals --date 2024-03-04
  go run ./cmd/quant backtest --from 2020-01-01 --to 2024-12-31
  go run ./cmd/quant api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// 빈 값이면 환경변수 (STRATEGY_PATH, DATA_DIR, DATA_SOURCE) 사용
	rootCmd.PersistentFlags().StringVar(&strategyPath, "strategy", "", "strategy spec file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory with prices.csv / fundamentals.csv")
	rootCmd.PersistentFlags().StringVar(&dataSource, "source", "", "panel source (csv|postgres)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}
