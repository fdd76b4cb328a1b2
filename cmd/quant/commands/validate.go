package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/pit/internal/strategyconfig"
	"github.com/wonny/aegis/pit/pkg/config"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "전략 설정 검증",
	Long: `전략 YAML/JSON을 검증하고 결정 스냅샷(해시)을 출력합니다.

모든 위반 사항을 한 번에 보고하며, 하나라도 있으면 실패합니다.

Example:
  go run ./cmd/quant validate --strategy config/strategy.yaml
  go run ./cmd/quant validate --json`,
	RunE: runValidate,
}

var validateCommit string

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateCommit, "commit", "", "git commit recorded in the snapshot")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg)

	spec, raw, err := strategyconfig.Load(cfg.StrategyPath)
	if err != nil {
		var verrs strategyconfig.ValidationErrors
		if errors.As(err, &verrs) {
			PrintHeader("Strategy invalid", cfg.StrategyPath)
			for _, v := range verrs {
				PrintError(v.Error())
			}
		}
		return err
	}

	snapshot, err := strategyconfig.NewDecisionSnapshot(spec, raw, validateCommit, "")
	if err != nil {
		return err
	}
	warnings := strategyconfig.Warn(spec)

	if jsonOutput {
		return PrintJSON(map[string]interface{}{
			"snapshot": snapshot,
			"warnings": warnings,
		})
	}

	PrintHeader("Strategy valid",
		fmt.Sprintf("Name      : %s", spec.Name),
		fmt.Sprintf("File      : %s", cfg.StrategyPath),
		fmt.Sprintf("Hash      : %s", snapshot.ConfigHash),
		fmt.Sprintf("Rebalance : %s", spec.Rebalance.Freq),
		fmt.Sprintf("Factors   : %d (%s)", len(spec.Factors), spec.Signal.Method),
		fmt.Sprintf("Portfolio : %s, N=%d", spec.Portfolio.Method, spec.Portfolio.N),
	)
	for _, w := range warnings {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	PrintSuccess("No violations")
	return nil
}
