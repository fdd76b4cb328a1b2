package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/pit/internal/s0_data"
	"github.com/wonny/aegis/pit/pkg/config"
	"github.com/wonny/aegis/pit/pkg/database"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "CSV 패널을 PostgreSQL로 적재",
	Long: `--data 디렉토리의 prices.csv / fundamentals.csv를 PostgreSQL에 적재합니다.

테이블이 없으면 생성합니다. 같은 키는 덮어씁니다.

Example:
  DATABASE_URL=postgres://... go run ./cmd/quant load --data ./data`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg)
	log := logger.New(cfg)

	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	files := s0_data.NewCSVSource(cfg.DataDir, log)
	repo := s0_data.NewPanelRepository(db.Pool, log)

	panel, err := files.LoadPrices(ctx, time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	var rows int
	for _, id := range panel.Instruments() {
		series := panel.Series(id)
		if err := repo.SavePrices(ctx, series); err != nil {
			return fmt.Errorf("save prices %s: %w", id, err)
		}
		rows += len(series)
	}

	fundamentals, err := files.LoadFundamentals(ctx)
	if err != nil {
		return err
	}
	if err := repo.SaveFundamentals(ctx, fundamentals); err != nil {
		return fmt.Errorf("save fundamentals: %w", err)
	}

	if jsonOutput {
		return PrintJSON(map[string]interface{}{
			"prices":       rows,
			"fundamentals": len(fundamentals),
			"instruments":  len(panel.Instruments()),
		})
	}
	PrintSuccess(fmt.Sprintf("Loaded %d price rows (%d instruments) and %d fundamental records",
		rows, len(panel.Instruments()), len(fundamentals)))
	return nil
}
