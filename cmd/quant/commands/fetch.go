package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/external/naver"
	"github.com/wonny/aegis/pit/internal/s0_data"
	"github.com/wonny/aegis/pit/pkg/config"
	"github.com/wonny/aegis/pit/pkg/httputil"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "네이버 금융 일봉 수집",
	Long: `네이버 금융에서 종목별 일봉을 받아 prices.csv로 저장합니다.

Example:
  go run ./cmd/quant fetch --codes 005930,000660 --from 2020-01-01
  go run ./cmd/quant fetch --codes 005930 --from 2023-01-01 --to 2023-12-31 --data ./data`,
	RunE: runFetch,
}

var (
	fetchCodes string
	fetchFrom  string
	fetchTo    string
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchCodes, "codes", "", "comma separated stock codes (required)")
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "start date (YYYY-MM-DD, required)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "end date (YYYY-MM-DD, default: today)")
	_ = fetchCmd.MarkFlagRequired("codes")
	_ = fetchCmd.MarkFlagRequired("from")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	from, err := parseDateFlag("from", fetchFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", fetchTo)
	if err != nil {
		return err
	}
	if to.IsZero() {
		to = contracts.Day(time.Now())
	}

	// 전략 파일 없이도 수집 가능하도록 세션을 열지 않음
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg)
	log := logger.New(cfg)

	client := naver.NewClient(
		httputil.New(log).WithRateLimit(cfg.Naver.RequestsPerSec, 1),
		log,
		cfg.Naver.BaseURL,
	)

	var points []contracts.PricePoint
	for _, code := range strings.Split(fetchCodes, ",") {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		fetched, err := client.FetchPrices(ctx, code, from, to)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", code, err)
		}
		if !jsonOutput {
			fmt.Printf("  %s: %d rows\n", code, len(fetched))
		}
		points = append(points, fetched...)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(cfg.DataDir, s0_data.PricesFile)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := s0_data.WritePrices(f, points); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if jsonOutput {
		return PrintJSON(map[string]interface{}{"file": path, "rows": len(points)})
	}
	PrintSuccess(fmt.Sprintf("Wrote %d rows to %s", len(points), path))
	return nil
}
