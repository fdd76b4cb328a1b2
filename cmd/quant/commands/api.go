package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis/pit/internal/api"
	"github.com/wonny/aegis/pit/internal/api/handlers"
	"github.com/wonny/aegis/pit/pkg/metrics"
	"github.com/wonny/aegis/pit/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 실행",
	Long: `전략 신호/포트폴리오/백테스트 HTTP API 서버를 실행합니다.

Endpoints:
  GET  /health
  GET  /metrics
  GET  /api/strategy
  GET  /api/signals?date=YYYY-MM-DD
  GET  /api/portfolio?date=YYYY-MM-DD
  POST /api/backtest?from=YYYY-MM-DD&to=YYYY-MM-DD
  GET  /ws/backtest (websocket)

Example:
  go run ./cmd/quant api
  PORT=9000 go run ./cmd/quant api --resolve-sectors`,
	RunE: runAPI,
}

var apiSectors bool

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().BoolVar(&apiSectors, "resolve-sectors", false, "look up sectors on Naver Finance at startup")
}

func runAPI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	var recorder *metrics.Recorder
	if rt.cfg.MetricsEnabled {
		recorder = metrics.New()
	}

	var ids []string
	if apiSectors {
		panel, err := rt.source.LoadPrices(ctx, time.Now().AddDate(0, 0, -30), time.Time{})
		if err != nil {
			return err
		}
		ids = panel.Instruments()
	}

	strategy, err := handlers.NewStrategyHandler(rt.spec, rt.source, handlers.Deps{
		Sectors:  rt.sectors(ctx, apiSectors, ids),
		Priors:   rt.priorStore(),
		Cache:    redis.NewCache(rt.redis, "pit"),
		Recorder: recorder,
	}, rt.log)
	if err != nil {
		return err
	}

	router := api.NewRouter(strategy, recorder, api.RouterConfig{
		RateLimit: rt.cfg.APIRateLimit,
		Burst:     int(rt.cfg.APIRateLimit*2) + 1,
	}, rt.log)
	server := api.New(rt.cfg, rt.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
