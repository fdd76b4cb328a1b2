package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/external/naver"
	"github.com/wonny/aegis/pit/internal/portfolio"
	"github.com/wonny/aegis/pit/internal/s0_data"
	"github.com/wonny/aegis/pit/internal/strategyconfig"
	"github.com/wonny/aegis/pit/pkg/config"
	"github.com/wonny/aegis/pit/pkg/database"
	"github.com/wonny/aegis/pit/pkg/httputil"
	"github.com/wonny/aegis/pit/pkg/logger"
	"github.com/wonny/aegis/pit/pkg/redis"
)

// session bundles what every command needs
type session struct {
	cfg    *config.Config
	log    *logger.Logger
	spec   *strategyconfig.Spec
	raw    []byte
	source contracts.PanelSource
	db     *database.DB
	redis  *redis.Client
}

// openSession reads config, the strategy spec and opens the panel source.
// Invalid specs fail here, before any computation.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg)

	log := logger.New(cfg)

	spec, raw, err := strategyconfig.Load(cfg.StrategyPath)
	if err != nil {
		return nil, err
	}
	for _, w := range strategyconfig.Warn(spec) {
		log.WithFields(map[string]interface{}{
			"code":    w.Code,
			"message": w.Message,
		}).Warn("Strategy warning")
	}

	rt := &session{cfg: cfg, log: log, spec: spec, raw: raw}

	switch cfg.DataSource {
	case config.DataSourcePostgres:
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		rt.db = db
		rt.source = s0_data.NewPanelRepository(db.Pool, log)
	default:
		rt.source = s0_data.NewCSVSource(cfg.DataDir, log)
	}

	rc, err := redis.New(ctx, cfg)
	if err != nil {
		// 캐시 없이도 동작
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rc = redis.Disabled()
	}
	rt.redis = rc

	return rt, nil
}

// applyFlags lets global flags override the environment
func applyFlags(cfg *config.Config) {
	if strategyPath != "" {
		cfg.StrategyPath = strategyPath
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if dataSource != "" {
		cfg.DataSource = dataSource
	}
}

// Close releases the database pool and redis connection
func (rt *session) Close() {
	if rt.db != nil {
		rt.db.Close()
	}
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
}

// priorStore picks redis when enabled, then postgres, else process memory
func (rt *session) priorStore() portfolio.PriorStore {
	if rt.redis.Enabled() {
		return portfolio.NewRedisStore(rt.redis)
	}
	if rt.db != nil {
		return portfolio.NewRepository(rt.db.Pool)
	}
	return portfolio.NewMemoryStore()
}

// sectors returns the static KOSPI table, optionally refined by Naver industry pages
func (rt *session) sectors(ctx context.Context, resolve bool, ids []string) contracts.SectorLookup {
	static := portfolio.DefaultKOSPISectors()
	if !resolve {
		return static
	}

	client := naver.NewClient(
		httputil.New(rt.log).WithRateLimit(rt.cfg.Naver.RequestsPerSec, 1),
		rt.log,
		rt.cfg.Naver.BaseURL,
	)
	resolver := naver.NewSectorResolver(client, redis.NewCache(rt.redis, "pit"), static, rt.log)
	if _, err := resolver.Resolve(ctx, ids); err != nil {
		rt.log.WithError(err).Warn("Sector resolution aborted, using static table")
	}
	return resolver
}

// parseDateFlag parses an optional YYYY-MM-DD flag value
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: %w", name, value, err)
	}
	return t, nil
}
