package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/aegis/pit/internal/backtest"
	"github.com/wonny/aegis/pit/internal/brain"
	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/portfolio"
	"github.com/wonny/aegis/pit/internal/strategyconfig"
	"github.com/wonny/aegis/pit/pkg/logger"
	"github.com/wonny/aegis/pit/pkg/metrics"
	"github.com/wonny/aegis/pit/pkg/redis"
)

// StrategyHandler serves signals, portfolios and backtests of one strategy
// ⭐ SSOT: 전략 API 핸들러는 이 구조체에서만
type StrategyHandler struct {
	spec         *strategyconfig.Spec
	hash         string
	source       contracts.PanelSource
	orchestrator *brain.Orchestrator
	engine       *backtest.Engine
	priors       portfolio.PriorStore
	cache        *redis.Cache
	recorder     *metrics.Recorder
	logger       *logger.Logger
	upgrader     websocket.Upgrader
	now          func() time.Time
}

// Deps holds the optional collaborators of a StrategyHandler
type Deps struct {
	Sectors  contracts.SectorLookup
	Priors   portfolio.PriorStore // nil이면 빈 prior
	Cache    *redis.Cache         // nil이면 캐시 없음 (매번 실행)
	Recorder *metrics.Recorder
}

// NewStrategyHandler creates a handler for a validated strategy spec
func NewStrategyHandler(spec *strategyconfig.Spec, source contracts.PanelSource, deps Deps, log *logger.Logger) (*StrategyHandler, error) {
	hash, err := strategyconfig.Hash(spec)
	if err != nil {
		return nil, err
	}
	if deps.Priors == nil {
		deps.Priors = portfolio.NewMemoryStore()
	}
	if deps.Cache == nil {
		deps.Cache = redis.NewCache(redis.Disabled(), "pit")
	}
	return &StrategyHandler{
		spec:         spec,
		hash:         hash,
		source:       source,
		orchestrator: spec.Orchestrator(deps.Sectors, log),
		engine:       spec.Engine(deps.Sectors, log),
		priors:       deps.Priors,
		cache:        deps.Cache,
		recorder:     deps.Recorder,
		logger:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}, nil
}

// WithClock overrides the default as-of date source (tests)
func (h *StrategyHandler) WithClock(now func() time.Time) *StrategyHandler {
	h.now = now
	return h
}

// GetStrategy returns the strategy spec and its hash
// GET /api/strategy
func (h *StrategyHandler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"config_hash": h.hash,
		"spec":        h.spec,
		"warnings":    strategyconfig.Warn(h.spec),
	})
}

// GetSignals returns the score and rank table as of a date
// GET /api/signals?date=YYYY-MM-DD
func (h *StrategyHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	date, ok := h.asOf(w, r)
	if !ok {
		return
	}

	input, err := brain.LoadInput(r.Context(), h.source, date, date, brain.DefaultWarmupDays)
	if err != nil {
		h.fail(w, "Failed to load panel", err)
		return
	}

	started := time.Now()
	scored, err := h.orchestrator.Score(r.Context(), date, input)
	if err != nil {
		h.fail(w, "Failed to score", err)
		return
	}
	h.recorder.ObserveStage(contracts.StageSignals.String(), time.Since(started))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategy": h.spec.Name,
		"date":     scored.Date.Format(time.DateOnly),
		"status":   scored.Table.Status,
		"factors":  scored.Table.Factors,
		"scores":   scored.Table.Scores,
		"ranked":   scored.Ranked,
	})
}

// GetPortfolio runs the full pipeline as of a date against the stored prior weights
// GET /api/portfolio?date=YYYY-MM-DD
func (h *StrategyHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	date, ok := h.asOf(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	input, err := brain.LoadInput(ctx, h.source, date, date, brain.DefaultWarmupDays)
	if err != nil {
		h.fail(w, "Failed to load panel", err)
		return
	}
	prior, err := h.priors.LoadPrior(ctx, h.spec.Name)
	if err != nil {
		h.fail(w, "Failed to load prior weights", err)
		return
	}

	result, err := h.orchestrator.Run(ctx, brain.RunConfig{Date: date, Prior: prior}, input)
	if err != nil {
		h.recorder.RecordRun("pipeline", "error")
		h.fail(w, "Pipeline run failed", err)
		return
	}
	h.recorder.RecordRun("pipeline", string(result.Status))
	h.recorder.ObserveStage("pipeline", result.Duration)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategy":      h.spec.Name,
		"run_id":        result.RunID,
		"date":          result.Date.Format(time.DateOnly),
		"status":        result.Status,
		"weights":       result.Target.Weights,
		"prior":         result.Target.Prior,
		"turnover":      result.Target.Turnover,
		"concentration": result.Concentration,
	})
}

// RunBacktest runs (or serves from cache) the backtest over a window
// POST /api/backtest?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *StrategyHandler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	config, ok := h.backtestConfig(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	var report backtest.Report
	key := redis.ReportKey(h.hash, config.StartDate.Format(time.DateOnly), config.EndDate.Format(time.DateOnly))
	hit, err := h.cache.GetOrSet(ctx, key, &report, redis.TTLReport, func() (interface{}, error) {
		return h.runBacktest(ctx, config)
	})
	if err != nil {
		h.fail(w, "Backtest failed", err)
		return
	}

	if hit {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	respondJSON(w, http.StatusOK, &report)
}

// streamMessage is one websocket frame of a streamed backtest
type streamMessage struct {
	Type string      `json:"type"` // rebalance, report, error
	Data interface{} `json:"data"`
}

// StreamBacktest upgrades to a websocket and streams rebalance events, then the report
// GET /ws/backtest?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *StrategyHandler) StreamBacktest(w http.ResponseWriter, r *http.Request) {
	config, ok := h.backtestConfig(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// 클라이언트 종료 감지
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	// OnRebalance는 엔진 고루틴에서 날짜 순으로 호출됨 (단일 writer)
	config.OnRebalance = func(event contracts.RebalanceEvent) {
		if err := conn.WriteJSON(streamMessage{Type: "rebalance", Data: event}); err != nil {
			cancel()
		}
	}

	report, err := h.runBacktest(ctx, config)
	if err != nil {
		_ = conn.WriteJSON(streamMessage{Type: "error", Data: err.Error()})
		return
	}
	report.Rebalances = nil // 이미 스트리밍됨
	if err := conn.WriteJSON(streamMessage{Type: "report", Data: report}); err != nil {
		h.logger.WithError(err).Warn("Failed to send report")
		return
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}

func (h *StrategyHandler) runBacktest(ctx context.Context, config backtest.Config) (*backtest.Report, error) {
	input, err := brain.LoadInput(ctx, h.source, config.StartDate, config.EndDate, brain.DefaultWarmupDays)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	report, err := h.engine.Run(ctx, config, input)
	if err != nil {
		h.recorder.RecordRun("backtest", "error")
		return nil, err
	}
	h.recorder.RecordRun("backtest", string(report.Status))
	h.recorder.ObserveStage(contracts.StageSimulation.String(), time.Since(started))
	h.recorder.SetBacktestMetrics(report.Strategy, map[string]float64{
		"cagr":    report.Metrics.CAGR,
		"sharpe":  report.Metrics.Sharpe,
		"sortino": report.Metrics.Sortino,
		"mdd":     report.Metrics.MDD,
	})
	return report, nil
}

func (h *StrategyHandler) backtestConfig(w http.ResponseWriter, r *http.Request) (backtest.Config, bool) {
	from, err := queryDate(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return backtest.Config{}, false
	}
	to, err := queryDate(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return backtest.Config{}, false
	}
	config, err := h.spec.BacktestConfig(from, to)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return backtest.Config{}, false
	}
	return config, true
}

func (h *StrategyHandler) asOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	date, err := queryDate(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return time.Time{}, false
	}
	if date.IsZero() {
		date = h.now()
	}
	return contracts.Day(date), true
}

func (h *StrategyHandler) fail(w http.ResponseWriter, message string, err error) {
	h.logger.WithError(err).Error(message)
	respondError(w, http.StatusInternalServerError, message+": "+err.Error())
}
