package backtest

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/aegis/pit/internal/brain"
	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/internal/cost"
	"github.com/wonny/aegis/pit/internal/pointintime"
	"github.com/wonny/aegis/pit/internal/portfolio"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// DefaultCapital is the notional used for liquidity sizing (1억원)
const DefaultCapital = 100_000_000

// Engine runs multi-period backtests
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	orchestrator *brain.Orchestrator
	model        cost.Model
	logger       *logger.Logger
}

// Config holds backtest configuration
type Config struct {
	Strategy    string
	ConfigHash  string
	StartDate   time.Time
	EndDate     time.Time
	Frequency   pointintime.Frequency
	Capital     float64 // 유동성 검증용 명목 자본
	Concurrency int     // 날짜별 스코어링 동시성 (0 = NumCPU)

	// OnRebalance is called after each rebalance, in date order
	OnRebalance func(contracts.RebalanceEvent)
}

// foldState is carried from one rebalance period to the next
type foldState struct {
	weights contracts.WeightVector // 직전 기간 말 (drift 반영) 비중
	equity  float64
	pending float64 // 아직 차감되지 않은 회전율
}

// NewEngine creates a new backtest engine
func NewEngine(orchestrator *brain.Orchestrator, model cost.Model, logger *logger.Logger) *Engine {
	return &Engine{
		orchestrator: orchestrator,
		model:        model,
		logger:       logger,
	}
}

// Run executes the backtest as an ordered fold over the rebalance schedule.
// Scoring of all dates runs concurrently; construction and replay are sequential
// because each date's prior is the previous period's drifted weights.
func (e *Engine) Run(ctx context.Context, config Config, input brain.Input) (*Report, error) {
	startTime := time.Now()

	e.logger.WithFields(map[string]interface{}{
		"strategy":   config.Strategy,
		"start_date": config.StartDate.Format("2006-01-02"),
		"end_date":   config.EndDate.Format("2006-01-02"),
		"frequency":  string(config.Frequency),
	}).Info("Starting backtest")

	dates, err := pointintime.RebalanceDates(config.StartDate, config.EndDate, config.Frequency)
	if err != nil {
		return nil, err
	}

	if len(dates) == 0 || input.Prices.IsEmpty() {
		e.logger.Warn("No rebalance dates or prices in range")
		return NewReport(config.Strategy, nil, nil, nil, nil, e.model), nil
	}

	scored, err := e.scoreAll(ctx, dates, input, config.Concurrency)
	if err != nil {
		return nil, err
	}

	matrix := NewReturnMatrix(input.Prices)
	endIdx := matrix.IndexAfter(config.EndDate)
	capital := config.Capital
	if capital <= 0 {
		capital = DefaultCapital
	}

	state := foldState{weights: contracts.WeightVector{}, equity: 1.0}
	series := make(contracts.ReturnSeries, 0, endIdx)
	events := make([]contracts.RebalanceEvent, 0, len(dates))
	var trades []contracts.TradeLogEntry

	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target, err := e.orchestrator.Construct(ctx, scored[i], state.weights)
		if err != nil {
			return nil, fmt.Errorf("construct %s: %w", date.Format("2006-01-02"), err)
		}

		exec := e.execute(date, state.weights, target, scored[i].Prices, capital*state.equity)
		turnover := cost.Turnover(state.weights, exec.Weights)

		event := contracts.RebalanceEvent{
			Date:     date,
			Weights:  exec.Weights,
			Prior:    state.weights,
			Turnover: turnover,
			Cost:     e.model.CostOfTurnover(turnover),
			Status:   target.Status,
		}
		events = append(events, event)
		trades = append(trades, exec.Trades...)
		if config.OnRebalance != nil {
			config.OnRebalance(event)
		}

		// 보유 기간: (R, 다음 R]
		to := endIdx
		if i+1 < len(dates) {
			to = min(matrix.IndexAfter(dates[i+1]), endIdx)
		}

		state.pending += turnover
		state.weights = exec.Weights
		for k := matrix.IndexAfter(date); k < to; k++ {
			r := matrix.PortfolioReturn(state.weights, k)
			if state.pending > 0 {
				r = e.model.ApplyCostToReturn(r, state.pending)
				state.pending = 0
			}
			series = append(series, contracts.ReturnPoint{Date: matrix.Dates()[k], Return: r})
			state.equity *= 1 + r
			state.weights = matrix.Drift(state.weights, k)
		}

		e.logger.WithFields(map[string]interface{}{
			"date":      date.Format("2006-01-02"),
			"status":    string(target.Status),
			"positions": len(exec.Weights),
			"turnover":  turnover,
			"equity":    state.equity,
		}).Debug("Rebalanced")
	}

	report := NewReport(config.Strategy, series, events, trades, state.weights, e.model)
	report.ConfigHash = config.ConfigHash

	e.logger.WithFields(map[string]interface{}{
		"duration":     time.Since(startTime).Seconds(),
		"trading_days": len(series),
		"rebalances":   len(events),
		"total_return": fmt.Sprintf("%.2f%%", series.TotalReturn()*100),
		"sharpe_ratio": fmt.Sprintf("%.2f", report.Metrics.Sharpe),
		"max_drawdown": fmt.Sprintf("%.2f%%", report.Metrics.MDD*100),
		"verdict":      string(report.WalkForward.Verdict),
	}).Info("Backtest completed")

	if report.HasWarning() {
		e.logger.WithField("warning", report.WalkForward.Warning).Warn("Walk-forward check failed")
	}

	return report, nil
}

// execute fills the target against the prior. A date without enough data
// keeps the drifted prior and trades nothing.
func (e *Engine) execute(date time.Time, prior contracts.WeightVector, target *contracts.TargetPortfolio, prices *contracts.PricePanel, capital float64) portfolio.Execution {
	if target.Status != contracts.StatusOK {
		return portfolio.Execution{Weights: prior.Clone()}
	}

	exec := portfolio.SizeOrders(date, prior, target.Weights, prices, capital, e.model)
	if exec.Unchecked > 0 {
		e.logger.WithFields(map[string]interface{}{
			"date":   date.Format("2006-01-02"),
			"orders": exec.Unchecked,
		}).Warn("Volume unknown, liquidity check skipped")
	}
	return exec
}

// scoreAll scores every rebalance date concurrently over the frozen input
func (e *Engine) scoreAll(ctx context.Context, dates []time.Time, input brain.Input, concurrency int) ([]*brain.Scored, error) {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	scored := make([]*brain.Scored, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, date := range dates {
		g.Go(func() error {
			s, err := e.orchestrator.Score(gctx, date, input)
			if err != nil {
				return fmt.Errorf("score %s: %w", date.Format("2006-01-02"), err)
			}
			scored[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}
