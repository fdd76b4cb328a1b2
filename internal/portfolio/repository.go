package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// Repository stores target weights in PostgreSQL
// ⭐ SSOT: 목표 비중 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new portfolio repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SavePrior replaces the weights of (strategy, date) in one transaction
func (r *Repository) SavePrior(ctx context.Context, strategy string, date time.Time, weights contracts.WeightVector) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	day := contracts.Day(date)
	_, err = tx.Exec(ctx,
		"DELETE FROM portfolio.target_weights WHERE strategy = $1 AND target_date = $2",
		strategy, day)
	if err != nil {
		return fmt.Errorf("failed to delete old weights: %w", err)
	}

	batch := &pgx.Batch{}
	for _, id := range weights.Instruments() {
		batch.Queue(
			`INSERT INTO portfolio.target_weights (strategy, target_date, stock_code, weight)
			 VALUES ($1, $2, $3, $4)`,
			strategy, day, id, weights[id],
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert weights: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadPrior returns the most recent saved weights of a strategy
func (r *Repository) LoadPrior(ctx context.Context, strategy string) (contracts.WeightVector, error) {
	query := `
		SELECT stock_code, weight
		FROM portfolio.target_weights
		WHERE strategy = $1
		  AND target_date = (
			SELECT MAX(target_date) FROM portfolio.target_weights WHERE strategy = $1
		  )
	`

	rows, err := r.pool.Query(ctx, query, strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to query weights: %w", err)
	}
	defer rows.Close()

	weights := contracts.WeightVector{}
	for rows.Next() {
		var (
			code   string
			weight float64
		)
		if err := rows.Scan(&code, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan weight: %w", err)
		}
		weights[code] = weight
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return weights, nil
}

// LastRebalance returns the most recent target date of a strategy
func (r *Repository) LastRebalance(ctx context.Context, strategy string) (time.Time, error) {
	var last *time.Time
	err := r.pool.QueryRow(ctx,
		"SELECT MAX(target_date) FROM portfolio.target_weights WHERE strategy = $1",
		strategy).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query last rebalance: %w", err)
	}
	if last == nil {
		return time.Time{}, nil
	}
	return contracts.Day(*last), nil
}
