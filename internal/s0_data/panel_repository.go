package s0_data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// saveBatchSize bounds one upsert transaction
const saveBatchSize = 500

// PanelRepository reads and writes panels in PostgreSQL
// ⭐ SSOT: 가격/재무 데이터 저장소는 여기서만
type PanelRepository struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPanelRepository creates a new panel repository
func NewPanelRepository(pool *pgxpool.Pool, log *logger.Logger) *PanelRepository {
	return &PanelRepository{pool: pool, logger: log}
}

// LoadPrices retrieves prices within [from, to]. A zero bound is open.
func (r *PanelRepository) LoadPrices(ctx context.Context, from, to time.Time) (*contracts.PricePanel, error) {
	query := `
		SELECT stock_code, trade_date, open_price, high_price, low_price, close_price, volume
		FROM data.daily_prices
		WHERE close_price IS NOT NULL
		  AND ($1::date IS NULL OR trade_date >= $1)
		  AND ($2::date IS NULL OR trade_date <= $2)
		ORDER BY stock_code, trade_date
	`

	rows, err := r.pool.Query(ctx, query, nullableDate(from), nullableDate(to))
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var points []contracts.PricePoint
	for rows.Next() {
		var (
			p                       contracts.PricePoint
			open, high, low, volume *float64
		)
		if err := rows.Scan(&p.InstrumentID, &p.Date, &open, &high, &low, &p.Close, &volume); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		p.Date = contracts.Day(p.Date)
		p.Open, p.High, p.Low = valueOr(open), valueOr(high), valueOr(low)
		p.Volume = math.NaN()
		if volume != nil {
			p.Volume = *volume
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	panel, err := contracts.NewPricePanel(points)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(map[string]interface{}{
		"rows":        len(points),
		"instruments": len(panel.Instruments()),
	}).Info("Loaded price panel from database")

	return panel, nil
}

// LoadFundamentals retrieves every fundamental report. NULL metrics are absent keys.
func (r *PanelRepository) LoadFundamentals(ctx context.Context) ([]contracts.FundamentalRecord, error) {
	query := `
		SELECT stock_code, report_date, per, pbr, roe, debt_ratio, op_margin
		FROM data.fundamentals
		ORDER BY stock_code, report_date
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query fundamentals: %w", err)
	}
	defer rows.Close()

	var records []contracts.FundamentalRecord
	for rows.Next() {
		var (
			rec    contracts.FundamentalRecord
			values = make([]*float64, len(contracts.FundamentalMetrics()))
		)
		dest := []interface{}{&rec.InstrumentID, &rec.ReportDate}
		for i := range values {
			dest = append(dest, &values[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan fundamental: %w", err)
		}

		rec.ReportDate = contracts.Day(rec.ReportDate)
		rec.Metrics = make(map[string]float64)
		for i, m := range contracts.FundamentalMetrics() {
			if values[i] != nil {
				rec.Metrics[m] = *values[i]
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return records, nil
}

// SavePrices upserts price rows in batches
func (r *PanelRepository) SavePrices(ctx context.Context, points []contracts.PricePoint) error {
	query := `
		INSERT INTO data.daily_prices (
			stock_code, trade_date, open_price, high_price, low_price, close_price, volume
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_code, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`

	return r.saveInBatches(ctx, "prices", len(points), func(batch *pgx.Batch, i int) {
		p := points[i]
		var volume *float64 // NULL = 미상
		if p.HasVolume() {
			volume = &p.Volume
		}
		batch.Queue(query, p.InstrumentID, p.Date, p.Open, p.High, p.Low, p.Close, volume)
	})
}

// SaveFundamentals upserts fundamental reports in batches
func (r *PanelRepository) SaveFundamentals(ctx context.Context, records []contracts.FundamentalRecord) error {
	query := `
		INSERT INTO data.fundamentals (
			stock_code, report_date, per, pbr, roe, debt_ratio, op_margin
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stock_code, report_date) DO UPDATE SET
			per = EXCLUDED.per,
			pbr = EXCLUDED.pbr,
			roe = EXCLUDED.roe,
			debt_ratio = EXCLUDED.debt_ratio,
			op_margin = EXCLUDED.op_margin
	`

	return r.saveInBatches(ctx, "fundamentals", len(records), func(batch *pgx.Batch, i int) {
		rec := records[i]
		args := []interface{}{rec.InstrumentID, rec.ReportDate}
		for _, m := range contracts.FundamentalMetrics() {
			if v, ok := rec.Metric(m); ok {
				args = append(args, v)
			} else {
				args = append(args, nil)
			}
		}
		batch.Queue(query, args...)
	})
}

// saveInBatches runs one transaction per saveBatchSize rows
func (r *PanelRepository) saveInBatches(ctx context.Context, table string, n int, queue func(*pgx.Batch, int)) error {
	for start := 0; start < n; start += saveBatchSize {
		end := min(start+saveBatchSize, n)

		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction (batch %d): %w", start/saveBatchSize, err)
		}

		batch := &pgx.Batch{}
		for i := start; i < end; i++ {
			queue(batch, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("upsert %s (batch %d): %w", table, start/saveBatchSize, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction (batch %d): %w", start/saveBatchSize, err)
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"table": table,
		"rows":  n,
	}).Info("Saved rows")

	return nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := contracts.Day(t)
	return &d
}

func valueOr(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
