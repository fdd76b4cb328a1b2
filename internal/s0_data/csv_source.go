package s0_data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/pkg/logger"
)

// Default file names inside a data directory
const (
	PricesFile       = "prices.csv"
	FundamentalsFile = "fundamentals.csv"
)

// dateLayouts are accepted date cell formats
var dateLayouts = []string{"2006-01-02", "20060102", "2006/01/02"}

// CSVSource reads panels from prices.csv / fundamentals.csv in a directory.
// Columns are matched by header name; empty cells are missing values.
type CSVSource struct {
	dir    string
	logger *logger.Logger
}

// NewCSVSource creates a CSV panel source
func NewCSVSource(dir string, log *logger.Logger) *CSVSource {
	return &CSVSource{dir: dir, logger: log}
}

// Dir returns the data directory
func (s *CSVSource) Dir() string {
	return s.dir
}

// LoadPrices reads prices dated in [from, to]. A zero bound is open.
// Rows without a close are dropped; a missing volume is 0.
func (s *CSVSource) LoadPrices(ctx context.Context, from, to time.Time) (*contracts.PricePanel, error) {
	path := filepath.Join(s.dir, PricesFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prices: %w", err)
	}
	defer f.Close()

	points, dropped, err := ReadPrices(ctx, f, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	panel, err := contracts.NewPricePanel(points)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"stage":       contracts.StagePointInTime.String(),
		"file":        path,
		"rows":        len(points),
		"dropped":     dropped,
		"instruments": len(panel.Instruments()),
	}).Info("Loaded price panel")

	return panel, nil
}

// LoadFundamentals reads every fundamental report
func (s *CSVSource) LoadFundamentals(ctx context.Context) ([]contracts.FundamentalRecord, error) {
	path := filepath.Join(s.dir, FundamentalsFile)
	f, err := os.Open(path)
	if err != nil {
		// 재무 파일은 선택 사항
		if errors.Is(err, os.ErrNotExist) {
			s.logger.WithField("file", path).Warn("No fundamentals file, continuing with prices only")
			return nil, nil
		}
		return nil, fmt.Errorf("open fundamentals: %w", err)
	}
	defer f.Close()

	records, err := ReadFundamentals(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"file":    path,
		"records": len(records),
	}).Info("Loaded fundamentals")

	return records, nil
}

// ReadPrices parses a price table
func ReadPrices(ctx context.Context, r io.Reader, from, to time.Time) ([]contracts.PricePoint, int, error) {
	rows, cols, err := readTable(r, "date", "instrument_id", "close")
	if err != nil {
		return nil, 0, err
	}

	from, to = contracts.Day(from), contracts.Day(to)
	points := make([]contracts.PricePoint, 0, len(rows))
	dropped := 0

	for i, row := range rows {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}
		line := i + 2

		date, err := parseDate(cell(row, cols, "date"))
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		if (!from.IsZero() && date.Before(from)) || (!to.IsZero() && date.After(to)) {
			continue
		}

		id := cell(row, cols, "instrument_id")
		if id == "" {
			return nil, 0, fmt.Errorf("line %d: empty instrument_id", line)
		}

		p := contracts.PricePoint{InstrumentID: id, Date: date, Volume: math.NaN()}
		var ok bool
		if p.Close, ok, err = parseFloat(cell(row, cols, "close")); err != nil {
			return nil, 0, fmt.Errorf("line %d close: %w", line, err)
		} else if !ok {
			dropped++
			continue
		}
		for name, dst := range map[string]*float64{"open": &p.Open, "high": &p.High, "low": &p.Low, "volume": &p.Volume} {
			v, present, err := parseFloat(cell(row, cols, name))
			if err != nil {
				return nil, 0, fmt.Errorf("line %d %s: %w", line, name, err)
			}
			if present {
				*dst = v
			}
		}
		points = append(points, p)
	}

	return points, dropped, nil
}

// ReadFundamentals parses a fundamental table. Empty metric cells are absent keys.
func ReadFundamentals(ctx context.Context, r io.Reader) ([]contracts.FundamentalRecord, error) {
	rows, cols, err := readTable(r, "instrument_id", "report_date")
	if err != nil {
		return nil, err
	}

	records := make([]contracts.FundamentalRecord, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := i + 2

		id := cell(row, cols, "instrument_id")
		if id == "" {
			return nil, fmt.Errorf("line %d: empty instrument_id", line)
		}
		date, err := parseDate(cell(row, cols, "report_date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := contracts.FundamentalRecord{InstrumentID: id, ReportDate: date, Metrics: make(map[string]float64)}
		for _, m := range contracts.FundamentalMetrics() {
			v, ok, err := parseFloat(cell(row, cols, m))
			if err != nil {
				return nil, fmt.Errorf("line %d %s: %w", line, m, err)
			}
			if ok {
				rec.Metrics[m] = v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// readTable reads all rows and indexes the header, requiring the given columns
func readTable(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("empty table")
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", name)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, cols, nil
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return contracts.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// parseFloat returns ok=false for an empty or NaN cell
func parseFloat(s string) (float64, bool, error) {
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}
