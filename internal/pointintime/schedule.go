package pointintime

import (
	"fmt"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
)

// Frequency is a rebalance cadence
type Frequency string

const (
	Daily     Frequency = "D" // 영업일 (주말 제외)
	Weekly    Frequency = "W" // 매주 월요일
	Monthly   Frequency = "M" // 월초
	Quarterly Frequency = "Q" // 분기초
)

// ParseFrequency validates a cadence code
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case Daily, Weekly, Monthly, Quarterly:
		return f, nil
	default:
		return "", fmt.Errorf("unknown rebalance frequency %q", s)
	}
}

// RebalanceDates generates the ordered, deduplicated schedule in [start, end].
// Monthly and quarterly dates are anchored to the first calendar day.
func RebalanceDates(start, end time.Time, freq Frequency) ([]time.Time, error) {
	start, end = contracts.Day(start), contracts.Day(end)
	if end.Before(start) {
		return nil, nil
	}

	var dates []time.Time
	switch freq {
	case Daily:
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
				dates = append(dates, d)
			}
		}
	case Weekly:
		offset := (int(time.Monday) - int(start.Weekday()) + 7) % 7
		for d := start.AddDate(0, 0, offset); !d.After(end); d = d.AddDate(0, 0, 7) {
			dates = append(dates, d)
		}
	case Monthly, Quarterly:
		step := 1
		if freq == Quarterly {
			step = 3
		}
		d := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		if freq == Quarterly {
			q := (int(start.Month()) - 1) / 3
			d = time.Date(start.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
		}
		if d.Before(start) {
			d = d.AddDate(0, step, 0)
		}
		for ; !d.After(end); d = d.AddDate(0, step, 0) {
			dates = append(dates, d)
		}
	default:
		return nil, fmt.Errorf("unknown rebalance frequency %q", freq)
	}

	return dates, nil
}

// PeriodStart returns the latest schedule anchor on or before date.
// Anchors are calendar days and may fall on a weekend.
func PeriodStart(date time.Time, freq Frequency) (time.Time, error) {
	date = contracts.Day(date)
	switch freq {
	case Daily:
		return date, nil
	case Weekly:
		back := (int(date.Weekday()) - int(time.Monday) + 7) % 7
		return date.AddDate(0, 0, -back), nil
	case Monthly:
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case Quarterly:
		q := (int(date.Month()) - 1) / 3
		return time.Date(date.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("unknown rebalance frequency %q", freq)
	}
}

// FirstWeekday returns date itself or the following Monday for a weekend day
func FirstWeekday(date time.Time) time.Time {
	date = contracts.Day(date)
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, 2)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	default:
		return date
	}
}
