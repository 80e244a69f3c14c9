package report

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	// DefaultPeriodDays сколько дней, включая сегодня, выгружается по умолчанию.
	DefaultPeriodDays = 30
)

// Period переводит даты YYYY-MM-DD (обе включительно) в полуинтервал
// [from; to+1 день) в часовом поясе now. Пустой fromArg означает
// DefaultPeriodDays дней по to, пустой toArg означает сегодня.
func Period(fromArg, toArg string, now time.Time) (time.Time, time.Time, error) {
	loc := now.Location()
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if toArg != "" {
		t, err := time.ParseInLocation(DateLayout, toArg, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad to date: %w", err)
		}
		to = t
	}

	from := to.AddDate(0, 0, -DefaultPeriodDays+1)
	if fromArg != "" {
		t, err := time.ParseInLocation(DateLayout, fromArg, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("bad from date: %w", err)
		}
		from = t
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to %s is before from %s", to.Format(DateLayout), from.Format(DateLayout))
	}
	return from, to.AddDate(0, 0, 1), nil
}
