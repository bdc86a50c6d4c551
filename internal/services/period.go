package services

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"

	"spendwise/internal/models"
)

// PeriodEnd returns the instant a cycle that started at startedAt ends.
//
// Monthly periods land on the same day of the next month, clamped to that
// month's last day (Jan 31 ends on Feb 28 or 29). It panics on an unknown period.
func PeriodEnd(startedAt time.Time, period models.BudgetPeriod) time.Time {
	switch period {
	case models.BudgetPeriodDaily:
		return startedAt.AddDate(0, 0, 1)
	case models.BudgetPeriodWeekly:
		return startedAt.AddDate(0, 0, 7)
	case models.BudgetPeriodMonthly:
		return addCalendarMonth(startedAt)
	default:
		panic(fmt.Sprintf("services: unknown budget period %q", string(period)))
	}
}

// addCalendarMonth avoids time.AddDate's normalization (Jan 31 + 1 month = Mar 3).
func addCalendarMonth(t time.Time) time.Time {
	next := now.With(t).BeginningOfMonth().AddDate(0, 1, 0)
	day := t.Day()
	if last := now.With(next).EndOfMonth().Day(); day > last {
		day = last
	}
	return time.Date(next.Year(), next.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
