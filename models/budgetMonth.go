package models

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidBudgetMonth = errors.New("budget month must be MM-YYYY")

	strictBudgetMonth  = regexp.MustCompile(`^(\d{2})-(\d{4})$`)
	lenientBudgetMonth = regexp.MustCompile(`^(\d{1,2})\s*[-/]\s*(\d{4})$`)
)

// BudgetMonth is a calendar month in the shop's reporting calendar (UTC).
type BudgetMonth struct {
	Month time.Month
	Year  int
}

// ParseBudgetMonth accepts exactly "MM-YYYY".
func ParseBudgetMonth(s string) (BudgetMonth, error) {
	m := strictBudgetMonth.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return BudgetMonth{}, ErrInvalidBudgetMonth
	}
	return newBudgetMonth(m[1], m[2])
}

// NormalizeBudgetMonth accepts the looser forms merchants type into order
// note attributes ("1-2025", "01/2025") and returns the canonical form.
func NormalizeBudgetMonth(s string) (string, error) {
	m := lenientBudgetMonth.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", ErrInvalidBudgetMonth
	}
	bm, err := newBudgetMonth(m[1], m[2])
	if err != nil {
		return "", err
	}
	return bm.String(), nil
}

// MonthYear builds a budget month from separate "MM" and "YYYY" query values.
func MonthYear(month, year string) (BudgetMonth, error) {
	month, year = strings.TrimSpace(month), strings.TrimSpace(year)
	if len(month) != 2 || len(year) != 4 {
		return BudgetMonth{}, ErrInvalidBudgetMonth
	}
	return newBudgetMonth(month, year)
}

func BudgetMonthOf(t time.Time) BudgetMonth {
	t = t.UTC()
	return BudgetMonth{Month: t.Month(), Year: t.Year()}
}

func newBudgetMonth(month, year string) (BudgetMonth, error) {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return BudgetMonth{}, ErrInvalidBudgetMonth
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return BudgetMonth{}, ErrInvalidBudgetMonth
	}
	return BudgetMonth{Month: time.Month(m), Year: y}, nil
}

func (b BudgetMonth) String() string {
	return fmt.Sprintf("%02d-%04d", int(b.Month), b.Year)
}

func (b BudgetMonth) IsZero() bool {
	return b.Month == 0 && b.Year == 0
}

// Start is the first instant of the month.
func (b BudgetMonth) Start() time.Time {
	return time.Date(b.Year, b.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month (exclusive bound).
func (b BudgetMonth) End() time.Time {
	return b.Start().AddDate(0, 1, 0)
}

// DaysInMonth counts calendar days, leap years included.
func (b BudgetMonth) DaysInMonth() int {
	// day 0 of next month is the last day of this one
	return time.Date(b.Year, b.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
