package employee

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid period")

const periodLayout = "2006-01"

// Period is a calendar month. Day-of-month never takes part in comparisons.
type Period struct {
	Year  int
	Month time.Month
}

// NewPeriod returns the period for year and month, rejecting months outside 1..12.
func NewPeriod(year int, month time.Month) (Period, error) {
	p := Period{Year: year, Month: month}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// PeriodOf truncates t to its month.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod accepts "YYYY-MM" and full "YYYY-MM-DD" dates; the day is dropped.
func ParsePeriod(s string) (Period, error) {
	if t, err := time.Parse(periodLayout, s); err == nil {
		return PeriodOf(t), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return PeriodOf(t), nil
	}
	return Period{}, fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidPeriod, s)
}

func (p Period) Validate() error {
	if p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, int(p.Month))
	}
	return nil
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// MonthsSince returns the number of whole months from o to p.
func (p Period) MonthsSince(o Period) int {
	return 12*(p.Year-o.Year) + int(p.Month) - int(o.Month)
}

// AddMonths shifts the period by n months (n may be negative).
func (p Period) AddMonths(n int) Period {
	total := p.Year*12 + int(p.Month) - 1 + n
	year := total / 12
	month := total % 12
	if month < 0 {
		month += 12
		year--
	}
	return Period{Year: year, Month: time.Month(month + 1)}
}

// Time returns the first instant of the period in UTC.
func (p Period) Time() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) MarshalText() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
