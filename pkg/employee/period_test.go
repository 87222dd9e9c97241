package employee

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodOf_DropsDay(t *testing.T) {
	a := PeriodOf(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	b := PeriodOf(time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC))

	assert.Equal(t, a, b)
	assert.False(t, a.Before(b))
	assert.False(t, b.Before(a))
}

func TestPeriod_Before(t *testing.T) {
	tests := []struct {
		name string
		p, o Period
		want bool
	}{
		{"earlier year", Period{2025, time.December}, Period{2026, time.January}, true},
		{"earlier month", Period{2026, time.January}, Period{2026, time.February}, true},
		{"same", Period{2026, time.January}, Period{2026, time.January}, false},
		{"later month", Period{2026, time.May}, Period{2026, time.February}, false},
		{"later year", Period{2027, time.January}, Period{2026, time.December}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Before(tt.o))
		})
	}
}

func TestPeriod_MonthsSinceAndAddMonths(t *testing.T) {
	hired := Period{2026, time.January}

	assert.Equal(t, 0, hired.MonthsSince(hired))
	assert.Equal(t, 12, hired.AddMonths(12).MonthsSince(hired))
	assert.Equal(t, 132, hired.AddMonths(132).MonthsSince(hired))
	assert.Equal(t, Period{2025, time.December}, hired.AddMonths(-1))
	assert.Equal(t, Period{2027, time.March}, Period{2026, time.November}.AddMonths(4))
	assert.Equal(t, Period{2024, time.January}, hired.AddMonths(-24))
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2026-07")
	require.NoError(t, err)
	assert.Equal(t, Period{2026, time.July}, p)

	p, err = ParsePeriod("2026-07-19")
	require.NoError(t, err)
	assert.Equal(t, Period{2026, time.July}, p)

	_, err = ParsePeriod("July 2026")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestNewPeriod_RejectsBadMonth(t *testing.T) {
	_, err := NewPeriod(2026, 13)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = NewPeriod(2026, 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestPeriod_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		P Period `json:"p"`
	}{Period{2026, time.February}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"2026-02"}`, string(data))

	var out struct {
		P Period `json:"p"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"p":"2031-11"}`), &out))
	assert.Equal(t, Period{2031, time.November}, out.P)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Foreman ")
	require.NoError(t, err)
	assert.Equal(t, RoleForeman, r)

	_, err = ParseRole("intern")
	assert.ErrorIs(t, err, ErrUnknownRole)

	assert.False(t, RoleWorker.CanSupervise())
	assert.True(t, RoleForeman.CanSupervise())
	assert.True(t, RoleManager.CanSupervise())
	assert.Equal(t, "role(9)", Role(9).String())
}

func TestDescriptor_Validate(t *testing.T) {
	ok := Descriptor{Role: RoleWorker, BaseSalary: 0, Hired: Period{2026, time.January}}
	assert.NoError(t, ok.Validate())

	neg := ok
	neg.BaseSalary = -1
	assert.ErrorIs(t, neg.Validate(), ErrInvalidBaseSalary)

	nan := ok
	nan.BaseSalary = math.NaN()
	assert.ErrorIs(t, nan.Validate(), ErrInvalidBaseSalary)

	badRole := ok
	badRole.Role = Role(42)
	assert.ErrorIs(t, badRole.Validate(), ErrUnknownRole)

	badPeriod := ok
	badPeriod.Hired = Period{2026, 0}
	assert.ErrorIs(t, badPeriod.Validate(), ErrInvalidPeriod)
}
