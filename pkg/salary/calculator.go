// Package salary computes role-dependent monthly pay over the chief hierarchy.
//
// A worker earns base pay plus a seniority bonus. A foreman adds a share of the
// full salaries of their direct subordinates, and a manager a share of the full
// salaries of every transitive subordinate. Subordinate salaries are themselves
// computed recursively, so bonuses compound through the tree.
//
// The Calculator reads the roster and the hierarchy without locking them. The
// caller must keep both unchanged for the duration of a call.
package salary

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rmax-ai/orgchart/pkg/employee"
)

// Directory resolves roster entries.
type Directory interface {
	Employee(id uuid.UUID) (employee.Employee, bool)
}

// Relations answers subordinate queries on the hierarchy.
type Relations interface {
	DirectSubordinates(id uuid.UUID) []uuid.UUID
	AllSubordinates(id uuid.UUID) []uuid.UUID
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithPolicy replaces the default pay rates.
func WithPolicy(p Policy) Option {
	return func(c *Calculator) {
		c.policy = p
	}
}

// Calculator evaluates monthly salaries.
type Calculator struct {
	dir    Directory
	rel    Relations
	policy Policy
}

// NewCalculator creates a calculator over the given roster and hierarchy.
func NewCalculator(dir Directory, rel Relations, opts ...Option) *Calculator {
	c := &Calculator{
		dir:    dir,
		rel:    rel,
		policy: DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxDepth <= 0 {
		c.policy.MaxDepth = DefaultMaxDepth
	}
	return c
}

// Policy returns the rates in effect.
func (c *Calculator) Policy() Policy {
	return c.policy
}

type outcome struct {
	amount float64
	ok     bool
}

// run holds per-call state. Results are exact for the call because the
// hierarchy is frozen by the caller while it lasts.
type run struct {
	c      *Calculator
	period employee.Period
	memo   map[uuid.UUID]outcome
}

// MonthSalary returns the salary of id for the given month.
//
// ok is false when the month precedes the hire month of the employee or of any
// subordinate that contributes to the figure; the amount is then zero. A non-nil
// error is a *ConsistencyError and means the computation could not be carried
// out at all.
func (c *Calculator) MonthSalary(id uuid.UUID, period employee.Period) (float64, bool, error) {
	r := &run{
		c:      c,
		period: period,
		memo:   make(map[uuid.UUID]outcome),
	}
	res, err := r.salary(id, 0)
	if err != nil {
		return 0, false, err
	}
	return res.amount, res.ok, nil
}

func (r *run) salary(id uuid.UUID, depth int) (outcome, error) {
	if res, ok := r.memo[id]; ok {
		return res, nil
	}
	if depth > r.c.policy.MaxDepth {
		return outcome{}, &ConsistencyError{EmployeeID: id, Cause: ErrDepthExceeded}
	}

	emp, ok := r.c.dir.Employee(id)
	if !ok {
		return outcome{}, &ConsistencyError{EmployeeID: id, Cause: ErrUnknownEmployee}
	}

	var (
		res outcome
		err error
	)
	switch emp.Role {
	case employee.RoleWorker:
		res = r.worker(emp)
	case employee.RoleForeman:
		res, err = r.foreman(emp, depth)
	case employee.RoleManager:
		res, err = r.manager(emp, depth)
	default:
		return outcome{}, &ConsistencyError{
			EmployeeID: id,
			Cause:      fmt.Errorf("%w: %s", ErrUnknownRole, emp.Role),
		}
	}
	if err != nil {
		return outcome{}, err
	}

	r.memo[id] = res
	return res, nil
}

// fullYears returns completed years of service, or false when the period
// precedes the hire month.
func (r *run) fullYears(emp employee.Employee) (int, bool) {
	if r.period.Before(emp.Hired) {
		return 0, false
	}
	return r.period.MonthsSince(emp.Hired) / 12, true
}

func (r *run) worker(emp employee.Employee) outcome {
	years, ok := r.fullYears(emp)
	if !ok {
		return outcome{}
	}
	p := r.c.policy
	bonus := min(p.WorkerBonusCap*emp.BaseSalary, p.WorkerYearlyRate*float64(years)*emp.BaseSalary)
	return outcome{amount: emp.BaseSalary + bonus, ok: true}
}

func (r *run) foreman(emp employee.Employee, depth int) (outcome, error) {
	years, ok := r.fullYears(emp)
	if !ok {
		return outcome{}, nil
	}
	p := r.c.policy
	bonus := min(p.ForemanBonusCap*emp.BaseSalary, p.ForemanYearlyRate*float64(years)*emp.BaseSalary)

	total, ok, err := r.sum(r.c.rel.DirectSubordinates(emp.ID), depth)
	if err != nil || !ok {
		return outcome{}, err
	}
	return outcome{amount: emp.BaseSalary + bonus + p.ForemanSubordinateShare*total, ok: true}, nil
}

func (r *run) manager(emp employee.Employee, depth int) (outcome, error) {
	if _, ok := r.fullYears(emp); !ok {
		return outcome{}, nil
	}

	total, ok, err := r.sum(r.c.rel.AllSubordinates(emp.ID), depth)
	if err != nil || !ok {
		return outcome{}, err
	}
	return outcome{amount: emp.BaseSalary + r.c.policy.ManagerSubordinateShare*total, ok: true}, nil
}

// sum adds the salaries of ids. A single policy failure fails the whole sum.
func (r *run) sum(ids []uuid.UUID, depth int) (float64, bool, error) {
	var total float64
	for _, id := range ids {
		res, err := r.salary(id, depth+1)
		if err != nil {
			return 0, false, err
		}
		if !res.ok {
			return 0, false, nil
		}
		total += res.amount
	}
	return total, true, nil
}
