// Package engine coordinates the roster, the chief hierarchy and the salary
// calculator behind one lock.
//
// Every operation that reads or writes the hierarchy runs under Manager's
// mutex, including the whole of a salary computation, so a salary is always
// computed against a single consistent state.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rmax-ai/orgchart/pkg/employee"
	"github.com/rmax-ai/orgchart/pkg/graph"
	"github.com/rmax-ai/orgchart/pkg/salary"
	"github.com/rmax-ai/orgchart/pkg/store"
)

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrNotSupervisor    = errors.New("employee role cannot supervise")
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithPolicy sets the pay rates used by the calculator.
func WithPolicy(p salary.Policy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// Manager is the entry point for roster, hierarchy and payroll operations.
type Manager struct {
	mu     sync.Mutex
	roster *store.Store
	graph  *graph.Hierarchy
	calc   *salary.Calculator
	policy salary.Policy
	logger zerolog.Logger
}

// NewManager creates an empty organisation.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		roster: store.NewStore(),
		graph:  graph.NewHierarchy(),
		policy: salary.DefaultPolicy(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.calc = salary.NewCalculator(m.roster, m.graph, salary.WithPolicy(m.policy))
	return m
}

// Policy returns the pay rates in effect.
func (m *Manager) Policy() salary.Policy {
	return m.calc.Policy()
}

// AddEmployee registers a new employee and returns the stored record.
func (m *Manager) AddEmployee(d employee.Descriptor) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.roster.Add(d)
	if err != nil {
		m.recordMutation("add_employee", err)
		return employee.Employee{}, fmt.Errorf("add employee: %w", err)
	}

	m.recordMutation("add_employee", nil)
	m.logger.Info().
		Str("employee_id", e.ID.String()).
		Stringer("role", e.Role).
		Float64("base_salary", e.BaseSalary).
		Stringer("hired", e.Hired).
		Msg("employee_added")
	return e, nil
}

// RemoveEmployee deletes an employee together with every relation touching
// them. Former direct subordinates become roots.
func (m *Manager) RemoveEmployee(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.roster.Contains(id) {
		m.recordMutation("remove_employee", ErrEmployeeNotFound)
		return fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}

	removed := m.graph.Detach(id)
	if err := m.roster.Remove(id); err != nil {
		m.recordMutation("remove_employee", err)
		return fmt.Errorf("remove employee: %w", err)
	}

	m.recordMutation("remove_employee", nil)
	m.logger.Info().
		Str("employee_id", id.String()).
		Int("relations_removed", len(removed)).
		Msg("employee_removed")
	return nil
}

// FindEmployee returns the record for id.
func (m *Manager) FindEmployee(id uuid.UUID) (employee.Employee, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.roster.Employee(id)
}

// Employees returns every registered employee ordered by identifier.
func (m *Manager) Employees() []employee.Employee {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.roster.All()
}

// AddSubordination makes chief the direct chief of sub. Both must be registered
// and chief must hold a supervising role.
func (m *Manager) AddSubordination(chief, sub uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.checkPairLocked(chief, sub)
	if err == nil {
		err = m.graph.AddRelation(chief, sub)
	}
	m.recordMutation("add_subordination", err)
	if err != nil {
		return err
	}

	m.logger.Info().
		Str("chief_id", chief.String()).
		Str("subordinate_id", sub.String()).
		Msg("subordination_added")
	return nil
}

// RemoveSubordination deletes the relation chief -> sub. The pair must match
// the recorded relation exactly.
func (m *Manager) RemoveSubordination(chief, sub uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.checkPairLocked(chief, sub)
	if err == nil {
		err = m.graph.RemoveRelation(chief, sub)
	}
	m.recordMutation("remove_subordination", err)
	if err != nil {
		return err
	}

	m.logger.Info().
		Str("chief_id", chief.String()).
		Str("subordinate_id", sub.String()).
		Msg("subordination_removed")
	return nil
}

// Chief returns the direct chief of id. The boolean is false for a root.
func (m *Manager) Chief(id uuid.UUID) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireLocked(id); err != nil {
		return uuid.Nil, false, err
	}
	chief, ok := m.graph.Chief(id)
	return chief, ok, nil
}

// DirectSubordinates returns the employees reporting directly to id.
func (m *Manager) DirectSubordinates(id uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireLocked(id); err != nil {
		return nil, err
	}
	return m.graph.DirectSubordinates(id), nil
}

// AllSubordinates returns every transitive subordinate of id.
func (m *Manager) AllSubordinates(id uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireLocked(id); err != nil {
		return nil, err
	}
	return m.graph.AllSubordinates(id), nil
}

// Ancestors returns the chiefs above id, nearest first.
func (m *Manager) Ancestors(id uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireLocked(id); err != nil {
		return nil, err
	}
	return m.graph.Ancestors(id), nil
}

// Salary computes the monthly salary of id. ok is false when the period
// precedes the hire month of id or of a contributing subordinate. The lock is
// held for the whole computation.
func (m *Manager) Salary(id uuid.UUID, period employee.Period) (float64, bool, error) {
	if err := period.Validate(); err != nil {
		return 0, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireLocked(id); err != nil {
		return 0, false, err
	}

	start := time.Now()
	amount, ok, err := m.calc.MonthSalary(id, period)
	OrgchartSalarySeconds.Observe(time.Since(start).Seconds())
	m.recordSalary(id, period, ok, err)

	return amount, ok, err
}

// Stats is a point-in-time count of the organisation.
type Stats struct {
	Employees int `json:"employees"`
	Relations int `json:"relations"`
}

// Stats returns the current roster and relation counts.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{Employees: m.roster.Len(), Relations: m.graph.Len()}
}

// requireLocked checks that id is registered. Must be called with m.mu held.
func (m *Manager) requireLocked(id uuid.UUID) error {
	if !m.roster.Contains(id) {
		return fmt.Errorf("%w: %s", ErrEmployeeNotFound, id)
	}
	return nil
}

// checkPairLocked validates the arguments of a subordination change.
// Must be called with m.mu held.
func (m *Manager) checkPairLocked(chief, sub uuid.UUID) error {
	c, ok := m.roster.Employee(chief)
	if !ok {
		return fmt.Errorf("%w: chief %s", ErrEmployeeNotFound, chief)
	}
	if err := m.requireLocked(sub); err != nil {
		return err
	}
	if !c.Role.CanSupervise() {
		return fmt.Errorf("%w: %s is a %s", ErrNotSupervisor, chief, c.Role)
	}
	return nil
}

func (m *Manager) recordMutation(op string, err error) {
	result := resultOK
	if err != nil {
		result = resultRejected
		m.logger.Debug().Err(err).Str("op", op).Msg("mutation_rejected")
	}
	OrgchartMutationsTotal.WithLabelValues(op, result).Inc()
	OrgchartEmployees.Set(float64(m.roster.Len()))
	OrgchartRelations.Set(float64(m.graph.Len()))
}

func (m *Manager) recordSalary(id uuid.UUID, period employee.Period, ok bool, err error) {
	switch {
	case err != nil:
		OrgchartSalaryTotal.WithLabelValues(resultInconsistent).Inc()
		m.logger.Error().
			Err(err).
			Str("employee_id", id.String()).
			Stringer("period", period).
			Msg("salary_inconsistent")
	case !ok:
		OrgchartSalaryTotal.WithLabelValues(resultPolicy).Inc()
	default:
		OrgchartSalaryTotal.WithLabelValues(resultOK).Inc()
	}
}
