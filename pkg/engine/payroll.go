package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rmax-ai/orgchart/pkg/employee"
)

// PayrollLine is one employee's salary for a payroll period.
type PayrollLine struct {
	EmployeeID uuid.UUID       `json:"employee_id"`
	Role       employee.Role   `json:"role"`
	BaseSalary float64         `json:"base_salary"`
	Hired      employee.Period `json:"hired"`
	ChiefID    *uuid.UUID      `json:"chief_id,omitempty"`
	Amount     float64         `json:"amount"`
	OK         bool            `json:"ok"`
}

// Payroll computes every employee's salary for period from one snapshot of the
// organisation. An employee hired after period appears with OK false. Any
// consistency error aborts the whole run.
func (m *Manager) Payroll(period employee.Period) ([]PayrollLine, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	defer func() {
		OrgchartSalarySeconds.Observe(time.Since(start).Seconds())
	}()

	all := m.roster.All()
	lines := make([]PayrollLine, 0, len(all))
	for _, e := range all {
		amount, ok, err := m.calc.MonthSalary(e.ID, period)
		m.recordSalary(e.ID, period, ok, err)
		if err != nil {
			return nil, fmt.Errorf("payroll %s: %w", period, err)
		}

		line := PayrollLine{
			EmployeeID: e.ID,
			Role:       e.Role,
			BaseSalary: e.BaseSalary,
			Hired:      e.Hired,
			Amount:     amount,
			OK:         ok,
		}
		if chief, has := m.graph.Chief(e.ID); has {
			line.ChiefID = &chief
		}
		lines = append(lines, line)
	}

	m.logger.Info().
		Stringer("period", period).
		Int("employees", len(lines)).
		Msg("payroll_computed")
	return lines, nil
}

// ChartNode is an employee with the nested tree of their reports.
type ChartNode struct {
	employee.Employee
	Reports []ChartNode `json:"reports,omitempty"`
}

// OrgChart returns the forest of employees, one node per root.
func (m *Manager) OrgChart() []ChartNode {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.roster.All()
	byID := make(map[uuid.UUID]employee.Employee, len(all))
	ids := make([]uuid.UUID, 0, len(all))
	for _, e := range all {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}

	roots := m.graph.Roots(ids)
	chart := make([]ChartNode, 0, len(roots))
	for _, id := range roots {
		chart = append(chart, m.chartLocked(id, byID))
	}
	return chart
}

// chartLocked builds the subtree below id. Must be called with m.mu held.
func (m *Manager) chartLocked(id uuid.UUID, byID map[uuid.UUID]employee.Employee) ChartNode {
	node := ChartNode{Employee: byID[id]}
	for _, sub := range m.graph.DirectSubordinates(id) {
		node.Reports = append(node.Reports, m.chartLocked(sub, byID))
	}
	return node
}
