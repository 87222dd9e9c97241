package client

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/rmax-ai/orgchart/pkg/employee"
)

// Employee is a registered roster entry as returned by the daemon.
type Employee = employee.Employee

// NewEmployee is the payload for registering an employee.
type NewEmployee struct {
	Role       employee.Role   `json:"role"`
	BaseSalary float64         `json:"base_salary"`
	Hired      employee.Period `json:"hired"`
}

// Status represents the health check response.
type Status struct {
	Status    string `json:"status"`
	Employees int    `json:"employees"`
	Relations int    `json:"relations"`
}

// Chief describes an employee's position in the chain of command.
type Chief struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	// ChiefID is nil for employees without a chief.
	ChiefID   *uuid.UUID  `json:"chief_id,omitempty"`
	Ancestors []uuid.UUID `json:"ancestors"`
}

// Salary is a monthly salary figure. OK is false when the period precedes a
// contributing hire month; Amount is then zero.
type Salary struct {
	EmployeeID uuid.UUID       `json:"employee_id"`
	Period     employee.Period `json:"period"`
	Amount     float64         `json:"amount"`
	OK         bool            `json:"ok"`
}

// PayrollLine is one row of a payroll run.
type PayrollLine struct {
	EmployeeID uuid.UUID       `json:"employee_id"`
	Role       employee.Role   `json:"role"`
	BaseSalary float64         `json:"base_salary"`
	Hired      employee.Period `json:"hired"`
	ChiefID    *uuid.UUID      `json:"chief_id,omitempty"`
	Amount     float64         `json:"amount"`
	OK         bool            `json:"ok"`
}

// Payroll is the JSON payroll report.
type Payroll struct {
	Period     employee.Period `json:"period"`
	Lines      []PayrollLine   `json:"lines"`
	Total      float64         `json:"total"`
	Computable int             `json:"computable"`
}

// ChartNode is an employee and their reports.
type ChartNode struct {
	employee.Employee
	Reports []ChartNode `json:"reports,omitempty"`
}

// Export identifies an archived report.
type Export struct {
	Key   string `json:"key"`
	Bytes int64  `json:"bytes"`
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Reason     string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("orgchart: %d %s: %s", e.StatusCode, e.Code, e.Reason)
	}
	return fmt.Sprintf("orgchart: %d %s", e.StatusCode, e.Code)
}

// NotFound reports whether the daemon did not know a referenced employee.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Conflict reports a rejected hierarchy change.
func (e *APIError) Conflict() bool {
	return e.StatusCode == http.StatusConflict
}
