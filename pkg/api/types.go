package api

import (
	"github.com/google/uuid"

	"github.com/rmax-ai/orgchart/pkg/employee"
)

// EmployeeRequest matches the POST /v1/employees body schema. Role is required.
type EmployeeRequest struct {
	Role       *employee.Role  `json:"role"`
	BaseSalary float64         `json:"base_salary"`
	Hired      employee.Period `json:"hired"` // YYYY-MM
}

// RelationRequest matches the POST and DELETE /v1/relations body schema
type RelationRequest struct {
	ChiefID       uuid.UUID `json:"chief_id"`
	SubordinateID uuid.UUID `json:"subordinate_id"`
}

// ChiefResponse is returned by GET /v1/employees/{id}/chief
type ChiefResponse struct {
	EmployeeID uuid.UUID   `json:"employee_id"`
	ChiefID    *uuid.UUID  `json:"chief_id,omitempty"`
	Ancestors  []uuid.UUID `json:"ancestors"`
}

// SubordinatesResponse is returned by GET /v1/employees/{id}/subordinates
type SubordinatesResponse struct {
	EmployeeID   uuid.UUID   `json:"employee_id"`
	Scope        string      `json:"scope"` // direct, all
	Subordinates []uuid.UUID `json:"subordinates"`
}

// SalaryResponse is returned by GET /v1/employees/{id}/salary.
// OK is false when the period precedes a contributing hire month.
type SalaryResponse struct {
	EmployeeID uuid.UUID       `json:"employee_id"`
	Period     employee.Period `json:"period"`
	Amount     float64         `json:"amount"`
	OK         bool            `json:"ok"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

const (
	ScopeDirect = "direct"
	ScopeAll    = "all"
)

// ExportResponse is returned by POST /v1/exports
type ExportResponse struct {
	Key   string `json:"key"`
	Bytes int64  `json:"bytes"`
}

// ExportListResponse is returned by GET /v1/exports
type ExportListResponse struct {
	Keys []string `json:"keys"`
}
