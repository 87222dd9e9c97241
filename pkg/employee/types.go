package employee

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// ID uniquely identifies an employee.
type ID = uuid.UUID

// Role is the employee category. The set is closed.
type Role int

const (
	RoleWorker Role = iota
	RoleForeman
	RoleManager
)

var (
	ErrUnknownRole       = errors.New("unknown role")
	ErrInvalidBaseSalary = errors.New("base salary must be a non-negative finite number")
)

var roleNames = map[Role]string{
	RoleWorker:  "worker",
	RoleForeman: "foreman",
	RoleManager: "manager",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// CanSupervise reports whether employees of this role may be assigned as a chief.
func (r Role) CanSupervise() bool {
	return r == RoleForeman || r == RoleManager
}

// ParseRole accepts the lower-case role name, ignoring surrounding space and case.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for role, n := range roleNames {
		if n == name {
			return role, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Descriptor carries the attributes an employee is registered with.
type Descriptor struct {
	Role       Role    `json:"role" yaml:"role"`
	BaseSalary float64 `json:"base_salary" yaml:"base_salary"`
	Hired      Period  `json:"hired" yaml:"hired"`
}

// Validate checks the descriptor before it is admitted to the roster.
func (d Descriptor) Validate() error {
	if !d.Role.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownRole, int(d.Role))
	}
	if d.BaseSalary < 0 || math.IsNaN(d.BaseSalary) || math.IsInf(d.BaseSalary, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidBaseSalary, d.BaseSalary)
	}
	if err := d.Hired.Validate(); err != nil {
		return fmt.Errorf("invalid hire period: %w", err)
	}
	return nil
}

// Employee is a registered roster entry.
type Employee struct {
	ID         ID      `json:"id"`
	Role       Role    `json:"role"`
	BaseSalary float64 `json:"base_salary"`
	Hired      Period  `json:"hired"`
}

// New builds an employee record with the given identifier.
func New(id ID, d Descriptor) Employee {
	return Employee{
		ID:         id,
		Role:       d.Role,
		BaseSalary: d.BaseSalary,
		Hired:      d.Hired,
	}
}

// Descriptor returns the attributes the employee was registered with.
func (e Employee) Descriptor() Descriptor {
	return Descriptor{Role: e.Role, BaseSalary: e.BaseSalary, Hired: e.Hired}
}
