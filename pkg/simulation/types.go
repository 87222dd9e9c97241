// Package simulation builds a synthetic organisation against a running daemon,
// attempts changes that must be rejected, and checks the daemon's view of
// the hierarchy and payroll against an independent local computation.
package simulation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/orgchart/pkg/employee"
)

// SimulationResult captures the final state of the simulation for reporting
type SimulationResult struct {
	ScenarioName    string            `json:"scenario_name"`
	Seed            int64             `json:"seed"`
	Duration        time.Duration     `json:"duration"`
	Period          employee.Period   `json:"period"`
	Employees       int               `json:"employees"`
	Relations       int               `json:"relations"`
	TotalRequests   uint64            `json:"total_requests"`
	TotalRejected   uint64            `json:"total_rejected"`
	TotalErrors     uint64            `json:"total_errors"`
	PayrollTotal    float64           `json:"payroll_total"`
	PayrollExpected float64           `json:"payroll_expected"`
	Computable      int               `json:"computable"`
	Invariants      []InvariantResult `json:"invariants"`
	Success         bool              `json:"success"`
}

type InvariantResult struct {
	Name     string `json:"name"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

// Scenario describes the organisation to build. Every manager gets
// ForemenPerManager foremen, and every foreman WorkersPerForeman workers.
// LooseWorkers are registered without a chief.
type Scenario struct {
	Name              string      `json:"name" yaml:"name"`
	Description       string      `json:"description" yaml:"description"`
	Seed              int64       `json:"seed" yaml:"seed"` // Deterministic seed
	Managers          int         `json:"managers" yaml:"managers"`
	ForemenPerManager int         `json:"foremen_per_manager" yaml:"foremen_per_manager"`
	WorkersPerForeman int         `json:"workers_per_foreman" yaml:"workers_per_foreman"`
	LooseWorkers      int         `json:"loose_workers" yaml:"loose_workers"`
	BaseSalary        SalaryRange `json:"base_salary" yaml:"base_salary"`
	HiredFrom         string      `json:"hired_from" yaml:"hired_from"` // YYYY-MM
	HiredTo           string      `json:"hired_to" yaml:"hired_to"`     // YYYY-MM
	Period            string      `json:"period" yaml:"period"`         // payroll month, YYYY-MM
	Concurrency       int         `json:"concurrency" yaml:"concurrency"`
	Sabotage          int         `json:"sabotage" yaml:"sabotage"` // invalid changes to attempt
}

type SalaryRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

var ErrInvalidScenario = errors.New("invalid scenario")

// plan is a validated scenario.
type plan struct {
	Scenario
	hiredFrom employee.Period
	hiredTo   employee.Period
	period    employee.Period
}

func (s Scenario) plan() (plan, error) {
	p := plan{Scenario: s}
	if s.Managers < 0 || s.ForemenPerManager < 0 || s.WorkersPerForeman < 0 || s.LooseWorkers < 0 || s.Sabotage < 0 {
		return plan{}, fmt.Errorf("%w: counts must not be negative", ErrInvalidScenario)
	}
	if s.BaseSalary.Min < 0 || s.BaseSalary.Max < s.BaseSalary.Min {
		return plan{}, fmt.Errorf("%w: base_salary range [%v, %v]", ErrInvalidScenario, s.BaseSalary.Min, s.BaseSalary.Max)
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 4
	}

	var err error
	if p.hiredFrom, err = employee.ParsePeriod(s.HiredFrom); err != nil {
		return plan{}, fmt.Errorf("%w: hired_from: %v", ErrInvalidScenario, err)
	}
	if p.hiredTo, err = employee.ParsePeriod(s.HiredTo); err != nil {
		return plan{}, fmt.Errorf("%w: hired_to: %v", ErrInvalidScenario, err)
	}
	if p.hiredTo.Before(p.hiredFrom) {
		return plan{}, fmt.Errorf("%w: hired_to precedes hired_from", ErrInvalidScenario)
	}
	if p.period, err = employee.ParsePeriod(s.Period); err != nil {
		return plan{}, fmt.Errorf("%w: period: %v", ErrInvalidScenario, err)
	}
	return p, nil
}

// LoadScenario reads a YAML scenario file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	return ParseScenario(bytes.NewReader(data))
}

// ParseScenario decodes a YAML scenario. Unknown keys are rejected.
func ParseScenario(r io.Reader) (Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if _, err := s.plan(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}
