package simulation

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/orgchart/pkg/api"
	"github.com/rmax-ai/orgchart/pkg/client"
	"github.com/rmax-ai/orgchart/pkg/employee"
	"github.com/rmax-ai/orgchart/pkg/engine"
)

const scenarioYAML = `
name: small-company
description: two departments
seed: 42
managers: 2
foremen_per_manager: 2
workers_per_foreman: 3
loose_workers: 2
base_salary:
  min: 1000
  max: 5000
hired_from: 2015-01
hired_to: 2022-12
period: 2020-06
concurrency: 4
sabotage: 10
`

func newDaemon(t *testing.T) (*client.Client, *engine.Manager) {
	t.Helper()
	org := engine.NewManager()
	ts := httptest.NewServer(api.NewServer(org, "", zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return client.NewClient(ts.URL), org
}

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario(strings.NewReader(scenarioYAML))
	require.NoError(t, err)
	assert.Equal(t, "small-company", s.Name)
	assert.Equal(t, int64(42), s.Seed)
	assert.Equal(t, 3, s.WorkersPerForeman)
	assert.Equal(t, SalaryRange{Min: 1000, Max: 5000}, s.BaseSalary)
}

func TestParseScenario_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "name: x\nmanagerz: 1\nhired_from: 2020-01\nhired_to: 2020-01\nperiod: 2020-01\n",
		"negative count": "managers: -1\nhired_from: 2020-01\nhired_to: 2020-01\nperiod: 2020-01\n",
		"salary range":   "base_salary: {min: 10, max: 5}\nhired_from: 2020-01\nhired_to: 2020-01\nperiod: 2020-01\n",
		"hire window":    "hired_from: 2021-01\nhired_to: 2020-01\nperiod: 2020-01\n",
		"missing period": "hired_from: 2020-01\nhired_to: 2020-01\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseScenario(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestRunScenario(t *testing.T) {
	c, org := newDaemon(t)
	s, err := ParseScenario(strings.NewReader(scenarioYAML))
	require.NoError(t, err)

	res, err := RunScenario(context.Background(), s, c, zerolog.Nop())
	require.NoError(t, err)

	for _, inv := range res.Invariants {
		assert.True(t, inv.Passed, "%s: expected %s, got %s", inv.Name, inv.Expected, inv.Actual)
	}
	assert.True(t, res.Success)

	// 2 managers + 4 foremen + 12 workers + 2 loose workers.
	assert.Equal(t, 20, res.Employees)
	assert.Equal(t, 16, res.Relations)
	assert.Equal(t, 20, org.Stats().Employees)
	assert.Equal(t, uint64(10), res.TotalRejected)
	assert.Zero(t, res.TotalErrors)
	assert.InDelta(t, res.PayrollExpected, res.PayrollTotal, 1e-6)
}

func TestRunScenario_Deterministic(t *testing.T) {
	s, err := ParseScenario(strings.NewReader(scenarioYAML))
	require.NoError(t, err)

	c1, _ := newDaemon(t)
	first, err := RunScenario(context.Background(), s, c1, zerolog.Nop())
	require.NoError(t, err)

	c2, _ := newDaemon(t)
	second, err := RunScenario(context.Background(), s, c2, zerolog.Nop())
	require.NoError(t, err)

	assert.InDelta(t, first.PayrollTotal, second.PayrollTotal, 1e-6)
	assert.Equal(t, first.Computable, second.Computable)
}

// lyingAPI reports an inflated payroll.
type lyingAPI struct {
	*client.Client
}

func (l lyingAPI) Payroll(ctx context.Context, period employee.Period) (client.Payroll, error) {
	p, err := l.Client.Payroll(ctx, period)
	p.Total += 1
	return p, err
}

func TestRunScenario_DetectsPayrollMismatch(t *testing.T) {
	c, _ := newDaemon(t)
	s, err := ParseScenario(strings.NewReader(scenarioYAML))
	require.NoError(t, err)

	res, err := RunScenario(context.Background(), s, lyingAPI{c}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, res.Success)

	var failed []string
	for _, inv := range res.Invariants {
		if !inv.Passed {
			failed = append(failed, inv.Name)
		}
	}
	assert.Equal(t, []string{"payroll_total"}, failed)
}

func TestRunScenario_StopsOnDaemonError(t *testing.T) {
	c := client.NewClient("http://127.0.0.1:1")
	s, err := ParseScenario(strings.NewReader(scenarioYAML))
	require.NoError(t, err)

	_, err = RunScenario(context.Background(), s, c, zerolog.Nop())
	assert.Error(t, err)
}

// selfReportingAPI lists the first root of the chart among its own reports.
type selfReportingAPI struct {
	*client.Client
}

func (s selfReportingAPI) OrgChart(ctx context.Context) ([]client.ChartNode, error) {
	chart, err := s.Client.OrgChart(ctx)
	if err != nil || len(chart) == 0 {
		return chart, err
	}
	chart[0].Reports = append(chart[0].Reports, client.ChartNode{Employee: chart[0].Employee})
	return chart, nil
}

func TestRunScenario_DetectsRejectedChartEdge(t *testing.T) {
	c, _ := newDaemon(t)
	s, err := ParseScenario(strings.NewReader(scenarioYAML))
	require.NoError(t, err)

	res, err := RunScenario(context.Background(), s, selfReportingAPI{c}, zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, res.Success)

	var forest InvariantResult
	var failed []string
	for _, inv := range res.Invariants {
		if inv.Name == "chart_is_forest" {
			forest = inv
		}
		if !inv.Passed {
			failed = append(failed, inv.Name)
		}
	}
	assert.Equal(t, []string{"chart_is_forest"}, failed)
	assert.Contains(t, forest.Actual, "1 rejected edges")
}
