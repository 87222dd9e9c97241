package reports

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/orgchart/pkg/employee"
	"github.com/rmax-ai/orgchart/pkg/engine"
)

var jan = employee.Period{Year: 2026, Month: time.January}

func seededManager(t *testing.T) *engine.Manager {
	t.Helper()
	m := engine.NewManager()
	fm, err := m.AddEmployee(employee.Descriptor{Role: employee.RoleForeman, BaseSalary: 200000, Hired: jan})
	require.NoError(t, err)
	w, err := m.AddEmployee(employee.Descriptor{Role: employee.RoleWorker, BaseSalary: 100000, Hired: jan})
	require.NoError(t, err)
	_, err = m.AddEmployee(employee.Descriptor{Role: employee.RoleWorker, BaseSalary: 100000, Hired: jan.AddMonths(6)})
	require.NoError(t, err)
	require.NoError(t, m.AddSubordination(fm.ID, w.ID))
	return m
}

func TestPayrollReport_CSV(t *testing.T) {
	gen, err := NewReportGenerator(ReportTypePayroll, seededManager(t))
	require.NoError(t, err)

	reader, err := gen.Generate(context.Background(), ReportParams{Period: jan})
	require.NoError(t, err)

	records, err := csv.NewReader(reader).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"period", "employee_id", "role", "base_salary", "hired", "chief_id", "amount", "ok"}, records[0])

	var failed, withChief int
	for _, rec := range records[1:] {
		assert.Equal(t, "2026-01", rec[0])
		if rec[7] == "false" {
			failed++
			assert.Empty(t, rec[6])
		}
		if rec[5] != "" {
			withChief++
		}
		if rec[2] == "foreman" {
			assert.Equal(t, "207000.00", rec[6])
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, withChief)
}

func TestPayrollReport_JSON(t *testing.T) {
	gen := NewPayrollReport(seededManager(t))

	reader, err := gen.Generate(context.Background(), ReportParams{Period: jan, Format: ReportFormatJSON})
	require.NoError(t, err)

	var summary PayrollSummary
	require.NoError(t, json.NewDecoder(reader).Decode(&summary))
	assert.Equal(t, jan, summary.Period)
	assert.Len(t, summary.Lines, 3)
	assert.Equal(t, 2, summary.Computable)
	assert.InDelta(t, 307000, summary.Total, 1e-6)
}

type failingSource struct{}

func (failingSource) Payroll(employee.Period) ([]engine.PayrollLine, error) {
	return nil, errors.New("boom")
}

func (failingSource) OrgChart() []engine.ChartNode { return nil }

func TestPayrollReport_SourceError(t *testing.T) {
	_, err := NewPayrollReport(failingSource{}).Generate(context.Background(), ReportParams{Period: jan})
	assert.ErrorContains(t, err, "boom")
}

func TestReport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPayrollReport(seededManager(t)).Generate(ctx, ReportParams{Period: jan})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = NewOrgChartReport(seededManager(t)).Generate(ctx, ReportParams{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrgChartReport(t *testing.T) {
	m := seededManager(t)
	gen, err := NewReportGenerator(ReportTypeOrgChart, m)
	require.NoError(t, err)

	reader, err := gen.Generate(context.Background(), ReportParams{})
	require.NoError(t, err)
	records, err := csv.NewReader(reader).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	depths := map[string]int{}
	for _, rec := range records[1:] {
		depths[rec[5]]++
	}
	assert.Equal(t, map[string]int{"0": 2, "1": 1}, depths)

	reader, err = gen.Generate(context.Background(), ReportParams{Format: ReportFormatJSON})
	require.NoError(t, err)
	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	var chart []engine.ChartNode
	require.NoError(t, json.Unmarshal(data, &chart))
	assert.Len(t, chart, 2)
}

func TestFactoryAndFormat(t *testing.T) {
	_, err := NewReportGenerator("usage", nil)
	assert.Error(t, err)

	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, ReportFormatCSV, f)
	assert.Equal(t, "text/csv", f.ContentType())

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", f.ContentType())

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
