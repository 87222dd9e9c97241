// Package reports renders payroll and org chart snapshots as CSV or JSON.
package reports

import (
	"context"
	"io"

	"github.com/rmax-ai/orgchart/pkg/employee"
	"github.com/rmax-ai/orgchart/pkg/engine"
)

type ReportType string

const (
	ReportTypePayroll  ReportType = "payroll"
	ReportTypeOrgChart ReportType = "orgchart"
)

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
)

type ReportParams struct {
	Period employee.Period
	Format ReportFormat
}

// ReportSource defines the data access required by reports.
type ReportSource interface {
	Payroll(period employee.Period) ([]engine.PayrollLine, error)
	OrgChart() []engine.ChartNode
}

type Generator interface {
	Generate(ctx context.Context, params ReportParams) (io.Reader, error)
}

// ContentType returns the MIME type for the format.
func (f ReportFormat) ContentType() string {
	if f == ReportFormatJSON {
		return "application/json"
	}
	return "text/csv"
}
