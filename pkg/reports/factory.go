package reports

import (
	"fmt"
)

// NewReportGenerator creates a report generator based on the report type.
func NewReportGenerator(reportType ReportType, src ReportSource) (Generator, error) {
	switch reportType {
	case ReportTypePayroll:
		return NewPayrollReport(src), nil
	case ReportTypeOrgChart:
		return NewOrgChartReport(src), nil
	default:
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}
}

// ParseFormat maps a query value to a format. Empty means CSV.
func ParseFormat(s string) (ReportFormat, error) {
	switch ReportFormat(s) {
	case "", ReportFormatCSV:
		return ReportFormatCSV, nil
	case ReportFormatJSON:
		return ReportFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format: %s", s)
	}
}
