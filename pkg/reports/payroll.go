package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rmax-ai/orgchart/pkg/employee"
	"github.com/rmax-ai/orgchart/pkg/engine"
)

// PayrollReport lists every employee's salary for one period.
type PayrollReport struct {
	src ReportSource
}

// NewPayrollReport creates a new PayrollReport generator.
func NewPayrollReport(src ReportSource) *PayrollReport {
	return &PayrollReport{src: src}
}

// PayrollSummary is the JSON form of a payroll report.
type PayrollSummary struct {
	Period     employee.Period      `json:"period"`
	Lines      []engine.PayrollLine `json:"lines"`
	Total      float64              `json:"total"`
	Computable int                  `json:"computable"`
}

// Generate runs the payroll and renders it in params.Format.
func (r *PayrollReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines, err := r.src.Payroll(params.Period)
	if err != nil {
		return nil, fmt.Errorf("failed to run payroll: %w", err)
	}

	summary := PayrollSummary{Period: params.Period, Lines: lines}
	for _, l := range lines {
		if l.OK {
			summary.Total += l.Amount
			summary.Computable++
		}
	}

	if params.Format == ReportFormatJSON {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(summary); err != nil {
			return nil, fmt.Errorf("failed to encode payroll: %w", err)
		}
		return buf, nil
	}
	return payrollCSV(summary)
}

func payrollCSV(summary PayrollSummary) (io.Reader, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{"period", "employee_id", "role", "base_salary", "hired", "chief_id", "amount", "ok"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	period := summary.Period.String()
	for _, l := range summary.Lines {
		chief := ""
		if l.ChiefID != nil {
			chief = l.ChiefID.String()
		}
		amount := ""
		if l.OK {
			amount = formatMoney(l.Amount)
		}
		row := []string{
			period,
			l.EmployeeID.String(),
			l.Role.String(),
			formatMoney(l.BaseSalary),
			l.Hired.String(),
			chief,
			amount,
			strconv.FormatBool(l.OK),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}

	return buf, nil
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
