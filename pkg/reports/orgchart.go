package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rmax-ai/orgchart/pkg/engine"
)

// OrgChartReport renders the hierarchy, one row per employee in depth-first order.
type OrgChartReport struct {
	src ReportSource
}

// NewOrgChartReport creates a new OrgChartReport generator.
func NewOrgChartReport(src ReportSource) *OrgChartReport {
	return &OrgChartReport{src: src}
}

// Generate renders the current chart. The period parameter is ignored.
func (r *OrgChartReport) Generate(ctx context.Context, params ReportParams) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chart := r.src.OrgChart()
	buf := &bytes.Buffer{}

	if params.Format == ReportFormatJSON {
		if err := json.NewEncoder(buf).Encode(chart); err != nil {
			return nil, fmt.Errorf("failed to encode chart: %w", err)
		}
		return buf, nil
	}

	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"employee_id", "role", "base_salary", "hired", "chief_id", "depth"}); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}
	for _, root := range chart {
		if err := writeChartRows(writer, root, "", 0); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush writer: %w", err)
	}
	return buf, nil
}

func writeChartRows(w *csv.Writer, node engine.ChartNode, chief string, depth int) error {
	row := []string{
		node.ID.String(),
		node.Role.String(),
		formatMoney(node.BaseSalary),
		node.Hired.String(),
		chief,
		strconv.Itoa(depth),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	for _, sub := range node.Reports {
		if err := writeChartRows(w, sub, node.ID.String(), depth+1); err != nil {
			return err
		}
	}
	return nil
}
