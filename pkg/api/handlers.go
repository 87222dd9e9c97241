package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/rmax-ai/orgchart/pkg/employee"
	"github.com/rmax-ai/orgchart/pkg/reports"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.org.Employees())
}

func (s *Server) handleAddEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if req.Role == nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "role is required")
		return
	}

	e, err := s.org.AddEmployee(employee.Descriptor{
		Role:       *req.Role,
		BaseSalary: req.BaseSalary,
		Hired:      req.Hired,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/v1/employees/"+e.ID.String())
	s.writeJSON(w, r, http.StatusCreated, e)
}

func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	e, found := s.org.FindEmployee(id)
	if !found {
		writeJSONError(w, http.StatusNotFound, "not_found", "employee "+id.String())
		return
	}
	s.writeJSON(w, r, http.StatusOK, e)
}

func (s *Server) handleRemoveEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.org.RemoveEmployee(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChief(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	chief, has, err := s.org.Chief(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ancestors, err := s.org.Ancestors(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := ChiefResponse{EmployeeID: id, Ancestors: ancestors}
	if resp.Ancestors == nil {
		resp.Ancestors = []uuid.UUID{}
	}
	if has {
		resp.ChiefID = &chief
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleSubordinates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = ScopeDirect
	}

	var (
		subs []uuid.UUID
		err  error
	)
	switch scope {
	case ScopeDirect:
		subs, err = s.org.DirectSubordinates(id)
	case ScopeAll:
		subs, err = s.org.AllSubordinates(id)
	default:
		writeJSONError(w, http.StatusBadRequest, "invalid_scope", "scope must be direct or all")
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, r, http.StatusOK, SubordinatesResponse{EmployeeID: id, Scope: scope, Subordinates: subs})
}

func (s *Server) handleSalary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	period, ok := s.queryPeriod(w, r)
	if !ok {
		return
	}

	amount, computed, err := s.org.Salary(id, period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, SalaryResponse{EmployeeID: id, Period: period, Amount: amount, OK: computed})
}

func (s *Server) handleAddRelation(w http.ResponseWriter, r *http.Request) {
	var req RelationRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := s.org.AddSubordination(req.ChiefID, req.SubordinateID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, req)
}

func (s *Server) handleRemoveRelation(w http.ResponseWriter, r *http.Request) {
	var req RelationRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if err := s.org.RemoveSubordination(req.ChiefID, req.SubordinateID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePayroll renders the payroll for one period, JSON unless format=csv.
func (s *Server) handlePayroll(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(reports.ReportFormatJSON)
	}
	s.serveReport(w, r, reports.ReportTypePayroll, format)
}

func (s *Server) handleOrgChart(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.org.OrgChart())
}

// handleReports generates and streams reports.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	reportType := reports.ReportType(r.URL.Query().Get("type"))
	if reportType == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_type", "")
		return
	}
	s.serveReport(w, r, reportType, r.URL.Query().Get("format"))
}

func (s *Server) serveReport(w http.ResponseWriter, r *http.Request, reportType reports.ReportType, rawFormat string) {
	format, err := reports.ParseFormat(rawFormat)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_format", err.Error())
		return
	}
	period, ok := s.queryPeriod(w, r)
	if !ok {
		return
	}

	gen, err := reports.NewReportGenerator(reportType, s.org)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_report_type", err.Error())
		return
	}

	reader, err := gen.Generate(r.Context(), reports.ReportParams{Period: period, Format: format})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format == reports.ReportFormatCSV {
		filename := fmt.Sprintf("%s_%s.csv", reportType, period)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	}

	// Stream response
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error().Err(err).Str("trace_id", getTraceID(r.Context())).Msg("failed_to_stream_report")
	}
}

// queryPeriod reads ?period=YYYY-MM, defaulting to the current month.
func (s *Server) queryPeriod(w http.ResponseWriter, r *http.Request) (employee.Period, bool) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return employee.PeriodOf(s.now()), true
	}
	p, err := employee.ParsePeriod(raw)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_period", err.Error())
		return employee.Period{}, false
	}
	return p, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
