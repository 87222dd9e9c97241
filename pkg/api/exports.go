package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/rmax-ai/orgchart/pkg/blob"
	"github.com/rmax-ai/orgchart/pkg/reports"
)

// exportKey names an archived report, e.g. "payroll/2024-03.csv".
func exportKey(reportType reports.ReportType, params reports.ReportParams) string {
	return fmt.Sprintf("%s/%s.%s", reportType, params.Period, params.Format)
}

func (s *Server) exportsEnabled(w http.ResponseWriter) bool {
	if s.exports == nil {
		writeJSONError(w, http.StatusNotFound, "exports_disabled", "daemon started without an export directory")
		return false
	}
	return true
}

// handleCreateExport renders a report and stores it in the archive.
func (s *Server) handleCreateExport(w http.ResponseWriter, r *http.Request) {
	if !s.exportsEnabled(w) {
		return
	}

	reportType := reports.ReportType(r.URL.Query().Get("type"))
	if reportType == "" {
		reportType = reports.ReportTypePayroll
	}
	format, err := reports.ParseFormat(r.URL.Query().Get("format"))
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
	params := reports.ReportParams{Period: period, Format: format}
	reader, err := gen.Generate(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		s.writeError(w, r, err)
		return
	}
	size := int64(buf.Len())

	key := exportKey(reportType, params)
	if err := s.exports.Put(r.Context(), key, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info().
		Str("trace_id", getTraceID(r.Context())).
		Str("key", key).
		Int64("bytes", size).
		Msg("report_exported")

	w.Header().Set("Location", "/v1/exports/"+key)
	s.writeJSON(w, r, http.StatusCreated, ExportResponse{Key: key, Bytes: size})
}

func (s *Server) handleListExports(w http.ResponseWriter, r *http.Request) {
	if !s.exportsEnabled(w) {
		return
	}
	keys, err := s.exports.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		s.writeExportError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, ExportListResponse{Keys: keys})
}

func (s *Server) handleGetExport(w http.ResponseWriter, r *http.Request) {
	if !s.exportsEnabled(w) {
		return
	}
	key := r.PathValue("key")
	rc, err := s.exports.Get(r.Context(), key)
	if err != nil {
		s.writeExportError(w, r, err)
		return
	}
	defer rc.Close()

	format := reports.ReportFormat(path.Ext(key))
	if len(format) > 0 {
		format = format[1:]
	}
	w.Header().Set("Content-Type", format.ContentType())
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error().Err(err).Str("trace_id", getTraceID(r.Context())).Msg("failed_to_stream_export")
	}
}

func (s *Server) handleDeleteExport(w http.ResponseWriter, r *http.Request) {
	if !s.exportsEnabled(w) {
		return
	}
	if err := s.exports.Delete(r.Context(), r.PathValue("key")); err != nil {
		s.writeExportError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeExportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, blob.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "export_not_found", err.Error())
	case errors.Is(err, blob.ErrInvalidKey):
		writeJSONError(w, http.StatusBadRequest, "invalid_key", err.Error())
	default:
		s.writeError(w, r, err)
	}
}
