package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rmax-ai/orgchart/pkg/employee"
	"github.com/rmax-ai/orgchart/pkg/engine"
	"github.com/rmax-ai/orgchart/pkg/graph"
	"github.com/rmax-ai/orgchart/pkg/salary"
)

// statusFor maps a domain error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrEmployeeNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, engine.ErrNotSupervisor):
		return http.StatusConflict, "not_supervisor"
	case errors.Is(err, graph.ErrSelfRelation):
		return http.StatusConflict, "self_relation"
	case errors.Is(err, graph.ErrAlreadyHasChief):
		return http.StatusConflict, "already_has_chief"
	case errors.Is(err, graph.ErrCycle):
		return http.StatusConflict, "cycle"
	case errors.Is(err, graph.ErrRelationNotFound):
		return http.StatusConflict, "relation_not_found"
	case errors.Is(err, employee.ErrUnknownRole),
		errors.Is(err, employee.ErrInvalidBaseSalary),
		errors.Is(err, employee.ErrInvalidPeriod):
		return http.StatusBadRequest, "invalid_employee"
	case errors.Is(err, salary.ErrInconsistent):
		return http.StatusInternalServerError, "inconsistent_state"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

// writeError renders err; server-side failures are logged and their detail withheld.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("trace_id", getTraceID(r.Context())).Msg(code)
		writeJSONError(w, status, code, "")
		return
	}
	writeJSONError(w, status, code, err.Error())
}

func writeJSONError(w http.ResponseWriter, status int, code, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: code, Reason: reason})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Str("trace_id", getTraceID(r.Context())).Msg("failed_to_encode_response")
	}
}

// Middleware: Panic Recovery
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error().Interface("error", err).Str("path", r.URL.Path).Msg("panic_recovered")
				writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Middleware: Request Logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// 1. Extract or Generate Trace ID
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		// 2. Inject into Context
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		r = r.WithContext(ctx)

		// Wrap writer to capture status code
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		// 3. Set response header
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("trace_id", traceID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func getTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// statusWriter captures HTTP status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware: Secure Headers
func withSecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}
