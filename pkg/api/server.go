package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rmax-ai/orgchart/pkg/blob"
	"github.com/rmax-ai/orgchart/pkg/employee"
	"github.com/rmax-ai/orgchart/pkg/engine"
)

// Context keys
type contextKey string

const traceIDKey contextKey = "trace_id"

// OrgService is the subset of engine.Manager the API depends on.
type OrgService interface {
	AddEmployee(d employee.Descriptor) (employee.Employee, error)
	RemoveEmployee(id uuid.UUID) error
	FindEmployee(id uuid.UUID) (employee.Employee, bool)
	Employees() []employee.Employee

	AddSubordination(chief, sub uuid.UUID) error
	RemoveSubordination(chief, sub uuid.UUID) error
	Chief(id uuid.UUID) (uuid.UUID, bool, error)
	Ancestors(id uuid.UUID) ([]uuid.UUID, error)
	DirectSubordinates(id uuid.UUID) ([]uuid.UUID, error)
	AllSubordinates(id uuid.UUID) ([]uuid.UUID, error)

	Salary(id uuid.UUID, period employee.Period) (float64, bool, error)
	Payroll(period employee.Period) ([]engine.PayrollLine, error)
	OrgChart() []engine.ChartNode
	Stats() engine.Stats
}

// Server encapsulates the HTTP API server
type Server struct {
	org    OrgService
	server *http.Server
	logger zerolog.Logger
	now    func() time.Time

	// exports is nil when report archiving is disabled.
	exports blob.BlobStore

	// TLS Config
	tlsCertFile string
	tlsKeyFile  string
}

// NewServer creates a new API server instance
func NewServer(org OrgService, addr string, logger zerolog.Logger) *Server {
	s := &Server{
		org:    org,
		logger: logger,
		now:    time.Now,
	}

	mux := http.NewServeMux()

	// Register routes
	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/employees", s.handleListEmployees)
	mux.HandleFunc("POST /v1/employees", s.handleAddEmployee)
	mux.HandleFunc("GET /v1/employees/{id}", s.handleGetEmployee)
	mux.HandleFunc("DELETE /v1/employees/{id}", s.handleRemoveEmployee)
	mux.HandleFunc("GET /v1/employees/{id}/chief", s.handleChief)
	mux.HandleFunc("GET /v1/employees/{id}/subordinates", s.handleSubordinates)
	mux.HandleFunc("GET /v1/employees/{id}/salary", s.handleSalary)
	mux.HandleFunc("POST /v1/relations", s.handleAddRelation)
	mux.HandleFunc("DELETE /v1/relations", s.handleRemoveRelation)
	mux.HandleFunc("GET /v1/payroll", s.handlePayroll)
	mux.HandleFunc("GET /v1/orgchart", s.handleOrgChart)
	mux.HandleFunc("GET /v1/reports", s.handleReports)
	mux.HandleFunc("POST /v1/exports", s.handleCreateExport)
	mux.HandleFunc("GET /v1/exports", s.handleListExports)
	mux.HandleFunc("GET /v1/exports/{key...}", s.handleGetExport)
	mux.HandleFunc("DELETE /v1/exports/{key...}", s.handleDeleteExport)

	// Middleware: Logging, Panic Recovery, Security Headers
	handler := s.withLogging(s.withRecovery(withSecureHeaders(mux)))

	// Use default port if addr is empty
	if addr == "" {
		addr = ":8090"
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetExports enables the report archive endpoints backed by store.
func (s *Server) SetExports(store blob.BlobStore) {
	s.exports = store
}

// SetTLS configures the server to use TLS
func (s *Server) SetTLS(certFile, keyFile string) {
	s.tlsCertFile = certFile
	s.tlsKeyFile = keyFile
}

// Start runs the HTTP server (blocking)
func (s *Server) Start() error {
	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		s.logger.Info().Str("addr", s.server.Addr).Msg("server_starting_tls")
		if err := s.server.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile); err != http.ErrServerClosed {
			return err
		}
	} else {
		s.logger.Info().Str("addr", s.server.Addr).Msg("server_starting")
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("server_stopping")
	return s.server.Shutdown(ctx)
}

// handleHealth returns simple status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	stats := s.org.Stats()
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"employees": stats.Employees,
		"relations": stats.Relations,
	})
}
