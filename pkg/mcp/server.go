// Package mcp exposes the orgchart daemon to agents over the Model Context
// Protocol. Tools and resources are thin wrappers around the HTTP client.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rmax-ai/orgchart/pkg/client"
	"github.com/rmax-ai/orgchart/pkg/employee"
)

// Server adapts orgchart-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
	now       func() time.Time
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"orgchart",
			version,
		),
		apiClient: client.NewClient(apiURL, client.WithRetries(2, client.DefaultBackoff())),
		now:       time.Now,
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(
		"orgchart://chart",
		"Organisation Chart",
		mcp.WithResourceDescription("Current chief/subordinate forest with each employee's role, base salary and hire month"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadChart)

	s.mcpServer.AddResource(mcp.NewResource(
		"orgchart://employees",
		"Employee Roster",
		mcp.WithResourceDescription("Every registered employee"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadEmployees)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"add_employee",
		mcp.WithDescription("Register an employee. Returns the new employee id."),
		mcp.WithString("role", mcp.Required(), mcp.Description("worker, foreman or manager")),
		mcp.WithNumber("base_salary", mcp.Required(), mcp.Description("Monthly base salary, zero or more")),
		mcp.WithString("hired", mcp.Required(), mcp.Description("Hire month as YYYY-MM")),
	), s.handleAddEmployee)

	s.mcpServer.AddTool(mcp.NewTool(
		"remove_employee",
		mcp.WithDescription("Remove an employee. Their direct subordinates lose their chief."),
		mcp.WithString("employee_id", mcp.Required(), mcp.Description("Employee UUID")),
	), s.handleRemoveEmployee)

	s.mcpServer.AddTool(mcp.NewTool(
		"assign_chief",
		mcp.WithDescription("Make chief_id the direct chief of subordinate_id. Workers cannot be chiefs; cycles are rejected."),
		mcp.WithString("chief_id", mcp.Required(), mcp.Description("Chief UUID")),
		mcp.WithString("subordinate_id", mcp.Required(), mcp.Description("Subordinate UUID")),
	), s.handleAssignChief)

	s.mcpServer.AddTool(mcp.NewTool(
		"remove_chief",
		mcp.WithDescription("Remove the relation chief_id -> subordinate_id. The pair must match exactly."),
		mcp.WithString("chief_id", mcp.Required(), mcp.Description("Chief UUID")),
		mcp.WithString("subordinate_id", mcp.Required(), mcp.Description("Subordinate UUID")),
	), s.handleRemoveChief)

	s.mcpServer.AddTool(mcp.NewTool(
		"subordinates",
		mcp.WithDescription("List the subordinates of an employee."),
		mcp.WithString("employee_id", mcp.Required(), mcp.Description("Employee UUID")),
		mcp.WithString("scope", mcp.Description("direct (default) or all")),
	), s.handleSubordinates)

	s.mcpServer.AddTool(mcp.NewTool(
		"salary",
		mcp.WithDescription("Compute an employee's monthly salary, including subordinate bonuses."),
		mcp.WithString("employee_id", mcp.Required(), mcp.Description("Employee UUID")),
		mcp.WithString("period", mcp.Description("Month as YYYY-MM (default: current month)")),
	), s.handleSalary)

	s.mcpServer.AddTool(mcp.NewTool(
		"payroll",
		mcp.WithDescription("Compute every employee's salary for one month."),
		mcp.WithString("period", mcp.Description("Month as YYYY-MM (default: current month)")),
	), s.handlePayroll)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"orgchart-aware",
		mcp.WithPromptDescription("Explains roles, the hierarchy rules and how salaries are computed"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadChart(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	chart, err := s.apiClient.OrgChart(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart: %w", err)
	}
	return jsonResource(request.Params.URI, chart)
}

func (s *Server) handleReadEmployees(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	employees, err := s.apiClient.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch employees: %w", err)
	}
	return jsonResource(request.Params.URI, employees)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleAddEmployee(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	role, err := employee.ParseRole(mcp.ParseString(request, "role", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hired, err := employee.ParsePeriod(mcp.ParseString(request, "hired", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := s.apiClient.AddEmployee(ctx, client.NewEmployee{
		Role:       role,
		BaseSalary: mcp.ParseFloat64(request, "base_salary", 0),
		Hired:      hired,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Registered %s %s hired %s", e.Role, e.ID, e.Hired)), nil
}

func (s *Server) handleRemoveEmployee(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := parseID(request, "employee_id")
	if errResult != nil {
		return errResult, nil
	}
	if err := s.apiClient.RemoveEmployee(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Removed %s", id)), nil
}

func (s *Server) handleAssignChief(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chief, sub, errResult := parsePair(request)
	if errResult != nil {
		return errResult, nil
	}
	if err := s.apiClient.AddRelation(ctx, chief, sub); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Rejected: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s now reports to %s", sub, chief)), nil
}

func (s *Server) handleRemoveChief(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	chief, sub, errResult := parsePair(request)
	if errResult != nil {
		return errResult, nil
	}
	if err := s.apiClient.RemoveRelation(ctx, chief, sub); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Rejected: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s no longer reports to %s", sub, chief)), nil
}

func (s *Server) handleSubordinates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := parseID(request, "employee_id")
	if errResult != nil {
		return errResult, nil
	}
	scope := mcp.ParseString(request, "scope", "direct")
	if scope != "direct" && scope != "all" {
		return mcp.NewToolResultError("scope must be direct or all"), nil
	}

	subs, err := s.apiClient.Subordinates(ctx, id, scope == "all")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	if len(subs) == 0 {
		return mcp.NewToolResultText("No subordinates"), nil
	}

	lines := make([]string, 0, len(subs))
	for _, sub := range subs {
		lines = append(lines, sub.String())
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) handleSalary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errResult := parseID(request, "employee_id")
	if errResult != nil {
		return errResult, nil
	}
	period, errResult := s.parsePeriod(request)
	if errResult != nil {
		return errResult, nil
	}

	sal, err := s.apiClient.Salary(ctx, id, period)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	if !sal.OK {
		return mcp.NewToolResultText(fmt.Sprintf("No salary for %s in %s: the month precedes a contributing hire date", id, period)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Salary of %s for %s: %.2f", id, period, sal.Amount)), nil
}

func (s *Server) handlePayroll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	period, errResult := s.parsePeriod(request)
	if errResult != nil {
		return errResult, nil
	}

	payroll, err := s.apiClient.Payroll(ctx, period)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Payroll %s: %d of %d computable, total %.2f\n", period, payroll.Computable, len(payroll.Lines), payroll.Total)
	for _, l := range payroll.Lines {
		if l.OK {
			fmt.Fprintf(&b, "%s %-8s %12.2f\n", l.EmployeeID, l.Role, l.Amount)
		} else {
			fmt.Fprintf(&b, "%s %-8s %12s\n", l.EmployeeID, l.Role, "n/a")
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "orgchart-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are managing an organisation chart.

Concepts:
- Employee: identified by a UUID, with a role (worker, foreman, manager), a monthly base salary and a hire month.
- Chief: every employee has at most one direct chief. Workers can never be chiefs. Cycles are rejected.
- Salary (per month):
  - worker: base + 10% of base per full year of service, bonus capped at 100% of base.
  - foreman: base + 5% per full year (capped at 40%) + 7% of the salaries of direct subordinates.
  - manager: base + 3% of the salaries of all subordinates at every level.
- A salary cannot be computed for a month before the employee, or any subordinate counted in it, was hired.

Use the 'orgchart://chart' resource to see the current hierarchy before changing it.
`

	return mcp.NewGetPromptResult(
		"orgchart-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}

func parseID(request mcp.CallToolRequest, key string) (uuid.UUID, *mcp.CallToolResult) {
	id, err := uuid.Parse(mcp.ParseString(request, key, ""))
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(fmt.Sprintf("invalid %s: %v", key, err))
	}
	return id, nil
}

func parsePair(request mcp.CallToolRequest) (uuid.UUID, uuid.UUID, *mcp.CallToolResult) {
	chief, errResult := parseID(request, "chief_id")
	if errResult != nil {
		return uuid.Nil, uuid.Nil, errResult
	}
	sub, errResult := parseID(request, "subordinate_id")
	if errResult != nil {
		return uuid.Nil, uuid.Nil, errResult
	}
	return chief, sub, nil
}

func (s *Server) parsePeriod(request mcp.CallToolRequest) (employee.Period, *mcp.CallToolResult) {
	raw := mcp.ParseString(request, "period", "")
	if raw == "" {
		return employee.PeriodOf(s.now()), nil
	}
	p, err := employee.ParsePeriod(raw)
	if err != nil {
		return employee.Period{}, mcp.NewToolResultError(err.Error())
	}
	return p, nil
}
