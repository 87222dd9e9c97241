package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/rmax-ai/orgchart/pkg/client"
	"github.com/rmax-ai/orgchart/pkg/employee"
)

const viewportHeight = 20

// Styles
var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Width(100)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(100)

	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	amountStyle = lipgloss.NewStyle().Width(12).Align(lipgloss.Right)
	naStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Width(12).Align(lipgloss.Right)

	roleStyles = map[employee.Role]lipgloss.Style{
		employee.RoleManager: lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true), // Purple
		employee.RoleForeman: lipgloss.NewStyle().Foreground(lipgloss.Color("39")),            // Blue
		employee.RoleWorker:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),            // Green
	}
)

// orgSource is the slice of the client the dashboard polls.
type orgSource interface {
	Ping(ctx context.Context) (client.Status, error)
	OrgChart(ctx context.Context) ([]client.ChartNode, error)
	Payroll(ctx context.Context, period employee.Period) (client.Payroll, error)
}

type tickMsg time.Time

type dataMsg struct {
	status  client.Status
	chart   []client.ChartNode
	payroll client.Payroll
	err     error
}

type model struct {
	source   orgSource
	interval time.Duration
	period   employee.Period

	spinner  spinner.Model
	viewport viewport.Model
	status   client.Status
	chart    []client.ChartNode
	payroll  client.Payroll
	err      error
	ready    bool
}

func initialModel(source orgSource, interval time.Duration, period employee.Period) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		source:   source,
		interval: interval,
		period:   period,
		spinner:  s,
		viewport: newViewport(100),
	}
}

func newViewport(width int) viewport.Model {
	vp := viewport.New(width, viewportHeight)
	vp.Style = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		PaddingRight(2)
	return vp
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		fetchData(m.source, m.period),
		tick(m.interval),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "left", "h":
			m.period = m.period.AddMonths(-1)
			return m, fetchData(m.source, m.period)
		case "right", "l":
			m.period = m.period.AddMonths(1)
			return m, fetchData(m.source, m.period)
		}
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tickMsg:
		cmds = append(cmds, fetchData(m.source, m.period), tick(m.interval))

	case dataMsg:
		if msg.err != nil {
			m.err = msg.err
		} else if msg.payroll.Period == m.period {
			// Responses for a period the user already moved away from are dropped.
			m.err = nil
			m.status = msg.status
			m.chart = msg.chart
			m.payroll = msg.payroll
			m.updateViewportContent()
		}
		m.ready = true

	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
		m.ready = true
	}

	return m, tea.Batch(cmds...)
}

func (m *model) updateViewportContent() {
	lines := make(map[uuid.UUID]client.PayrollLine, len(m.payroll.Lines))
	for _, l := range m.payroll.Lines {
		lines[l.EmployeeID] = l
	}

	var sb strings.Builder
	for _, root := range m.chart {
		renderNode(&sb, root, lines, 0)
	}
	m.viewport.SetContent(sb.String())
}

func renderNode(sb *strings.Builder, n client.ChartNode, lines map[uuid.UUID]client.PayrollLine, depth int) {
	amount := naStyle.Render("n/a")
	if l, ok := lines[n.ID]; ok && l.OK {
		amount = amountStyle.Render(fmt.Sprintf("%.2f", l.Amount))
	}

	fmt.Fprintf(sb, "%s %s%s %s\n",
		amount,
		strings.Repeat("  ", depth),
		roleStyles[n.Role].Render(n.Role.String()),
		idStyle.Render(n.ID.String()),
	)
	for _, r := range n.Reports {
		renderNode(sb, r, lines, depth+1)
	}
}

func (m model) View() string {
	if !m.ready {
		return fmt.Sprintf("\n%s Initializing...", m.spinner.View())
	}

	var summary strings.Builder
	summary.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Payroll "+m.period.String()) + "\n\n")
	if len(m.payroll.Lines) == 0 {
		summary.WriteString(subtleStyle.Render("No employees registered."))
	} else {
		summary.WriteString(fmt.Sprintf("Total:      %.2f\n", m.payroll.Total))
		summary.WriteString(fmt.Sprintf("Computable: %d of %d\n", m.payroll.Computable, len(m.payroll.Lines)))
	}
	topPane := paneStyle.Render(summary.String())

	header := headerStyle.Render(fmt.Sprintf("%s Organisation", m.spinner.View()))
	bottomPane := m.viewport.View()

	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("Offline: %v", m.err))
	} else {
		status = okStyle.Render(fmt.Sprintf("Online • %d Employees • %d Relations", m.status.Employees, m.status.Relations))
	}
	footer := subtleStyle.Render(fmt.Sprintf("\n%s\n←/→ change month • q to quit", status))

	return lipgloss.JoinVertical(lipgloss.Left, topPane, header, bottomPane, footer)
}

// Commands

func fetchData(source orgSource, period employee.Period) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		status, err := source.Ping(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		chart, err := source.OrgChart(ctx)
		if err != nil {
			return dataMsg{err: err}
		}
		payroll, err := source.Payroll(ctx, period)
		if err != nil {
			return dataMsg{err: err}
		}

		return dataMsg{
			status:  status,
			chart:   chart,
			payroll: payroll,
		}
	}
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
