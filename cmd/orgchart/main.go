package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/rmax-ai/orgchart/pkg/client"
	"github.com/rmax-ai/orgchart/pkg/employee"
)

var (
	Version   = "v0.1.0"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const usage = `Usage: orgchart [--endpoint URL] <command> [args]

Commands:
  health                                  daemon status
  employee add --role R --base N --hired YYYY-MM
  employee list
  employee show <id>
  employee rm <id>
  relate <chief-id> <subordinate-id>      make chief the direct chief of subordinate
  unrelate <chief-id> <subordinate-id>    remove that relation
  chief <id>                              chain of command above id
  subs <id> [--all]                       direct (or all) subordinates
  salary <id> [--period YYYY-MM]          monthly salary
  payroll [--period YYYY-MM] [--csv]      salary of every employee
  chart                                   print the organisation tree
  export create [--type T] [--period YYYY-MM] [--format F]
  export list [prefix]
  export get <key>
  export rm <key>
  version
`

// errUsage marks errors caused by bad invocation.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprint(os.Stderr, usage)
			return
		}
		fmt.Fprintf(os.Stderr, "orgchart: %v\n", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		if client.IsNotFound(err) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

type cli struct {
	api *client.Client
	out io.Writer
	now func() time.Time
}

func run(ctx context.Context, args []string, out io.Writer) error {
	flagSet := pflag.NewFlagSet("orgchart", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.SetInterspersed(false)
	endpoint := flagSet.String("endpoint", envOrDefault("ORGCHART_ENDPOINT", "http://127.0.0.1:8090"), "daemon URL")
	retries := flagSet.Int("retries", 2, "retries for read requests")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}

	c := &cli{
		api: client.NewClient(*endpoint, client.WithRetries(*retries, client.DefaultBackoff())),
		out: out,
		now: time.Now,
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "health":
		return c.health(ctx)
	case "employee", "employees", "emp":
		return c.employee(ctx, cmdArgs)
	case "relate":
		return c.relate(ctx, cmdArgs, true)
	case "unrelate":
		return c.relate(ctx, cmdArgs, false)
	case "chief":
		return c.chief(ctx, cmdArgs)
	case "subs", "subordinates":
		return c.subordinates(ctx, cmdArgs)
	case "salary":
		return c.salary(ctx, cmdArgs)
	case "payroll":
		return c.payroll(ctx, cmdArgs)
	case "chart":
		return c.chart(ctx)
	case "export", "exports":
		return c.export(ctx, cmdArgs)
	case "version":
		fmt.Fprintf(out, "orgchart %s (%s, built %s)\n", Version, Commit, BuildTime)
		return nil
	case "help":
		return pflag.ErrHelp
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (c *cli) health(ctx context.Context) error {
	status, err := c.api.Ping(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %d employees, %d relations\n", status.Status, status.Employees, status.Relations)
	return nil
}

func (c *cli) employee(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: employee needs a subcommand", errUsage)
	}

	switch args[0] {
	case "add":
		flagSet := pflag.NewFlagSet("employee add", pflag.ContinueOnError)
		flagSet.SetOutput(io.Discard)
		role := flagSet.String("role", "", "worker|foreman|manager")
		base := flagSet.Float64("base", 0, "monthly base salary")
		hired := flagSet.String("hired", "", "hire month YYYY-MM")
		if err := flagSet.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}

		r, err := employee.ParseRole(*role)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		p, err := employee.ParsePeriod(*hired)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}

		e, err := c.api.AddEmployee(ctx, client.NewEmployee{Role: r, BaseSalary: *base, Hired: p})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, e.ID)
		return nil

	case "list", "ls":
		employees, err := c.api.ListEmployees(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tROLE\tBASE\tHIRED")
		for _, e := range employees {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", e.ID, e.Role, e.BaseSalary, e.Hired)
		}
		return tw.Flush()

	case "show":
		id, err := oneID(args[1:])
		if err != nil {
			return err
		}
		e, err := c.api.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "id:     %s\nrole:   %s\nbase:   %.2f\nhired:  %s\n", e.ID, e.Role, e.BaseSalary, e.Hired)
		return nil

	case "rm", "remove":
		id, err := oneID(args[1:])
		if err != nil {
			return err
		}
		return c.api.RemoveEmployee(ctx, id)

	default:
		return fmt.Errorf("%w: unknown employee subcommand %q", errUsage, args[0])
	}
}

func (c *cli) relate(ctx context.Context, args []string, add bool) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: expected <chief-id> <subordinate-id>", errUsage)
	}
	chief, err := parseID(args[0])
	if err != nil {
		return err
	}
	sub, err := parseID(args[1])
	if err != nil {
		return err
	}
	if add {
		return c.api.AddRelation(ctx, chief, sub)
	}
	return c.api.RemoveRelation(ctx, chief, sub)
}

func (c *cli) chief(ctx context.Context, args []string) error {
	id, err := oneID(args)
	if err != nil {
		return err
	}
	chief, err := c.api.Chief(ctx, id)
	if err != nil {
		return err
	}
	if chief.ChiefID == nil {
		fmt.Fprintln(c.out, "(no chief)")
		return nil
	}
	for _, a := range chief.Ancestors {
		fmt.Fprintln(c.out, a)
	}
	return nil
}

func (c *cli) subordinates(ctx context.Context, args []string) error {
	flagSet := pflag.NewFlagSet("subs", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	all := flagSet.Bool("all", false, "include indirect subordinates")
	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	id, err := oneID(flagSet.Args())
	if err != nil {
		return err
	}

	subs, err := c.api.Subordinates(ctx, id, *all)
	if err != nil {
		return err
	}
	for _, s := range subs {
		fmt.Fprintln(c.out, s)
	}
	return nil
}

func (c *cli) salary(ctx context.Context, args []string) error {
	flagSet := pflag.NewFlagSet("salary", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	rawPeriod := flagSet.String("period", "", "month YYYY-MM (default: current month)")
	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	id, err := oneID(flagSet.Args())
	if err != nil {
		return err
	}
	period, err := c.period(*rawPeriod)
	if err != nil {
		return err
	}

	sal, err := c.api.Salary(ctx, id, period)
	if err != nil {
		return err
	}
	if !sal.OK {
		fmt.Fprintf(c.out, "%s\tn/a\n", period)
		return nil
	}
	fmt.Fprintf(c.out, "%s\t%.2f\n", period, sal.Amount)
	return nil
}

func (c *cli) payroll(ctx context.Context, args []string) error {
	flagSet := pflag.NewFlagSet("payroll", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	rawPeriod := flagSet.String("period", "", "month YYYY-MM (default: current month)")
	asCSV := flagSet.Bool("csv", false, "print the CSV report")
	if err := flagSet.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	period, err := c.period(*rawPeriod)
	if err != nil {
		return err
	}

	if *asCSV {
		data, err := c.api.PayrollCSV(ctx, period)
		if err != nil {
			return err
		}
		_, err = c.out.Write(data)
		return err
	}

	payroll, err := c.api.Payroll(ctx, period)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROLE\tBASE\tAMOUNT")
	for _, l := range payroll.Lines {
		amount := "n/a"
		if l.OK {
			amount = fmt.Sprintf("%.2f", l.Amount)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", l.EmployeeID, l.Role, l.BaseSalary, amount)
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t%.2f\n", payroll.Total)
	return tw.Flush()
}

func (c *cli) chart(ctx context.Context) error {
	chart, err := c.api.OrgChart(ctx)
	if err != nil {
		return err
	}
	for _, root := range chart {
		printNode(c.out, root, 0)
	}
	return nil
}

func (c *cli) export(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: export needs a subcommand", errUsage)
	}

	switch args[0] {
	case "create":
		flagSet := pflag.NewFlagSet("export create", pflag.ContinueOnError)
		flagSet.SetOutput(io.Discard)
		reportType := flagSet.String("type", "payroll", "payroll|orgchart")
		rawPeriod := flagSet.String("period", "", "month YYYY-MM (default: current month)")
		format := flagSet.String("format", "csv", "csv|json")
		if err := flagSet.Parse(args[1:]); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		period, err := c.period(*rawPeriod)
		if err != nil {
			return err
		}
		exp, err := c.api.Export(ctx, *reportType, period, *format)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s\t%d bytes\n", exp.Key, exp.Bytes)
		return nil

	case "list", "ls":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		keys, err := c.api.ListExports(ctx, prefix)
		if err != nil {
			return err
		}
		for _, k := range keys {
			fmt.Fprintln(c.out, k)
		}
		return nil

	case "get":
		if len(args) != 2 {
			return fmt.Errorf("%w: expected one export key", errUsage)
		}
		data, err := c.api.GetExport(ctx, args[1])
		if err != nil {
			return err
		}
		_, err = c.out.Write(data)
		return err

	case "rm", "remove":
		if len(args) != 2 {
			return fmt.Errorf("%w: expected one export key", errUsage)
		}
		return c.api.DeleteExport(ctx, args[1])

	default:
		return fmt.Errorf("%w: unknown export subcommand %q", errUsage, args[0])
	}
}

func printNode(w io.Writer, n client.ChartNode, depth int) {
	fmt.Fprintf(w, "%s%s %s (%.2f, hired %s)\n", strings.Repeat("  ", depth), n.ID, n.Role, n.BaseSalary, n.Hired)
	for _, r := range n.Reports {
		printNode(w, r, depth+1)
	}
}

func (c *cli) period(raw string) (employee.Period, error) {
	if raw == "" {
		return employee.PeriodOf(c.now()), nil
	}
	p, err := employee.ParsePeriod(raw)
	if err != nil {
		return employee.Period{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	return p, nil
}

func oneID(args []string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, fmt.Errorf("%w: expected exactly one employee id", errUsage)
	}
	return parseID(args[0])
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid employee id %q", errUsage, raw)
	}
	return id, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
