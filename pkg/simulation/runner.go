package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rmax-ai/orgchart/pkg/client"
	"github.com/rmax-ai/orgchart/pkg/employee"
	"github.com/rmax-ai/orgchart/pkg/graph"
	"github.com/rmax-ai/orgchart/pkg/salary"
)

// payrollTolerance absorbs float summation order differences.
const payrollTolerance = 1e-6

// API is the part of the daemon client a simulation drives.
type API interface {
	AddEmployee(ctx context.Context, e client.NewEmployee) (client.Employee, error)
	AddRelation(ctx context.Context, chief, sub uuid.UUID) error
	ListEmployees(ctx context.Context) ([]client.Employee, error)
	OrgChart(ctx context.Context) ([]client.ChartNode, error)
	Payroll(ctx context.Context, period employee.Period) (client.Payroll, error)
	Ping(ctx context.Context) (client.Status, error)
}

type runner struct {
	api    API
	plan   plan
	rng    *rand.Rand
	logger zerolog.Logger
	res    *SimulationResult
}

// RunScenario builds the scenario's organisation through api and evaluates the
// resulting state. It returns an error only when the run could not proceed;
// failed checks are reported in the result.
func RunScenario(ctx context.Context, s Scenario, api API, logger zerolog.Logger) (SimulationResult, error) {
	p, err := s.plan()
	if err != nil {
		return SimulationResult{}, err
	}
	if p.Seed == 0 {
		p.Seed = time.Now().UnixNano()
	}

	logger.Info().Str("scenario", p.Name).Int64("seed", p.Seed).Msg("scenario_starting")
	start := time.Now()

	res := SimulationResult{
		ScenarioName: p.Name,
		Seed:         p.Seed,
		Period:       p.period,
	}
	r := &runner{
		api:    api,
		plan:   p,
		rng:    rand.New(rand.NewSource(p.Seed)),
		logger: logger,
		res:    &res,
	}

	org, err := r.build(ctx)
	if err != nil {
		return res, err
	}
	if err := r.sabotage(ctx, org); err != nil {
		return res, err
	}
	if err := r.evaluate(ctx, org); err != nil {
		return res, err
	}

	res.Duration = time.Since(start)
	res.Success = true
	for _, inv := range res.Invariants {
		if !inv.Passed {
			res.Success = false
			break
		}
	}

	logger.Info().
		Str("scenario", p.Name).
		Bool("success", res.Success).
		Int("employees", res.Employees).
		Dur("duration", res.Duration).
		Msg("scenario_finished")
	return res, nil
}

// organisation is what the runner believes it created.
type organisation struct {
	managers []uuid.UUID
	foremen  []uuid.UUID
	workers  []uuid.UUID // with a chief
	loose    []uuid.UUID
	edges    []graph.Edge
}

func (o *organisation) size() int {
	return len(o.managers) + len(o.foremen) + len(o.workers) + len(o.loose)
}

func (r *runner) build(ctx context.Context) (*organisation, error) {
	p := r.plan
	org := &organisation{}

	// Descriptors are drawn up front so the seed alone fixes the organisation.
	managers := r.descriptors(employee.RoleManager, p.Managers)
	foremen := r.descriptors(employee.RoleForeman, p.Managers*p.ForemenPerManager)
	workers := r.descriptors(employee.RoleWorker, p.Managers*p.ForemenPerManager*p.WorkersPerForeman)
	loose := r.descriptors(employee.RoleWorker, p.LooseWorkers)

	var err error
	if org.managers, err = r.register(ctx, managers); err != nil {
		return nil, err
	}
	if org.foremen, err = r.register(ctx, foremen); err != nil {
		return nil, err
	}
	if org.workers, err = r.register(ctx, workers); err != nil {
		return nil, err
	}
	if org.loose, err = r.register(ctx, loose); err != nil {
		return nil, err
	}

	for i, f := range org.foremen {
		org.edges = append(org.edges, graph.Edge{ChiefID: org.managers[i/p.ForemenPerManager], SubordinateID: f})
	}
	for i, w := range org.workers {
		org.edges = append(org.edges, graph.Edge{ChiefID: org.foremen[i/p.WorkersPerForeman], SubordinateID: w})
	}
	if err := r.relate(ctx, org.edges); err != nil {
		return nil, err
	}

	r.logger.Debug().Int("employees", org.size()).Int("relations", len(org.edges)).Msg("organisation_built")
	return org, nil
}

func (r *runner) descriptors(role employee.Role, n int) []client.NewEmployee {
	p := r.plan
	span := p.hiredTo.MonthsSince(p.hiredFrom) + 1
	out := make([]client.NewEmployee, n)
	for i := range out {
		base := p.BaseSalary.Min + r.rng.Float64()*(p.BaseSalary.Max-p.BaseSalary.Min)
		out[i] = client.NewEmployee{
			Role:       role,
			BaseSalary: math.Round(base*100) / 100,
			Hired:      p.hiredFrom.AddMonths(r.rng.Intn(span)),
		}
	}
	return out
}

// register adds employees with up to Concurrency requests in flight and returns
// their ids in input order.
func (r *runner) register(ctx context.Context, batch []client.NewEmployee) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, len(batch))
	err := r.parallel(ctx, len(batch), func(ctx context.Context, i int) error {
		e, err := r.api.AddEmployee(ctx, batch[i])
		if err != nil {
			return fmt.Errorf("add %s: %w", batch[i].Role, err)
		}
		ids[i] = e.ID
		return nil
	})
	return ids, err
}

func (r *runner) relate(ctx context.Context, edges []graph.Edge) error {
	return r.parallel(ctx, len(edges), func(ctx context.Context, i int) error {
		if err := r.api.AddRelation(ctx, edges[i].ChiefID, edges[i].SubordinateID); err != nil {
			return fmt.Errorf("relate %s -> %s: %w", edges[i].ChiefID, edges[i].SubordinateID, err)
		}
		return nil
	})
}

// parallel runs fn for 0..n-1 on a fixed pool of workers and returns the first
// error. Remaining work is cancelled once an error occurs.
func (r *runner) parallel(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for w := 0; w < r.plan.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				atomic.AddUint64(&r.res.TotalRequests, 1)
				if err := fn(ctx, i); err != nil {
					atomic.AddUint64(&r.res.TotalErrors, 1)
					once.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// sabotage attempts hierarchy changes that break the rules. Each must be
// rejected and must leave the hierarchy untouched.
func (r *runner) sabotage(ctx context.Context, org *organisation) error {
	type attempt struct {
		kind       string
		chief, sub uuid.UUID
	}

	var candidates []attempt
	if len(org.workers)+len(org.loose) >= 2 {
		pool := append(append([]uuid.UUID{}, org.workers...), org.loose...)
		a, b := pool[0], pool[len(pool)-1]
		candidates = append(candidates, attempt{kind: "worker_chief", chief: a, sub: b})
	}
	if len(org.edges) > 0 {
		e := org.edges[0]
		candidates = append(candidates, attempt{kind: "cycle", chief: e.SubordinateID, sub: e.ChiefID})
		candidates = append(candidates, attempt{kind: "self", chief: e.ChiefID, sub: e.ChiefID})
	}
	if len(org.managers) >= 2 && len(org.foremen) > 0 {
		// Every foreman already has a chief.
		candidates = append(candidates, attempt{kind: "second_chief", chief: org.managers[len(org.managers)-1], sub: org.foremen[0]})
	}
	if len(candidates) == 0 {
		return nil
	}

	accepted := 0
	for i := 0; i < r.plan.Sabotage; i++ {
		a := candidates[r.rng.Intn(len(candidates))]
		atomic.AddUint64(&r.res.TotalRequests, 1)

		err := r.api.AddRelation(ctx, a.chief, a.sub)
		if err := ctx.Err(); err != nil {
			return err
		}
		if err == nil {
			accepted++
			r.logger.Warn().Str("kind", a.kind).Str("chief", a.chief.String()).Str("subordinate", a.sub.String()).Msg("invalid_change_accepted")
			continue
		}
		atomic.AddUint64(&r.res.TotalRejected, 1)
	}

	r.addInvariant("invalid_changes_rejected", "0 accepted", fmt.Sprintf("%d accepted", accepted), accepted == 0)
	return nil
}

func (r *runner) evaluate(ctx context.Context, org *organisation) error {
	status, err := r.api.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	employees, err := r.api.ListEmployees(ctx)
	if err != nil {
		return fmt.Errorf("list employees: %w", err)
	}
	chart, err := r.api.OrgChart(ctx)
	if err != nil {
		return fmt.Errorf("org chart: %w", err)
	}
	payroll, err := r.api.Payroll(ctx, r.plan.period)
	if err != nil {
		return fmt.Errorf("payroll: %w", err)
	}

	r.res.Employees = status.Employees
	r.res.Relations = status.Relations
	r.res.PayrollTotal = payroll.Total
	r.res.Computable = payroll.Computable

	r.addInvariant("employees", fmt.Sprint(org.size()), fmt.Sprint(status.Employees), status.Employees == org.size())
	r.addInvariant("relations", fmt.Sprint(len(org.edges)), fmt.Sprint(status.Relations), status.Relations == len(org.edges))

	// Each employee appears exactly once in the chart, under the chief we assigned.
	seen := make(map[uuid.UUID]int, len(employees))
	local := graph.NewHierarchy()
	rejected := 0
	var walk func(nodes []client.ChartNode, chief uuid.UUID)
	walk = func(nodes []client.ChartNode, chief uuid.UUID) {
		for _, n := range nodes {
			seen[n.ID]++
			if chief != uuid.Nil {
				if err := local.AddRelation(chief, n.ID); err != nil {
					rejected++
				}
			}
			walk(n.Reports, n.ID)
		}
	}
	walk(chart, uuid.Nil)

	duplicates := 0
	for _, count := range seen {
		if count > 1 {
			duplicates++
		}
	}
	r.addInvariant("chart_is_forest",
		fmt.Sprintf("%d nodes, 0 duplicates, 0 rejected edges", len(employees)),
		fmt.Sprintf("%d nodes, %d duplicates, %d rejected edges", len(seen), duplicates, rejected),
		len(seen) == len(employees) && duplicates == 0 && rejected == 0)

	misplaced := 0
	for _, e := range org.edges {
		if chief, ok := local.Chief(e.SubordinateID); !ok || chief != e.ChiefID {
			misplaced++
		}
	}
	r.addInvariant("chart_matches_relations", "0 misplaced", fmt.Sprintf("%d misplaced", misplaced), misplaced == 0)

	// Recompute the payroll from the daemon's roster and chart.
	dir := make(roster, len(employees))
	for _, e := range employees {
		dir[e.ID] = e
	}
	calc := salary.NewCalculator(dir, local)
	expected, computable := 0.0, 0
	for _, e := range employees {
		amount, ok, err := calc.MonthSalary(e.ID, r.plan.period)
		if err != nil {
			return fmt.Errorf("local salary of %s: %w", e.ID, err)
		}
		if ok {
			expected += amount
			computable++
		}
	}
	r.res.PayrollExpected = expected

	r.addInvariant("payroll_total",
		fmt.Sprintf("%.2f", expected),
		fmt.Sprintf("%.2f", payroll.Total),
		math.Abs(expected-payroll.Total) <= payrollTolerance*math.Max(1, math.Abs(expected)))
	r.addInvariant("payroll_computable", fmt.Sprint(computable), fmt.Sprint(payroll.Computable), computable == payroll.Computable)
	return nil
}

func (r *runner) addInvariant(name, expected, actual string, passed bool) {
	r.res.Invariants = append(r.res.Invariants, InvariantResult{
		Name:     name,
		Expected: expected,
		Actual:   actual,
		Passed:   passed,
	})
	if !passed {
		r.logger.Warn().Str("invariant", name).Str("expected", expected).Str("actual", actual).Msg("invariant_failed")
	}
}

// roster adapts a list of employees to salary.Directory.
type roster map[uuid.UUID]employee.Employee

func (r roster) Employee(id uuid.UUID) (employee.Employee, bool) {
	e, ok := r[id]
	return e, ok
}
