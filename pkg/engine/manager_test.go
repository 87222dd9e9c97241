package engine

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmax-ai/orgchart/pkg/employee"
	"github.com/rmax-ai/orgchart/pkg/graph"
	"github.com/rmax-ai/orgchart/pkg/salary"
)

var (
	hired = employee.Period{Year: 2026, Month: time.January}

	workerDescr  = employee.Descriptor{Role: employee.RoleWorker, BaseSalary: 100000, Hired: hired}
	foremanDescr = employee.Descriptor{Role: employee.RoleForeman, BaseSalary: 200000, Hired: hired}
	managerDescr = employee.Descriptor{Role: employee.RoleManager, BaseSalary: 300000, Hired: hired}
)

func addN(t *testing.T, m *Manager, d employee.Descriptor, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, n)
	for i := range ids {
		e, err := m.AddEmployee(d)
		require.NoError(t, err)
		ids[i] = e.ID
	}
	return ids
}

func TestManager_AddEmployee(t *testing.T) {
	m := NewManager()
	ids := addN(t, m, foremanDescr, 2)
	assert.NotEqual(t, ids[0], ids[1])

	bad := workerDescr
	bad.BaseSalary = -1
	_, err := m.AddEmployee(bad)
	assert.ErrorIs(t, err, employee.ErrInvalidBaseSalary)

	badRole := workerDescr
	badRole.Role = employee.Role(11)
	_, err = m.AddEmployee(badRole)
	assert.ErrorIs(t, err, employee.ErrUnknownRole)

	assert.Len(t, m.Employees(), 2)
}

func TestManager_FindAndRemoveEmployee(t *testing.T) {
	m := NewManager()

	_, ok := m.FindEmployee(uuid.New())
	assert.False(t, ok)
	assert.ErrorIs(t, m.RemoveEmployee(uuid.New()), ErrEmployeeNotFound)

	id := addN(t, m, foremanDescr, 1)[0]
	found, ok := m.FindEmployee(id)
	require.True(t, ok)
	assert.Equal(t, foremanDescr, found.Descriptor())

	require.NoError(t, m.RemoveEmployee(id))
	_, ok = m.FindEmployee(id)
	assert.False(t, ok)
}

func TestManager_RemoveEmployeeDetachesRelations(t *testing.T) {
	m := NewManager()
	ids := addN(t, m, foremanDescr, 4)
	top, mid, leafA, leafB := ids[0], ids[1], ids[2], ids[3]

	require.NoError(t, m.AddSubordination(top, mid))
	require.NoError(t, m.AddSubordination(mid, leafA))
	require.NoError(t, m.AddSubordination(mid, leafB))

	require.NoError(t, m.RemoveEmployee(mid))

	subs, err := m.AllSubordinates(top)
	require.NoError(t, err)
	assert.Empty(t, subs)

	_, hasChief, err := m.Chief(leafA)
	require.NoError(t, err)
	assert.False(t, hasChief)

	// Former reports are free to take a new chief.
	require.NoError(t, m.AddSubordination(top, leafA))
	assert.Equal(t, Stats{Employees: 3, Relations: 1}, m.Stats())

	// Salary of the former chief no longer refers to the removed record.
	_, ok, err := m.Salary(top, hired)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManager_AddSubordination(t *testing.T) {
	m := NewManager()
	ids := addN(t, m, foremanDescr, 2)
	chief, sub := ids[0], ids[1]
	stranger := uuid.New()

	assert.ErrorIs(t, m.AddSubordination(stranger, sub), ErrEmployeeNotFound)
	assert.ErrorIs(t, m.AddSubordination(chief, stranger), ErrEmployeeNotFound)
	assert.ErrorIs(t, m.AddSubordination(chief, chief), graph.ErrSelfRelation)
	require.NoError(t, m.AddSubordination(chief, sub))
	assert.ErrorIs(t, m.AddSubordination(chief, sub), graph.ErrAlreadyHasChief)

	abc := addN(t, m, foremanDescr, 3)
	require.NoError(t, m.AddSubordination(abc[0], abc[1]))
	require.NoError(t, m.AddSubordination(abc[1], abc[2]))
	assert.ErrorIs(t, m.AddSubordination(abc[2], abc[0]), graph.ErrCycle)

	workers := addN(t, m, workerDescr, 2)
	assert.ErrorIs(t, m.AddSubordination(workers[0], workers[1]), ErrNotSupervisor)
	require.NoError(t, m.AddSubordination(chief, workers[0]), "workers may be subordinates")
}

func TestManager_RemoveSubordination(t *testing.T) {
	m := NewManager()
	ids := addN(t, m, foremanDescr, 2)
	chief, sub := ids[0], ids[1]

	require.NoError(t, m.AddSubordination(chief, sub))
	require.NoError(t, m.RemoveSubordination(chief, sub))

	assert.ErrorIs(t, m.RemoveSubordination(uuid.New(), sub), ErrEmployeeNotFound)
	assert.ErrorIs(t, m.RemoveSubordination(chief, uuid.New()), ErrEmployeeNotFound)

	wrong := addN(t, m, foremanDescr, 2)
	require.NoError(t, m.AddSubordination(chief, sub))
	assert.ErrorIs(t, m.RemoveSubordination(wrong[0], sub), graph.ErrRelationNotFound)
	assert.ErrorIs(t, m.RemoveSubordination(chief, wrong[1]), graph.ErrRelationNotFound)

	w := addN(t, m, workerDescr, 1)[0]
	assert.ErrorIs(t, m.RemoveSubordination(w, sub), ErrNotSupervisor)

	got, ok, err := m.Chief(sub)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, chief, got)
}

func TestManager_Queries(t *testing.T) {
	m := NewManager()

	_, _, err := m.Chief(uuid.New())
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	_, err = m.DirectSubordinates(uuid.New())
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	_, err = m.AllSubordinates(uuid.New())
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	_, err = m.Ancestors(uuid.New())
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	ids := addN(t, m, foremanDescr, 4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]
	require.NoError(t, m.AddSubordination(a, b))
	require.NoError(t, m.AddSubordination(b, c))
	require.NoError(t, m.AddSubordination(c, d))

	all, err := m.AllSubordinates(a)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	direct, err := m.DirectSubordinates(a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b}, direct)

	up, err := m.Ancestors(d)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c, b, a}, up)

	_, ok, err := m.Chief(a)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_Salary(t *testing.T) {
	m := NewManager()

	_, ok, err := m.Salary(uuid.New(), hired)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	assert.False(t, ok)

	mgr := addN(t, m, managerDescr, 1)[0]
	fm := addN(t, m, foremanDescr, 1)[0]
	ws := addN(t, m, workerDescr, 4)
	require.NoError(t, m.AddSubordination(mgr, fm))
	require.NoError(t, m.AddSubordination(mgr, ws[0]))
	require.NoError(t, m.AddSubordination(mgr, ws[1]))
	require.NoError(t, m.AddSubordination(fm, ws[2]))
	require.NoError(t, m.AddSubordination(fm, ws[3]))

	policyBefore := testutil.ToFloat64(OrgchartSalaryTotal.WithLabelValues(resultPolicy))
	_, ok, err = m.Salary(mgr, employee.Period{Year: 2024, Month: time.January})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, policyBefore+1, testutil.ToFloat64(OrgchartSalaryTotal.WithLabelValues(resultPolicy)))

	eleven := hired.AddMonths(132)
	amount, ok, err := m.Salary(mgr, eleven)
	require.NoError(t, err)
	require.True(t, ok)

	const w, f = 100000.0, 200000.0
	want := 300000 + 0.03*(1.4*f+0.07*2*2*w+4*2*w)
	assert.InDelta(t, want, amount, 1e-6)
}

func TestManager_InvalidPeriod(t *testing.T) {
	m := NewManager()
	id := addN(t, m, workerDescr, 1)[0]

	for _, p := range []employee.Period{{Year: 2026, Month: 0}, {Year: 2026, Month: 13}} {
		amount, ok, err := m.Salary(id, p)
		assert.ErrorIs(t, err, employee.ErrInvalidPeriod)
		assert.False(t, ok)
		assert.Zero(t, amount)

		lines, err := m.Payroll(p)
		assert.ErrorIs(t, err, employee.ErrInvalidPeriod)
		assert.Nil(t, lines)
	}
}

func TestManager_WithPolicy(t *testing.T) {
	p := salary.DefaultPolicy()
	p.WorkerBonusCap = 0.5
	m := NewManager(WithPolicy(p))
	w := addN(t, m, workerDescr, 1)[0]

	amount, ok, err := m.Salary(w, hired.AddMonths(132))
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 150000, amount, 1e-6)
	assert.Equal(t, 0.5, m.Policy().WorkerBonusCap)
}

func TestManager_LogsMutations(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(WithLogger(zerolog.New(&buf)))

	addN(t, m, workerDescr, 1)
	assert.Contains(t, buf.String(), `"employee_added"`)
	assert.Contains(t, buf.String(), `"role":"worker"`)
}

func TestManager_MutationMetrics(t *testing.T) {
	m := NewManager()
	okBefore := testutil.ToFloat64(OrgchartMutationsTotal.WithLabelValues("add_subordination", resultOK))
	rejBefore := testutil.ToFloat64(OrgchartMutationsTotal.WithLabelValues("add_subordination", resultRejected))

	ids := addN(t, m, foremanDescr, 2)
	require.NoError(t, m.AddSubordination(ids[0], ids[1]))
	require.Error(t, m.AddSubordination(ids[0], ids[1]))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(OrgchartMutationsTotal.WithLabelValues("add_subordination", resultOK)))
	assert.Equal(t, rejBefore+1, testutil.ToFloat64(OrgchartMutationsTotal.WithLabelValues("add_subordination", resultRejected)))
	assert.Equal(t, float64(1), testutil.ToFloat64(OrgchartRelations))
}

func TestManager_ConcurrentMutationsAndSalaries(t *testing.T) {
	m := NewManager()
	managers := addN(t, m, managerDescr, 2)
	foremen := addN(t, m, foremanDescr, 6)
	workers := addN(t, m, workerDescr, 12)
	supervisors := append(append([]uuid.UUID{}, managers...), foremen...)
	everyone := append(append([]uuid.UUID{}, supervisors...), workers...)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				chief := supervisors[(g+i)%len(supervisors)]
				sub := everyone[(g*7+i*3)%len(everyone)]
				switch i % 4 {
				case 0, 1:
					_ = m.AddSubordination(chief, sub)
				case 2:
					_ = m.RemoveSubordination(chief, sub)
				default:
					_, _, err := m.Salary(managers[g%2], hired.AddMonths(i))
					if err != nil {
						t.Errorf("salary: %v", err)
					}
				}
			}
		}(g)
	}
	wg.Wait()

	// Every employee still reaches a root within the roster size.
	for _, id := range everyone {
		up, err := m.Ancestors(id)
		require.NoError(t, err)
		assert.Less(t, len(up), len(everyone))
		assert.NotContains(t, up, id)
	}
}
