package graph

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

// assertForest checks that both views describe the same relation and that no
// chief chain loops.
func assertForest(t *testing.T, h *Hierarchy) {
	t.Helper()
	h.mu.RLock()
	defer h.mu.RUnlock()

	inverse := 0
	for chief, subs := range h.subordinates {
		require.NotEmpty(t, subs, "empty subordinate set kept for %s", chief)
		for sub := range subs {
			inverse++
			got, ok := h.chiefOf[sub]
			require.True(t, ok, "inverse edge %s -> %s missing from primary view", chief, sub)
			require.Equal(t, chief, got)
		}
	}
	require.Equal(t, len(h.chiefOf), inverse, "views disagree on edge count")

	for start := range h.chiefOf {
		current := start
		steps := 0
		for {
			chief, ok := h.chiefOf[current]
			if !ok {
				break
			}
			require.NotEqual(t, start, chief, "cycle through %s", start)
			current = chief
			steps++
			require.LessOrEqual(t, steps, len(h.chiefOf), "chain from %s does not terminate", start)
		}
	}
}

func TestAddRelation(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(2)
	chief, sub := ids[0], ids[1]

	assert.ErrorIs(t, h.AddRelation(chief, chief), ErrSelfRelation)
	require.NoError(t, h.AddRelation(chief, sub))
	assert.ErrorIs(t, h.AddRelation(chief, sub), ErrAlreadyHasChief)

	got, ok := h.Chief(sub)
	require.True(t, ok)
	assert.Equal(t, chief, got)
	assertForest(t, h)
}

func TestAddRelation_SecondChiefRejected(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(3)

	require.NoError(t, h.AddRelation(ids[0], ids[2]))
	assert.ErrorIs(t, h.AddRelation(ids[1], ids[2]), ErrAlreadyHasChief)

	got, _ := h.Chief(ids[2])
	assert.Equal(t, ids[0], got, "existing chief must not be replaced")
	assert.Empty(t, h.DirectSubordinates(ids[1]))
}

func TestAddRelation_Cycle(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(3)
	a, b, c := ids[0], ids[1], ids[2]

	require.NoError(t, h.AddRelation(a, b))
	require.NoError(t, h.AddRelation(b, c))
	assert.ErrorIs(t, h.AddRelation(c, a), ErrCycle)
	assert.Equal(t, 2, h.Len())

	_, ok := h.Chief(a)
	assert.False(t, ok)
	assertForest(t, h)
}

func TestRemoveRelation(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(4)
	chief, sub, wrongChief, wrongSub := ids[0], ids[1], ids[2], ids[3]

	require.NoError(t, h.AddRelation(chief, sub))
	require.NoError(t, h.RemoveRelation(chief, sub))
	assert.ErrorIs(t, h.RemoveRelation(chief, sub), ErrRelationNotFound)

	require.NoError(t, h.AddRelation(chief, sub))
	assert.ErrorIs(t, h.RemoveRelation(wrongChief, sub), ErrRelationNotFound)
	assert.ErrorIs(t, h.RemoveRelation(chief, wrongSub), ErrRelationNotFound)
	assert.ErrorIs(t, h.RemoveRelation(chief, chief), ErrSelfRelation)

	got, ok := h.Chief(sub)
	require.True(t, ok, "mismatched removal must leave the real relation in place")
	assert.Equal(t, chief, got)
	assertForest(t, h)
}

func TestRemoveRelation_Chain(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(3)
	a, b, c := ids[0], ids[1], ids[2]

	require.NoError(t, h.AddRelation(a, b))
	require.NoError(t, h.AddRelation(b, c))

	assert.ErrorIs(t, h.RemoveRelation(a, c), ErrRelationNotFound, "c reports to b, not a")
	require.NoError(t, h.RemoveRelation(b, c))
	assert.ErrorIs(t, h.RemoveRelation(a, c), ErrRelationNotFound)
	assert.ErrorIs(t, h.RemoveRelation(c, b), ErrRelationNotFound)

	// c is a root again and may now report to a.
	require.NoError(t, h.AddRelation(a, c))
	assert.ElementsMatch(t, []uuid.UUID{b, c}, h.DirectSubordinates(a))
	assertForest(t, h)
}

func TestChief_Absent(t *testing.T) {
	h := NewHierarchy()
	_, ok := h.Chief(uuid.New())
	assert.False(t, ok)
}

func TestDirectSubordinates(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(8)
	chief, subs := ids[0], ids[1:4]

	assert.Empty(t, h.DirectSubordinates(uuid.New()))

	for i, s := range subs {
		require.NoError(t, h.AddRelation(chief, s))
		assert.Len(t, h.DirectSubordinates(chief), i+1)
	}

	require.NoError(t, h.RemoveRelation(chief, subs[2]))
	assert.Len(t, h.DirectSubordinates(chief), 2)

	// Indirect subordinates do not count as direct ones.
	require.NoError(t, h.RemoveRelation(chief, subs[1]))
	for _, s := range ids[4:] {
		require.NoError(t, h.AddRelation(subs[0], s))
	}
	assert.Equal(t, []uuid.UUID{subs[0]}, h.DirectSubordinates(chief))
	assert.Len(t, h.DirectSubordinates(subs[0]), 4)
}

func TestAllSubordinates_Chain(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(4)
	a, b, c, d := ids[0], ids[1], ids[2], ids[3]

	require.NoError(t, h.AddRelation(a, b))
	require.NoError(t, h.AddRelation(b, c))
	require.NoError(t, h.AddRelation(c, d))

	all := h.AllSubordinates(a)
	assert.Len(t, all, 3)
	assert.ElementsMatch(t, []uuid.UUID{b, c, d}, all)
	assert.ElementsMatch(t, []uuid.UUID{c, d}, h.AllSubordinates(b))
	assert.Equal(t, []uuid.UUID{b, c, d}, all, "breadth-first order for a chain")
}

func TestAllSubordinates_Tree(t *testing.T) {
	//      M
	//     / \
	//    N   P
	//   /   / \
	//  Q   R   S
	h := NewHierarchy()
	ids := newIDs(6)
	m, n, p, q, r, s := ids[0], ids[1], ids[2], ids[3], ids[4], ids[5]

	require.NoError(t, h.AddRelation(m, n))
	require.NoError(t, h.AddRelation(m, p))
	require.NoError(t, h.AddRelation(n, q))
	require.NoError(t, h.AddRelation(p, r))
	require.NoError(t, h.AddRelation(p, s))

	assert.ElementsMatch(t, []uuid.UUID{n, p, q, r, s}, h.AllSubordinates(m))
	assert.Equal(t, []uuid.UUID{q}, h.AllSubordinates(n))
	assert.ElementsMatch(t, []uuid.UUID{r, s}, h.AllSubordinates(p))

	for _, leaf := range []uuid.UUID{q, r, s} {
		got := h.AllSubordinates(leaf)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestAncestors(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(4)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.AddRelation(ids[i], ids[i+1]))
	}

	assert.Equal(t, []uuid.UUID{ids[2], ids[1], ids[0]}, h.Ancestors(ids[3]))
	assert.Empty(t, h.Ancestors(ids[0]))
}

func TestDetach(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(4)
	top, mid, leafA, leafB := ids[0], ids[1], ids[2], ids[3]

	require.NoError(t, h.AddRelation(top, mid))
	require.NoError(t, h.AddRelation(mid, leafA))
	require.NoError(t, h.AddRelation(mid, leafB))

	removed := h.Detach(mid)
	assert.Len(t, removed, 3)
	assert.Contains(t, removed, Edge{ChiefID: top, SubordinateID: mid})
	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.DirectSubordinates(top))

	assert.Equal(t, []uuid.UUID{top, leafA, leafB}, h.Roots([]uuid.UUID{top, leafA, leafB}))
	assert.Empty(t, h.Detach(mid))
	assertForest(t, h)
}

func TestEdges_Snapshot(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(3)
	require.NoError(t, h.AddRelation(ids[0], ids[1]))
	require.NoError(t, h.AddRelation(ids[0], ids[2]))

	edges := h.Edges()
	require.Len(t, edges, 2)
	for _, e := range edges {
		assert.Equal(t, ids[0], e.ChiefID)
	}
}

func TestForestInvariant_RandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h := NewHierarchy()
	ids := newIDs(12)

	for i := 0; i < 2000; i++ {
		a := ids[rng.Intn(len(ids))]
		b := ids[rng.Intn(len(ids))]
		if rng.Intn(3) == 0 {
			_ = h.RemoveRelation(a, b)
		} else {
			_ = h.AddRelation(a, b)
		}
		if i%100 == 0 {
			assertForest(t, h)
		}
	}
	assertForest(t, h)
}

func TestHierarchy_ConcurrentAccess(t *testing.T) {
	h := NewHierarchy()
	ids := newIDs(32)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 500; i++ {
				a := ids[rng.Intn(len(ids))]
				b := ids[rng.Intn(len(ids))]
				switch rng.Intn(5) {
				case 0:
					_ = h.RemoveRelation(a, b)
				case 1:
					h.AllSubordinates(a)
				case 2:
					h.Ancestors(a)
				default:
					_ = h.AddRelation(a, b)
				}
			}
		}(int64(w))
	}

	wg.Wait()
	assertForest(t, h)
}
