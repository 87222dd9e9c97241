// Package graph maintains the chief/subordinate relation over employees.
//
// The relation is a forest: every node has at most one chief and following the
// chief chain from any node terminates. Hierarchy keeps two views of the same
// relation, subordinate -> chief and chief -> subordinates, and updates both
// inside one critical section so readers never see one without the other.
//
// The package knows nothing about roles or employee records; callers are
// expected to check that identifiers exist and may supervise before mutating.
package graph

import (
	"sync"

	"github.com/google/uuid"
)

// Hierarchy is the in-memory chief/subordinate forest.
type Hierarchy struct {
	mu           sync.RWMutex
	chiefOf      map[uuid.UUID]uuid.UUID              // subordinate -> chief
	subordinates map[uuid.UUID]map[uuid.UUID]struct{} // chief -> direct subordinates
}

// NewHierarchy creates an empty hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{
		chiefOf:      make(map[uuid.UUID]uuid.UUID),
		subordinates: make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

// AddRelation records chief as the direct chief of sub.
//
// A subordinate that already has a chief is rejected rather than reassigned; the
// existing relation must be removed first. The edge is also rejected when sub is
// already an ancestor of chief.
func (h *Hierarchy) AddRelation(chief, sub uuid.UUID) error {
	if chief == sub {
		return ErrSelfRelation
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Views are consistent, so the primary map alone answers "has a chief".
	if _, exists := h.chiefOf[sub]; exists {
		return ErrAlreadyHasChief
	}

	if h.reachesLocked(chief, sub) {
		return ErrCycle
	}

	h.chiefOf[sub] = chief
	subs, ok := h.subordinates[chief]
	if !ok {
		subs = make(map[uuid.UUID]struct{})
		h.subordinates[chief] = subs
	}
	subs[sub] = struct{}{}

	return nil
}

// RemoveRelation deletes the edge chief -> sub. The pair must match exactly: a
// mismatched chief never removes the subordinate's real relation.
func (h *Hierarchy) RemoveRelation(chief, sub uuid.UUID) error {
	if chief == sub {
		return ErrSelfRelation
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.chiefOf[sub]
	if !ok || current != chief {
		return ErrRelationNotFound
	}

	h.unlinkLocked(chief, sub)
	return nil
}

// Chief returns the direct chief of id. The boolean is false when id has none.
func (h *Hierarchy) Chief(id uuid.UUID) (uuid.UUID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	chief, ok := h.chiefOf[id]
	return chief, ok
}

// DirectSubordinates returns the employees whose recorded chief is id.
func (h *Hierarchy) DirectSubordinates(id uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.directLocked(id)
}

// AllSubordinates returns every transitive subordinate of id, breadth first.
func (h *Hierarchy) AllSubordinates(id uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]uuid.UUID, 0)
	// The forest invariant already rules out revisits; the set only guards
	// against a corrupted state turning the walk into an endless loop.
	visited := map[uuid.UUID]struct{}{id: {}}
	queue := h.directLocked(id)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}
		result = append(result, current)

		queue = append(queue, h.directLocked(current)...)
	}

	return result
}

// Ancestors returns the chain of chiefs above id, nearest first.
func (h *Hierarchy) Ancestors(id uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var chain []uuid.UUID
	current := id
	for steps := 0; steps <= len(h.chiefOf); steps++ {
		chief, ok := h.chiefOf[current]
		if !ok {
			break
		}
		chain = append(chain, chief)
		current = chief
	}
	return chain
}

// Detach removes every edge touching id: the link to its chief and the links to
// its direct subordinates, who become roots. The removed edges are returned.
func (h *Hierarchy) Detach(id uuid.UUID) []Edge {
	h.mu.Lock()
	defer h.mu.Unlock()

	var removed []Edge
	if chief, ok := h.chiefOf[id]; ok {
		h.unlinkLocked(chief, id)
		removed = append(removed, Edge{ChiefID: chief, SubordinateID: id})
	}
	for _, sub := range h.directLocked(id) {
		h.unlinkLocked(id, sub)
		removed = append(removed, Edge{ChiefID: id, SubordinateID: sub})
	}
	return removed
}

// Roots returns the members of ids that have no recorded chief, preserving order.
func (h *Hierarchy) Roots(ids []uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roots := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := h.chiefOf[id]; !ok {
			roots = append(roots, id)
		}
	}
	return roots
}

// Edges returns a snapshot of all relations ordered by subordinate.
func (h *Hierarchy) Edges() []Edge {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := make([]uuid.UUID, 0, len(h.chiefOf))
	for sub := range h.chiefOf {
		subs = append(subs, sub)
	}
	sortIDs(subs)

	edges := make([]Edge, 0, len(subs))
	for _, sub := range subs {
		edges = append(edges, Edge{ChiefID: h.chiefOf[sub], SubordinateID: sub})
	}
	return edges
}

// Len returns the number of recorded relations.
func (h *Hierarchy) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.chiefOf)
}

// reachesLocked walks the chief chain upwards from start and reports whether
// target is met. The walk is bounded by the number of recorded relations; running
// past the bound means the chain loops, which is reported as reaching target.
// Must be called with h.mu held.
func (h *Hierarchy) reachesLocked(start, target uuid.UUID) bool {
	current := start
	for steps := 0; steps <= len(h.chiefOf); steps++ {
		if current == target {
			return true
		}
		chief, ok := h.chiefOf[current]
		if !ok {
			return false
		}
		current = chief
	}
	return true
}

// directLocked returns the sorted direct subordinates of id.
// Must be called with h.mu held.
func (h *Hierarchy) directLocked(id uuid.UUID) []uuid.UUID {
	subs := h.subordinates[id]
	out := make([]uuid.UUID, 0, len(subs))
	for sub := range subs {
		out = append(out, sub)
	}
	sortIDs(out)
	return out
}

// unlinkLocked removes chief -> sub from both views.
// Must be called with h.mu held for writing.
func (h *Hierarchy) unlinkLocked(chief, sub uuid.UUID) {
	delete(h.chiefOf, sub)
	if subs, ok := h.subordinates[chief]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subordinates, chief)
		}
	}
}
