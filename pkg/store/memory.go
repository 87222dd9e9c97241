package store

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/rmax-ai/orgchart/pkg/employee"
)

// Store is an in-memory employee directory safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	employees map[uuid.UUID]employee.Employee
	newID     func() uuid.UUID
}

// NewStore creates an empty roster.
func NewStore() *Store {
	return &Store{
		employees: make(map[uuid.UUID]employee.Employee),
		newID:     uuid.New,
	}
}

// Add validates d and registers it under a freshly generated identifier.
func (s *Store) Add(d employee.Descriptor) (employee.Employee, error) {
	if err := d.Validate(); err != nil {
		return employee.Employee{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	if _, exists := s.employees[id]; exists {
		return employee.Employee{}, fmt.Errorf("%w: %s", ErrDuplicate, id)
	}

	e := employee.New(id, d)
	s.employees[id] = e
	return e, nil
}

// Remove deletes the record for id.
func (s *Store) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.employees, id)
	return nil
}

// Employee returns the record for id.
func (s *Store) Employee(id uuid.UUID) (employee.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.employees[id]
	return e, ok
}

// Contains reports whether id is registered.
func (s *Store) Contains(id uuid.UUID) bool {
	_, ok := s.Employee(id)
	return ok
}

// All returns every record ordered by identifier.
func (s *Store) All() []employee.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]employee.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b employee.Employee) int {
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out
}

// Len returns the number of registered employees.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.employees)
}
