package graph

import (
	"bytes"
	"errors"
	"slices"

	"github.com/google/uuid"
)

// Structural violations reported by Hierarchy mutations. The hierarchy is left
// unchanged whenever one of these is returned.
var (
	ErrSelfRelation     = errors.New("an employee cannot be their own chief")
	ErrAlreadyHasChief  = errors.New("subordinate already has a chief")
	ErrCycle            = errors.New("relation would create a hierarchical cycle")
	ErrRelationNotFound = errors.New("relation not found")
)

// Edge represents a directed chief -> subordinate link.
type Edge struct {
	ChiefID       uuid.UUID `json:"chief_id"`
	SubordinateID uuid.UUID `json:"subordinate_id"`
}

// sortIDs orders identifiers so that query results are stable between calls.
// Byte order matches the order of the canonical string form.
func sortIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
}
