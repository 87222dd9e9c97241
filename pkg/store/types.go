// Package store holds the employee roster in memory.
package store

import "errors"

var (
	ErrNotFound  = errors.New("employee not found")
	ErrDuplicate = errors.New("employee already registered")
)
