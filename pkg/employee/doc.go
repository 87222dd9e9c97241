// Package employee defines the roster record shared by the hierarchy, the salary
// calculator and the facade: identifiers, the closed role set and month periods.
package employee
