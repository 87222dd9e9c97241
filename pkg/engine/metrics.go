package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// OrgchartMutationsTotal counts roster and hierarchy mutations by outcome.
	OrgchartMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgchart_mutations_total",
			Help: "Total number of roster and hierarchy mutations",
		},
		[]string{"op", "result"},
	)

	// OrgchartSalaryTotal counts salary computations by outcome: ok, policy_failure or inconsistent.
	OrgchartSalaryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orgchart_salary_computations_total",
			Help: "Total number of salary computations",
		},
		[]string{"result"},
	)

	// OrgchartSalarySeconds tracks how long the lock is held for a computation.
	OrgchartSalarySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orgchart_salary_duration_seconds",
			Help:    "Time spent computing a salary or payroll run",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		},
	)

	// OrgchartEmployees tracks the roster size.
	OrgchartEmployees = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orgchart_employees",
			Help: "Number of registered employees",
		},
	)

	// OrgchartRelations tracks the number of chief -> subordinate edges.
	OrgchartRelations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orgchart_relations",
			Help: "Number of recorded chief/subordinate relations",
		},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(OrgchartMutationsTotal)
	prometheus.MustRegister(OrgchartSalaryTotal)
	prometheus.MustRegister(OrgchartSalarySeconds)
	prometheus.MustRegister(OrgchartEmployees)
	prometheus.MustRegister(OrgchartRelations)
}

const (
	resultOK           = "ok"
	resultRejected     = "rejected"
	resultPolicy       = "policy_failure"
	resultInconsistent = "inconsistent"
)
