package salary

// Policy holds the pay rates applied per role. Rates are fractions of base pay
// except the subordinate shares, which are fractions of subordinate salaries.
type Policy struct {
	WorkerYearlyRate float64 `json:"worker_yearly_rate" yaml:"worker_yearly_rate"`
	WorkerBonusCap   float64 `json:"worker_bonus_cap" yaml:"worker_bonus_cap"`

	ForemanYearlyRate       float64 `json:"foreman_yearly_rate" yaml:"foreman_yearly_rate"`
	ForemanBonusCap         float64 `json:"foreman_bonus_cap" yaml:"foreman_bonus_cap"`
	ForemanSubordinateShare float64 `json:"foreman_subordinate_share" yaml:"foreman_subordinate_share"`

	ManagerSubordinateShare float64 `json:"manager_subordinate_share" yaml:"manager_subordinate_share"`

	// MaxDepth bounds the recursion of a single computation.
	MaxDepth int `json:"max_depth" yaml:"max_depth"`
}

// DefaultMaxDepth is used when a policy leaves MaxDepth unset.
const DefaultMaxDepth = 256

// DefaultPolicy returns the standard rates.
func DefaultPolicy() Policy {
	return Policy{
		WorkerYearlyRate:        0.10,
		WorkerBonusCap:          1.00,
		ForemanYearlyRate:       0.05,
		ForemanBonusCap:         0.40,
		ForemanSubordinateShare: 0.07,
		ManagerSubordinateShare: 0.03,
		MaxDepth:                DefaultMaxDepth,
	}
}
