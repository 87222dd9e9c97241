package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rmax-ai/orgchart/pkg/employee"
)

// RosterConfig represents the top-level structure of a roster file.
type RosterConfig struct {
	Employees []RosterEntry `yaml:"employees"`
}

// RosterEntry describes one employee. Key names the entry within the file and
// Chief refers to another entry's key.
type RosterEntry struct {
	Key        string  `yaml:"key"`
	Role       string  `yaml:"role"`
	BaseSalary float64 `yaml:"base_salary"`
	Hired      string  `yaml:"hired"` // YYYY-MM or YYYY-MM-DD
	Chief      string  `yaml:"chief,omitempty"`
}

var ErrInvalidRoster = errors.New("invalid roster")

// LoadRosterConfig reads and parses a roster file.
func LoadRosterConfig(path string) (*RosterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRosterConfig(bytes.NewReader(data))
}

// ParseRosterConfig decodes a roster document. Unknown keys are rejected.
func ParseRosterConfig(r io.Reader) (*RosterConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var config RosterConfig
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoster, err)
	}
	return &config, nil
}

// Seed registers every entry of config and then links each entry to its chief.
// It returns the identifier assigned to each key. Seeding stops at the first
// error; entries added before it stay registered.
func (m *Manager) Seed(config *RosterConfig) (map[string]uuid.UUID, error) {
	ids := make(map[string]uuid.UUID, len(config.Employees))

	for i, entry := range config.Employees {
		if entry.Key == "" {
			return ids, fmt.Errorf("%w: entry %d has no key", ErrInvalidRoster, i)
		}
		if _, dup := ids[entry.Key]; dup {
			return ids, fmt.Errorf("%w: duplicate key %q", ErrInvalidRoster, entry.Key)
		}

		d, err := entry.descriptor()
		if err != nil {
			return ids, fmt.Errorf("%w: %s: %v", ErrInvalidRoster, entry.Key, err)
		}
		e, err := m.AddEmployee(d)
		if err != nil {
			return ids, fmt.Errorf("%s: %w", entry.Key, err)
		}
		ids[entry.Key] = e.ID
	}

	for _, entry := range config.Employees {
		if entry.Chief == "" {
			continue
		}
		chief, ok := ids[entry.Chief]
		if !ok {
			return ids, fmt.Errorf("%w: %s: unknown chief %q", ErrInvalidRoster, entry.Key, entry.Chief)
		}
		if err := m.AddSubordination(chief, ids[entry.Key]); err != nil {
			return ids, fmt.Errorf("%s reports to %s: %w", entry.Key, entry.Chief, err)
		}
	}

	m.logger.Info().Int("employees", len(ids)).Msg("roster_seeded")
	return ids, nil
}

func (e RosterEntry) descriptor() (employee.Descriptor, error) {
	role, err := employee.ParseRole(e.Role)
	if err != nil {
		return employee.Descriptor{}, err
	}
	hired, err := employee.ParsePeriod(e.Hired)
	if err != nil {
		return employee.Descriptor{}, err
	}
	return employee.Descriptor{Role: role, BaseSalary: e.BaseSalary, Hired: hired}, nil
}
