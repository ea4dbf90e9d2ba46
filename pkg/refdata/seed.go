package refdata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedDocument is the on-disk shape of a reference-data seed file.
// Seed files are meant for development and single-site deployments
// where a full sync pipeline into SQLite is overkill.
type SeedDocument struct {
	Licenses         []License         `yaml:"licenses" json:"licenses"`
	DEARegistrations []DEARegistration `yaml:"dea_registrations" json:"dea_registrations"`
	StateRules       []StateRules      `yaml:"state_rules" json:"state_rules"`
}

// LoadSeedFile parses a YAML seed file and returns a memory source
// populated with its records. Records missing their lookup key are
// rejected so a typo cannot silently drop a license from view.
func LoadSeedFile(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %q: %w", path, err)
	}

	var doc SeedDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %q: %w", path, err)
	}

	src := NewMemorySource()
	for i, l := range doc.Licenses {
		if l.State == "" || l.Number == "" {
			return nil, fmt.Errorf("seed file %q: licenses[%d] missing state or number", path, i)
		}
		src.SeedLicense(l)
	}
	for i, r := range doc.DEARegistrations {
		if r.Number == "" {
			return nil, fmt.Errorf("seed file %q: dea_registrations[%d] missing number", path, i)
		}
		src.SeedDEA(r)
	}
	for i, r := range doc.StateRules {
		if r.State == "" {
			return nil, fmt.Errorf("seed file %q: state_rules[%d] missing state", path, i)
		}
		src.SeedStateRules(r)
	}
	return src, nil
}
