package refdata

import (
	"context"
	"sync"
)

// MemorySource is an in-memory reference-data source. It is safe for
// concurrent use and returns copies of stored records. New sources come
// preloaded with DefaultStateRules; licenses and DEA registrations are
// seeded by the caller.
type MemorySource struct {
	mu       sync.RWMutex
	licenses map[string]License
	deas     map[string]DEARegistration
	rules    map[string]StateRules
}

// NewMemorySource creates a memory source preloaded with the default
// state rules.
func NewMemorySource() *MemorySource {
	s := &MemorySource{
		licenses: make(map[string]License),
		deas:     make(map[string]DEARegistration),
		rules:    make(map[string]StateRules),
	}
	for _, r := range DefaultStateRules() {
		s.rules[r.State] = r
	}
	return s
}

func licenseKey(state, number string) string {
	return state + "/" + number
}

// SeedLicense stores or replaces a license record.
func (s *MemorySource) SeedLicense(l License) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.licenses[licenseKey(l.State, l.Number)] = l
}

// SeedDEA stores or replaces a DEA registration record.
func (s *MemorySource) SeedDEA(r DEARegistration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deas[r.Number] = r
}

// SeedStateRules stores or replaces a state's shipping rules.
func (s *MemorySource) SeedStateRules(r StateRules) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[r.State] = r
}

// PrescriberLicense implements Source.
func (s *MemorySource) PrescriberLicense(ctx context.Context, state, number string) (*License, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewLookupError("memory", "prescriber_license", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.licenses[licenseKey(state, number)]
	if !ok {
		return nil, NewNotFoundError("license", licenseKey(state, number))
	}
	out := l
	return &out, nil
}

// DEARegistration implements Source.
func (s *MemorySource) DEARegistration(ctx context.Context, number string) (*DEARegistration, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewLookupError("memory", "dea_registration", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.deas[number]
	if !ok {
		return nil, NewNotFoundError("dea", number)
	}
	out := r
	out.Schedules = append([]string(nil), r.Schedules...)
	return &out, nil
}

// StateRules implements Source. Unknown states return the zero rule set:
// restrictions are always explicit.
func (s *MemorySource) StateRules(ctx context.Context, state string) (*StateRules, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewLookupError("memory", "state_rules", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[state]
	if !ok {
		return &StateRules{State: state}, nil
	}
	out := r
	return &out, nil
}

// Close implements Source.
func (s *MemorySource) Close() error {
	return nil
}

// DefaultStateRules returns the built-in destination-state restrictions:
// letter-of-verification states, injectable-compound ban states, and
// clinic-only shipping states.
func DefaultStateRules() []StateRules {
	var rules []StateRules
	for _, st := range []string{"CA", "MN", "ID"} {
		rules = append(rules, StateRules{State: st, RequiresLOV: true})
	}
	for _, st := range []string{"MA", "CO", "WA", "OR", "VT"} {
		rules = append(rules, StateRules{State: st, InjectableCompoundBan: true})
	}
	for _, st := range []string{"AL", "AR", "OK"} {
		rules = append(rules, StateRules{State: st, ClinicOnlyShipping: true})
	}
	return rules
}
