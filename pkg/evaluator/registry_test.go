package evaluator

import (
	"context"
	"testing"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/verdict"
)

type stubEvaluator struct {
	id string
}

func (s stubEvaluator) ID() string { return s.id }

func (s stubEvaluator) Evaluate(_ context.Context, _ *dispensing.Case) (verdict.Verdict, error) {
	return verdict.Verdict{Evaluator: s.id, Outcome: verdict.Pass}, nil
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(stubEvaluator{id: "license"}, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(stubEvaluator{id: "dea"}, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if got := r.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != "license" || ids[1] != "dea" {
		t.Errorf("IDs() = %v, want [license dea]", ids)
	}
}

func TestRegistryRegisterRejects(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(stubEvaluator{id: "license"}, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := r.Register(nil, nil); err == nil {
		t.Error("Register(nil) expected error")
	}
	if err := r.Register(stubEvaluator{id: ""}, nil); err == nil {
		t.Error("Register with empty ID expected error")
	}
	if err := r.Register(stubEvaluator{id: "license"}, nil); err == nil {
		t.Error("Register duplicate ID expected error")
	}
	if got := r.Len(); got != 1 {
		t.Errorf("Len() after rejected registrations = %d, want 1", got)
	}
}

func TestRegistryApplicable(t *testing.T) {
	r := NewRegistry()
	controlledOnly := func(c *dispensing.Case) bool { return c.Drug.Schedule.Controlled() }

	if err := r.Register(stubEvaluator{id: "license"}, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(stubEvaluator{id: "dea"}, controlledOnly); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	plain := &dispensing.Case{}
	scheduled := &dispensing.Case{}
	scheduled.Drug.Schedule = dispensing.ScheduleII

	got := r.Applicable(plain)
	if len(got) != 1 || got[0].ID() != "license" {
		t.Errorf("Applicable(plain) = %v evaluators, want [license]", ids(got))
	}

	got = r.Applicable(scheduled)
	if len(got) != 2 || got[0].ID() != "license" || got[1].ID() != "dea" {
		t.Errorf("Applicable(scheduled) = %v, want [license dea]", ids(got))
	}
}

func ids(evals []Evaluator) []string {
	out := make([]string, len(evals))
	for i, e := range evals {
		out[i] = e.ID()
	}
	return out
}

func TestRegistryVersion(t *testing.T) {
	build := func(digest string, evalIDs ...string) *Registry {
		r := NewRegistry()
		for _, id := range evalIDs {
			if err := r.Register(stubEvaluator{id: id}, nil); err != nil {
				t.Fatalf("Register(%q) error = %v", id, err)
			}
		}
		r.SetConfigDigest(digest)
		return r
	}

	a := build("d1", "license", "dea")
	b := build("d1", "license", "dea")
	if a.Version() != b.Version() {
		t.Errorf("identical registries should share a version: %q vs %q", a.Version(), b.Version())
	}

	reordered := build("d1", "dea", "license")
	if a.Version() == reordered.Version() {
		t.Error("registration order should change the version")
	}

	reparam := build("d2", "license", "dea")
	if a.Version() == reparam.Version() {
		t.Error("config digest should change the version")
	}

	if a.Version() == "" {
		t.Error("Version() should not be empty after registration")
	}
}

func TestHolderSwap(t *testing.T) {
	first := NewRegistry()
	if err := first.Register(stubEvaluator{id: "license"}, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	h := NewHolder(first)

	if h.Current() != first {
		t.Fatal("Current() should return the initial registry")
	}

	second := NewRegistry()
	if err := second.Register(stubEvaluator{id: "license"}, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := second.Register(stubEvaluator{id: "dea"}, nil); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	old := h.Swap(second)
	if old != first {
		t.Error("Swap() should return the replaced registry")
	}
	if h.Current() != second {
		t.Error("Current() should return the swapped-in registry")
	}

	// A snapshot taken before the swap still sees the old set.
	if old.Len() != 1 {
		t.Errorf("pre-swap snapshot Len() = %d, want 1", old.Len())
	}
}
