package evaluator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"rxsentinel/arbiter/pkg/dispensing"
)

// registration pairs an evaluator with its applicability predicate.
type registration struct {
	eval Evaluator
	pred Predicate
}

// Registry holds the active evaluator set in registration order.
//
// A Registry is built at startup (or on a configuration change) and is
// read-only once installed in a Holder. Register is not safe to call after
// installation; build a new Registry and Swap it instead.
type Registry struct {
	mu           sync.RWMutex
	entries      []registration
	index        map[string]int
	configDigest string
	version      string
	builtAt      time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index:   make(map[string]int),
		builtAt: time.Now().UTC(),
	}
}

// Register adds an evaluator with its applicability predicate. A nil
// predicate means the evaluator applies to every case. Registration order
// is significant: it is the merge's stable tie-break.
func (r *Registry) Register(eval Evaluator, pred Predicate) error {
	if eval == nil {
		return fmt.Errorf("registry: evaluator cannot be nil")
	}
	id := eval.ID()
	if id == "" {
		return fmt.Errorf("registry: evaluator ID cannot be empty")
	}
	if pred == nil {
		pred = Always
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[id]; exists {
		return fmt.Errorf("registry: evaluator %q already registered", id)
	}
	r.index[id] = len(r.entries)
	r.entries = append(r.entries, registration{eval: eval, pred: pred})
	r.updateVersion()
	return nil
}

// SetConfigDigest folds the digest of the parameter set the registry was
// built from into its version, so parameter changes are visible as version
// changes even when the evaluator list is unchanged.
func (r *Registry) SetConfigDigest(digest string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configDigest = digest
	r.updateVersion()
}

// updateVersion recomputes the registry version hash. Caller holds r.mu.
func (r *Registry) updateVersion() {
	h := sha256.New()
	for _, reg := range r.entries {
		h.Write([]byte(reg.eval.ID()))
		h.Write([]byte{0})
	}
	h.Write([]byte(r.configDigest))
	r.version = hex.EncodeToString(h.Sum(nil))[:16]
}

// Applicable returns the evaluators whose predicates accept the case, in
// registration order.
func (r *Registry) Applicable(c *dispensing.Case) []Evaluator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Evaluator
	for _, reg := range r.entries {
		if reg.pred(c) {
			out = append(out, reg.eval)
		}
	}
	return out
}

// IDs returns every registered evaluator ID in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.entries))
	for i, reg := range r.entries {
		out[i] = reg.eval.ID()
	}
	return out
}

// Len returns the number of registered evaluators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Version returns the registry's content version. Two registries with the
// same evaluators in the same order built from the same parameter digest
// share a version.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// BuiltAt returns when the registry was constructed.
func (r *Registry) BuiltAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.builtAt
}

// Holder carries the active registry and supports atomic replacement
// between orchestration runs.
//
// Runs snapshot the registry once at start via Current; Swap installs a
// new registry for subsequent runs without disturbing in-flight ones, so
// no run observes a mixed evaluator set.
type Holder struct {
	mu      sync.RWMutex
	current *Registry
}

// NewHolder creates a holder with an initial registry.
func NewHolder(initial *Registry) *Holder {
	return &Holder{current: initial}
}

// Current returns the active registry.
func (h *Holder) Current() *Registry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Swap atomically installs next as the active registry and returns the
// registry it replaced.
func (h *Holder) Swap(next *Registry) *Registry {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.current
	h.current = next
	return old
}
