package health

import (
	"context"
	"errors"

	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/ledger"
	"rxsentinel/arbiter/pkg/refdata"
)

// probeState is deliberately not a real jurisdiction. A healthy backend
// answers it (with an empty rule set or a not-found); a broken one errors.
const probeState = "ZZ"

// LedgerCheck probes the audit ledger by reading the chain head. A
// readable head means the store is reachable; an empty ledger is healthy.
func LedgerCheck(l *ledger.Ledger) CheckFunc {
	return func(ctx context.Context) error {
		if l == nil {
			return errors.New("ledger not configured")
		}
		if _, err := l.Head(ctx); err != nil {
			return err
		}
		return nil
	}
}

// RefdataCheck probes the reference-data source with a sentinel state
// lookup. A definitive not-found still proves the backend is reachable,
// so only transport and storage failures degrade readiness.
func RefdataCheck(src refdata.Source) CheckFunc {
	return func(ctx context.Context) error {
		if src == nil {
			return errors.New("reference data source not configured")
		}
		_, err := src.StateRules(ctx, probeState)
		var nf *refdata.NotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return err
	}
}

// RegistryCheck verifies that an evaluator registry is installed and
// holds at least one evaluator. The probe reads through the holder so a
// parameter reload that swaps the registry is reflected immediately.
func RegistryCheck(h *evaluator.Holder) CheckFunc {
	return func(ctx context.Context) error {
		if h == nil {
			return errors.New("evaluator registry not configured")
		}
		reg := h.Current()
		if reg == nil {
			return errors.New("no evaluator registry installed")
		}
		if reg.Len() == 0 {
			return errors.New("no evaluators registered")
		}
		return nil
	}
}
