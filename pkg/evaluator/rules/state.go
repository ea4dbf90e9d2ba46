package rules

import (
	"context"
	"errors"
	"fmt"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/refdata"
	"rxsentinel/arbiter/pkg/verdict"
)

// Documentation artifact names that satisfy a letter-of-verification
// requirement. "lov" is the canonical name adapters send; the long form
// is accepted for older upstream exports.
const (
	lovArtifact       = "lov"
	lovArtifactLegacy = "letter-of-verification"
)

// StateEvaluator enforces destination-state shipping restrictions: LOV
// requirements, compounded-injectable bans, and clinic-only shipment.
//
// Restrictions come from the reference-data source keyed by the shipping
// destination. An unknown state simply has no restrictions; the zero
// StateRules value already says so, so NotFound is treated as clear.
type StateEvaluator struct {
	src refdata.Source
}

// NewStateEvaluator creates a state-compliance evaluator backed by src.
func NewStateEvaluator(src refdata.Source) *StateEvaluator {
	return &StateEvaluator{src: src}
}

func (e *StateEvaluator) ID() string { return IDState }

func (e *StateEvaluator) Evaluate(ctx context.Context, c *dispensing.Case) (verdict.Verdict, error) {
	dest := c.Shipping.DestinationState

	rules, err := e.src.StateRules(ctx, dest)
	if err != nil {
		var nf *refdata.NotFoundError
		if errors.As(err, &nf) {
			rules = &refdata.StateRules{State: dest}
		} else {
			return verdict.Verdict{}, err
		}
	}

	if rules.InjectableCompoundBan && c.Drug.Compound && c.Drug.Injectable {
		return block(IDState, CodeStateInjectableBan,
			fmt.Sprintf("%s prohibits shipment of compounded injectables", dest),
			severityStateInjectableBan), nil
	}

	if rules.RequiresLOV && c.Drug.Compound &&
		!c.HasArtifact(lovArtifact) && !c.HasArtifact(lovArtifactLegacy) {
		return block(IDState, CodeStateLOVMissing,
			fmt.Sprintf("%s requires a letter of verification on file before compounded shipment", dest),
			severityStateLOVMissing), nil
	}

	if rules.ClinicOnlyShipping && !c.Shipping.ClinicDestination {
		return block(IDState, CodeStateClinicOnly,
			fmt.Sprintf("%s only permits shipment to licensed clinic destinations", dest),
			severityStateClinicOnly), nil
	}

	return pass(IDState, CodeStateClear,
		fmt.Sprintf("no shipping restrictions apply for %s", dest)), nil
}
