package rules

import (
	"fmt"

	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/refdata"
)

// BuildRegistry assembles the built-in evaluators into a registry, in
// their fixed registration order, and stamps it with the parameter
// digest. The order is part of decision determinism: it is the stable
// tie-break when verdicts share a severity.
func BuildRegistry(params Params, src refdata.Source) (*evaluator.Registry, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	reg := evaluator.NewRegistry()

	registrations := []struct {
		eval evaluator.Evaluator
		pred evaluator.Predicate
	}{
		{NewLicenseEvaluator(src, params.License), nil},
		{NewDEAEvaluator(src), ControlledOnly},
		{NewStateEvaluator(src), nil},
		{NewRefillEvaluator(params.Refill), RefillRelevant},
		{NewDosageEvaluator(params.Dosage), nil},
		{NewBUDEvaluator(params.BUD), Dated},
		{NewCompoundingEvaluator(params.Compounding), Compounded},
		{NewDocumentationEvaluator(params.Documentation), nil},
	}
	for _, r := range registrations {
		if err := reg.Register(r.eval, r.pred); err != nil {
			return nil, fmt.Errorf("rules: build registry: %w", err)
		}
	}

	digest, err := params.Digest()
	if err != nil {
		return nil, err
	}
	reg.SetConfigDigest(digest)
	return reg, nil
}
