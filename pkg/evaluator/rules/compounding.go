package rules

import (
	"context"
	"fmt"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/verdict"
)

// CompoundingEvaluator enforces facility-class limits on compounded
// preparations. Traditional 503A pharmacies carry an active-component
// ceiling; 503B outsourcing facilities compound from bulk and do not.
type CompoundingEvaluator struct {
	params CompoundingParams
}

// NewCompoundingEvaluator creates a compounding evaluator.
func NewCompoundingEvaluator(params CompoundingParams) *CompoundingEvaluator {
	return &CompoundingEvaluator{params: params}
}

func (e *CompoundingEvaluator) ID() string { return IDCompounding }

// Compounded is the compounding evaluator's applicability predicate.
func Compounded(c *dispensing.Case) bool {
	return c.Drug.Compound
}

func (e *CompoundingEvaluator) Evaluate(_ context.Context, c *dispensing.Case) (verdict.Verdict, error) {
	switch c.Facility.Type {
	case dispensing.Facility503B:
		return pass(IDCompounding, CodeCompoundOK,
			fmt.Sprintf("503B outsourcing facility; no component limit applies to %s", c.Drug.Name)), nil
	case dispensing.Facility503A:
		if c.Drug.ComponentCount > e.params.MaxComponents503A {
			return block(IDCompounding, CodeCompoundComponentLimit,
				fmt.Sprintf("%s has %d active components; 503A facilities are limited to %d",
					c.Drug.Name, c.Drug.ComponentCount, e.params.MaxComponents503A),
				severityCompoundComponentLimit), nil
		}
		return pass(IDCompounding, CodeCompoundOK,
			fmt.Sprintf("%s has %d active components, within the 503A limit of %d",
				c.Drug.Name, c.Drug.ComponentCount, e.params.MaxComponents503A)), nil
	}

	return block(IDCompounding, CodeCompoundFacilityUnknown,
		fmt.Sprintf("compounded preparation %s has no recognized facility classification", c.Drug.Name),
		severityCompoundFacilityUnknown), nil
}
