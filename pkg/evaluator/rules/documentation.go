package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/verdict"
)

// DocumentationEvaluator checks clinical documentation completeness.
//
// Missing documentation is an operational gap, not a dispensing hazard, so
// this evaluator warns and never blocks. Required artifacts derive from
// the preparation (compounds need a clinical difference statement and a
// worksheet), the schedule, and the therapeutic class.
type DocumentationEvaluator struct {
	params DocumentationParams
}

// NewDocumentationEvaluator creates a documentation evaluator.
func NewDocumentationEvaluator(params DocumentationParams) *DocumentationEvaluator {
	return &DocumentationEvaluator{params: params}
}

func (e *DocumentationEvaluator) ID() string { return IDDocumentation }

func (e *DocumentationEvaluator) Evaluate(_ context.Context, c *dispensing.Case) (verdict.Verdict, error) {
	required := make(map[string]struct{})
	if c.Drug.Compound {
		for _, a := range e.params.CompoundArtifacts {
			required[strings.ToLower(a)] = struct{}{}
		}
	}
	if c.Drug.Schedule.Controlled() {
		for _, a := range e.params.ControlledArtifacts {
			required[strings.ToLower(a)] = struct{}{}
		}
	}
	class := strings.ToLower(strings.TrimSpace(c.Drug.Class))
	for _, a := range e.params.RequiredByClass[class] {
		required[strings.ToLower(a)] = struct{}{}
	}

	var missing []string
	for a := range required {
		if !c.HasArtifact(a) {
			missing = append(missing, a)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return warn(IDDocumentation, CodeDocMissing,
			fmt.Sprintf("missing documentation: %s", strings.Join(missing, ", ")),
			severityDocMissing), nil
	}

	return pass(IDDocumentation, CodeDocComplete, "all required documentation is on file"), nil
}
