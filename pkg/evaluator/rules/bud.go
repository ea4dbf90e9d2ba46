package rules

import (
	"context"
	"fmt"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/verdict"
)

// BUDEvaluator checks that the preparation's beyond-use date leaves the
// required margin after the intended use date.
//
// The margin is counted in whole UTC calendar days and the boundary is
// inclusive: with a 10-day minimum, a preparation expiring exactly 10 days
// after use passes and one expiring 9 days after blocks.
type BUDEvaluator struct {
	params BUDParams
}

// NewBUDEvaluator creates a beyond-use-date evaluator.
func NewBUDEvaluator(params BUDParams) *BUDEvaluator {
	return &BUDEvaluator{params: params}
}

func (e *BUDEvaluator) ID() string { return IDBUD }

// Dated is the BUD evaluator's applicability predicate: the drug carries
// an expiration date.
func Dated(c *dispensing.Case) bool {
	return !c.Drug.ExpirationDate.IsZero()
}

func (e *BUDEvaluator) Evaluate(_ context.Context, c *dispensing.Case) (verdict.Verdict, error) {
	use := c.UseDate
	if use.IsZero() {
		// No stated use date: assume administration starts at fill.
		use = c.FillDate
	}

	remaining := daysBetween(use, c.Drug.ExpirationDate)
	if remaining < e.params.MinRemainingDays {
		return block(IDBUD, CodeBUDInsufficient,
			fmt.Sprintf("%s expires %s, %d days after the use date %s (minimum %d)",
				c.Drug.Name,
				c.Drug.ExpirationDate.UTC().Format("2006-01-02"),
				remaining,
				use.UTC().Format("2006-01-02"),
				e.params.MinRemainingDays),
			severityBUDInsufficient), nil
	}

	return pass(IDBUD, CodeBUDSufficient,
		fmt.Sprintf("%s retains %d days beyond the use date (minimum %d)",
			c.Drug.Name, remaining, e.params.MinRemainingDays)), nil
}
