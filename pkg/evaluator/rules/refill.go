package rules

import (
	"context"
	"fmt"
	"strings"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/verdict"
)

// RefillEvaluator enforces refill counts and spacing.
//
// Fill history is a single timeline: fills of the same drug count against
// the limits no matter which state they happened in, so a patient cannot
// reset the clock by crossing a state line.
type RefillEvaluator struct {
	params RefillParams
}

// NewRefillEvaluator creates a refill-timing evaluator.
func NewRefillEvaluator(params RefillParams) *RefillEvaluator {
	return &RefillEvaluator{params: params}
}

func (e *RefillEvaluator) ID() string { return IDRefill }

// RefillRelevant is the refill evaluator's applicability predicate: the
// case is a refill attempt or carries prior fill history.
func RefillRelevant(c *dispensing.Case) bool {
	return c.RefillNumber > 0 || len(c.PriorFills) > 0
}

func (e *RefillEvaluator) Evaluate(_ context.Context, c *dispensing.Case) (verdict.Verdict, error) {
	prior := sameDrugFills(c)

	// The attempt's refill ordinal: what the order says, or what the
	// history implies, whichever is higher.
	effective := c.RefillNumber
	if len(prior) > effective {
		effective = len(prior)
	}

	if c.Drug.Schedule == dispensing.ScheduleII && effective >= 1 {
		return block(IDRefill, CodeRefillScheduleII,
			fmt.Sprintf("%s is Schedule II; refills are not permitted", c.Drug.Name),
			severityRefillScheduleII), nil
	}

	if c.Drug.Schedule.Controlled() && effective > e.params.MaxRefills {
		return block(IDRefill, CodeRefillLimit,
			fmt.Sprintf("refill %d of %s exceeds the Schedule %s limit of %d",
				effective, c.Drug.Name, c.Drug.Schedule, e.params.MaxRefills),
			severityRefillLimit), nil
	}

	if last, ok := latestFill(prior); ok {
		elapsed := daysBetween(last.FillDate, c.FillDate)
		if elapsed < e.params.MinIntervalDays {
			return block(IDRefill, CodeRefillTooSoon,
				fmt.Sprintf("%s was last filled in %s on %s, %d days before this fill (minimum %d)",
					c.Drug.Name, last.State,
					last.FillDate.UTC().Format("2006-01-02"),
					elapsed, e.params.MinIntervalDays),
				severityRefillTooSoon), nil
		}
	}

	return pass(IDRefill, CodeRefillOK,
		fmt.Sprintf("refill %d of %s is within limits", effective, c.Drug.Name)), nil
}

// sameDrugFills returns the prior fills of the case's drug, by name.
func sameDrugFills(c *dispensing.Case) []dispensing.Fill {
	var out []dispensing.Fill
	for _, f := range c.PriorFills {
		if strings.EqualFold(f.DrugName, c.Drug.Name) {
			out = append(out, f)
		}
	}
	return out
}

// latestFill returns the most recent fill by fill date. PriorFills are
// documented most-recent-first but the order is not trusted.
func latestFill(fills []dispensing.Fill) (dispensing.Fill, bool) {
	if len(fills) == 0 {
		return dispensing.Fill{}, false
	}
	last := fills[0]
	for _, f := range fills[1:] {
		if f.FillDate.After(last.FillDate) {
			last = f
		}
	}
	return last, true
}
