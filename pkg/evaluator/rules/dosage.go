package rules

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/verdict"
)

// DosageEvaluator checks the cumulative daily dose against the drug's
// therapeutic class limit.
//
// Cumulative means the prescribed dose plus the dose of every prior fill
// of the same drug still active on the fill date, so overlapping supplies
// stack. Doses above the class limit warn; at or above the limit times the
// critical multiplier they block.
type DosageEvaluator struct {
	params DosageParams
}

// NewDosageEvaluator creates a dosage evaluator.
func NewDosageEvaluator(params DosageParams) *DosageEvaluator {
	return &DosageEvaluator{params: params}
}

func (e *DosageEvaluator) ID() string { return IDDosage }

func (e *DosageEvaluator) Evaluate(_ context.Context, c *dispensing.Case) (verdict.Verdict, error) {
	class := strings.ToLower(strings.TrimSpace(c.Drug.Class))
	limit, checked := e.params.ClassLimitsMG[class]
	if !checked || c.Drug.DailyDoseMG <= 0 {
		return pass(IDDosage, CodeDoseOK,
			fmt.Sprintf("no dose limit configured for class %q", c.Drug.Class)), nil
	}

	total := c.Drug.DailyDoseMG
	stacked := 0
	for _, f := range c.PriorFills {
		if !strings.EqualFold(f.DrugName, c.Drug.Name) {
			continue
		}
		if activeOn(f, c.FillDate) {
			total += f.DailyDoseMG
			stacked++
		}
	}

	critical := limit * e.params.CriticalMultiplier
	switch {
	case total >= critical:
		return block(IDDosage, CodeDoseCritical,
			fmt.Sprintf("cumulative daily dose %.4gmg of %s (%d active prior fills) is at or above the critical threshold %.4gmg",
				total, c.Drug.Name, stacked, critical),
			severityDoseCritical), nil
	case total > limit:
		return warn(IDDosage, CodeDoseAboveMax,
			fmt.Sprintf("cumulative daily dose %.4gmg of %s exceeds the class limit %.4gmg",
				total, c.Drug.Name, limit),
			severityDoseAboveMax), nil
	}

	return pass(IDDosage, CodeDoseOK,
		fmt.Sprintf("cumulative daily dose %.4gmg of %s is within the class limit %.4gmg",
			total, c.Drug.Name, limit)), nil
}

// activeOn reports whether a prior fill's supply still covers the given
// date: the fill started on or before it and its days supply has not run
// out.
func activeOn(f dispensing.Fill, date time.Time) bool {
	elapsed := daysBetween(f.FillDate, date)
	return elapsed >= 0 && elapsed < f.DaysSupply
}
