package rules

import (
	"context"
	"testing"
	"time"

	"rxsentinel/arbiter/pkg/verdict"
)

func TestBUDBoundary(t *testing.T) {
	e := NewBUDEvaluator(Defaults().BUD)

	tests := []struct {
		name          string
		remainingDays int
		wantOutcome   verdict.Outcome
		wantCode      string
	}{
		{"eleven days", 11, verdict.Pass, CodeBUDSufficient},
		{"exactly ten days", 10, verdict.Pass, CodeBUDSufficient},
		{"nine days", 9, verdict.Block, CodeBUDInsufficient},
		{"expired already", -1, verdict.Block, CodeBUDInsufficient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCase()
			c.UseDate = fillDate
			c.Drug.ExpirationDate = fillDate.AddDate(0, 0, tt.remainingDays)

			v, err := e.Evaluate(context.Background(), c)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			wantVerdict(t, v, tt.wantOutcome, tt.wantCode)
		})
	}
}

func TestBUDDefaultsToFillDate(t *testing.T) {
	e := NewBUDEvaluator(Defaults().BUD)

	c := testCase()
	c.UseDate = fillDate.AddDate(0, 0, 5)
	c.Drug.ExpirationDate = fillDate.AddDate(0, 0, 12)

	// 12 days from fill, but only 7 from the stated use date.
	v, err := e.Evaluate(context.Background(), c)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	wantVerdict(t, v, verdict.Block, CodeBUDInsufficient)

	// Without a use date the fill date anchors the margin.
	c.UseDate = time.Time{}
	v, err = e.Evaluate(context.Background(), c)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	wantVerdict(t, v, verdict.Pass, CodeBUDSufficient)
}

func TestDatedPredicate(t *testing.T) {
	if Dated(testCase()) {
		t.Error("Dated should be false without an expiration date")
	}

	c := testCase()
	c.Drug.ExpirationDate = fillDate.AddDate(0, 1, 0)
	if !Dated(c) {
		t.Error("Dated should be true with an expiration date")
	}
}
