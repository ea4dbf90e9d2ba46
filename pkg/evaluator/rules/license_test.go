package rules

import (
	"context"
	"errors"
	"testing"

	"rxsentinel/arbiter/pkg/evaluator"
	"rxsentinel/arbiter/pkg/refdata"
	"rxsentinel/arbiter/pkg/verdict"
)

// erroringSource fails every lookup with a transient backend error.
type erroringSource struct{}

func (erroringSource) PrescriberLicense(context.Context, string, string) (*refdata.License, error) {
	return nil, &refdata.LookupError{Backend: "test", Operation: "license", Cause: errors.New("unavailable")}
}

func (erroringSource) DEARegistration(context.Context, string) (*refdata.DEARegistration, error) {
	return nil, &refdata.LookupError{Backend: "test", Operation: "dea", Cause: errors.New("unavailable")}
}

func (erroringSource) StateRules(context.Context, string) (*refdata.StateRules, error) {
	return nil, &refdata.LookupError{Backend: "test", Operation: "state_rules", Cause: errors.New("unavailable")}
}

func (erroringSource) Close() error { return nil }

func TestLicenseActive(t *testing.T) {
	e := NewLicenseEvaluator(testSource(), Defaults().License)
	v, err := e.Evaluate(context.Background(), testCase())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	wantVerdict(t, v, verdict.Pass, CodeLicenseVerified)
}

func TestLicenseNotFound(t *testing.T) {
	e := NewLicenseEvaluator(testSource(), Defaults().License)
	c := testCase()
	c.Prescriber.LicenseNumber = "Z999999"

	v, err := e.Evaluate(context.Background(), c)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	wantVerdict(t, v, verdict.Block, CodeLicenseNotFound)
}

func TestLicenseStanding(t *testing.T) {
	tests := []struct {
		status   refdata.Status
		wantCode string
	}{
		{refdata.StatusExpired, CodeLicenseExpired},
		{refdata.StatusSuspended, CodeLicenseSuspended},
		{refdata.StatusRevoked, CodeLicenseRevoked},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			src := refdata.NewMemorySource()
			src.SeedLicense(refdata.License{
				Number:     "A123456",
				State:      "TX",
				Status:     tt.status,
				ExpiresAt:  licExpires,
				VerifiedAt: licVerified,
			})
			e := NewLicenseEvaluator(src, Defaults().License)

			v, err := e.Evaluate(context.Background(), testCase())
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			wantVerdict(t, v, verdict.Block, tt.wantCode)
		})
	}
}

func TestLicenseExpiredBeforeFill(t *testing.T) {
	src := refdata.NewMemorySource()
	src.SeedLicense(refdata.License{
		Number:     "A123456",
		State:      "TX",
		Status:     refdata.StatusActive,
		ExpiresAt:  fillDate.AddDate(0, 0, -1),
		VerifiedAt: licVerified,
	})
	e := NewLicenseEvaluator(src, Defaults().License)

	v, err := e.Evaluate(context.Background(), testCase())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	wantVerdict(t, v, verdict.Block, CodeLicenseExpired)
}

func TestLicenseStaleVerification(t *testing.T) {
	src := refdata.NewMemorySource()
	src.SeedLicense(refdata.License{
		Number:     "A123456",
		State:      "TX",
		Status:     refdata.StatusActive,
		ExpiresAt:  licExpires,
		VerifiedAt: fillDate.AddDate(0, 0, -120),
	})
	e := NewLicenseEvaluator(src, Defaults().License)

	v, err := e.Evaluate(context.Background(), testCase())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	wantVerdict(t, v, verdict.Warn, CodeLicenseStale)
}

func TestLicenseBackendErrorPropagates(t *testing.T) {
	e := NewLicenseEvaluator(erroringSource{}, Defaults().License)

	_, err := e.Evaluate(context.Background(), testCase())
	if err == nil {
		t.Fatal("Evaluate() expected error")
	}
	if !evaluator.IsTransient(err) {
		t.Errorf("backend error should be transient, got %v", err)
	}
}

func TestLicenseTiming(t *testing.T) {
	// Verification exactly at the age limit does not warn.
	src := refdata.NewMemorySource()
	src.SeedLicense(refdata.License{
		Number:     "A123456",
		State:      "TX",
		Status:     refdata.StatusActive,
		ExpiresAt:  licExpires,
		VerifiedAt: fillDate.AddDate(0, 0, -90),
	})
	e := NewLicenseEvaluator(src, Defaults().License)

	v, err := e.Evaluate(context.Background(), testCase())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	wantVerdict(t, v, verdict.Pass, CodeLicenseVerified)
}
