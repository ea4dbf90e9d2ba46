package rules

import (
	"context"
	"errors"
	"fmt"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/refdata"
	"rxsentinel/arbiter/pkg/verdict"
)

// LicenseEvaluator verifies the prescriber's state medical license against
// the reference-data source.
//
// A missing record is a definitive block, not a transient failure: the
// board either knows the license or it does not. Backend errors propagate
// so the orchestrator can classify and retry them.
type LicenseEvaluator struct {
	src    refdata.Source
	params LicenseParams
}

// NewLicenseEvaluator creates a license evaluator backed by src.
func NewLicenseEvaluator(src refdata.Source, params LicenseParams) *LicenseEvaluator {
	return &LicenseEvaluator{src: src, params: params}
}

func (e *LicenseEvaluator) ID() string { return IDLicense }

// Evaluate checks license existence, standing, expiry, and verification
// freshness. All date comparisons are anchored to the case's fill date.
func (e *LicenseEvaluator) Evaluate(ctx context.Context, c *dispensing.Case) (verdict.Verdict, error) {
	state := c.Prescriber.LicenseState
	number := c.Prescriber.LicenseNumber

	lic, err := e.src.PrescriberLicense(ctx, state, number)
	if err != nil {
		var nf *refdata.NotFoundError
		if errors.As(err, &nf) {
			return block(IDLicense, CodeLicenseNotFound,
				fmt.Sprintf("license %s/%s is not on file with the state board", state, number),
				severityLicenseNotFound), nil
		}
		return verdict.Verdict{}, err
	}

	switch lic.Status {
	case refdata.StatusRevoked:
		return block(IDLicense, CodeLicenseRevoked,
			fmt.Sprintf("license %s/%s has been revoked", state, number),
			severityLicenseRevoked), nil
	case refdata.StatusSuspended:
		return block(IDLicense, CodeLicenseSuspended,
			fmt.Sprintf("license %s/%s is suspended", state, number),
			severityLicenseSuspended), nil
	case refdata.StatusExpired:
		return block(IDLicense, CodeLicenseExpired,
			fmt.Sprintf("license %s/%s is expired per the state board", state, number),
			severityLicenseExpired), nil
	}

	// Board status can lag the printed expiration date.
	if !lic.ExpiresAt.IsZero() && lic.ExpiresAt.Before(c.FillDate) {
		return block(IDLicense, CodeLicenseExpired,
			fmt.Sprintf("license %s/%s expired %s, before the fill date %s",
				state, number,
				lic.ExpiresAt.UTC().Format("2006-01-02"),
				c.FillDate.UTC().Format("2006-01-02")),
			severityLicenseExpired), nil
	}

	if age := daysBetween(lic.VerifiedAt, c.FillDate); age > e.params.MaxVerificationAgeDays {
		return warn(IDLicense, CodeLicenseStale,
			fmt.Sprintf("license %s/%s was last verified %d days before the fill date (limit %d)",
				state, number, age, e.params.MaxVerificationAgeDays),
			severityLicenseStale), nil
	}

	return pass(IDLicense, CodeLicenseVerified,
		fmt.Sprintf("license %s/%s is active and current", state, number)), nil
}
