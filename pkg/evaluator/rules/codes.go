package rules

import "rxsentinel/arbiter/pkg/verdict"

// Evaluator IDs, in registration order.
const (
	IDLicense       = "license"
	IDDEA           = "dea"
	IDState         = "state-compliance"
	IDRefill        = "refill-timing"
	IDDosage        = "dosage"
	IDBUD           = "bud"
	IDCompounding   = "compounding"
	IDDocumentation = "documentation"
)

// Reason codes emitted by the built-in evaluators. Codes are stable
// identifiers for downstream routing; explanations are for humans.
const (
	CodeLicenseVerified  = "LICENSE_VERIFIED"
	CodeLicenseNotFound  = "LICENSE_NOT_FOUND"
	CodeLicenseExpired   = "LICENSE_EXPIRED"
	CodeLicenseSuspended = "LICENSE_SUSPENDED"
	CodeLicenseRevoked   = "LICENSE_REVOKED"
	CodeLicenseStale     = "LICENSE_VERIFICATION_STALE"

	CodeDEAVerified     = "DEA_VERIFIED"
	CodeDEAMalformed    = "DEA_MALFORMED"
	CodeDEAChecksum     = "DEA_CHECKSUM_MISMATCH"
	CodeDEASurname      = "DEA_SURNAME_MISMATCH"
	CodeDEANotFound     = "DEA_NOT_FOUND"
	CodeDEAExpired      = "DEA_EXPIRED"
	CodeDEAInactive     = "DEA_INACTIVE"
	CodeDEAUnauthorized = "DEA_SCHEDULE_UNAUTHORIZED"

	CodeStateClear         = "STATE_CLEAR"
	CodeStateLOVMissing    = "STATE_LOV_MISSING"
	CodeStateInjectableBan = "STATE_INJECTABLE_BAN"
	CodeStateClinicOnly    = "STATE_CLINIC_ONLY"

	CodeRefillOK         = "REFILL_WITHIN_LIMITS"
	CodeRefillScheduleII = "REFILL_SCHEDULE_II"
	CodeRefillLimit      = "REFILL_LIMIT_EXCEEDED"
	CodeRefillTooSoon    = "REFILL_TOO_SOON"

	CodeDoseOK       = "DOSE_WITHIN_LIMITS"
	CodeDoseAboveMax = "DOSE_ABOVE_MAX"
	CodeDoseCritical = "DOSE_CRITICAL"

	CodeBUDSufficient   = "BUD_SUFFICIENT"
	CodeBUDInsufficient = "BUD_INSUFFICIENT"

	CodeCompoundOK              = "COMPOUND_WITHIN_LIMITS"
	CodeCompoundComponentLimit  = "COMPOUND_COMPONENT_LIMIT"
	CodeCompoundFacilityUnknown = "COMPOUND_FACILITY_UNKNOWN"

	CodeDocComplete = "DOC_COMPLETE"
	CodeDocMissing  = "DOC_MISSING"
)

// Fixed severities per reason code. Thresholds are configurable through
// Params; how bad a given violation is, is not.
const (
	severityLicenseNotFound  = 90
	severityLicenseExpired   = 88
	severityLicenseSuspended = 92
	severityLicenseRevoked   = 95
	severityLicenseStale     = 40

	severityDEAMalformed    = 90
	severityDEAChecksum     = 90
	severityDEASurname      = 85
	severityDEANotFound     = 90
	severityDEAExpired      = 85
	severityDEAInactive     = 92
	severityDEAUnauthorized = 88

	severityStateLOVMissing    = 85
	severityStateInjectableBan = 90
	severityStateClinicOnly    = 80

	severityRefillScheduleII = 95
	severityRefillLimit      = 82
	severityRefillTooSoon    = 80

	severityDoseAboveMax = 55
	severityDoseCritical = 90

	severityBUDInsufficient = 80

	severityCompoundComponentLimit  = 80
	severityCompoundFacilityUnknown = 75

	severityDocMissing = 35
)

func pass(evaluatorID, code, explanation string) verdict.Verdict {
	return verdict.Verdict{
		Evaluator:   evaluatorID,
		Outcome:     verdict.Pass,
		ReasonCode:  code,
		Explanation: explanation,
		Severity:    verdict.MinSeverity,
	}
}

func warn(evaluatorID, code, explanation string, severity int) verdict.Verdict {
	return verdict.Verdict{
		Evaluator:   evaluatorID,
		Outcome:     verdict.Warn,
		ReasonCode:  code,
		Explanation: explanation,
		Severity:    severity,
	}
}

func block(evaluatorID, code, explanation string, severity int) verdict.Verdict {
	return verdict.Verdict{
		Evaluator:   evaluatorID,
		Outcome:     verdict.Block,
		ReasonCode:  code,
		Explanation: explanation,
		Severity:    severity,
	}
}
