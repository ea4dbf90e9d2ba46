package refdata

import (
	"context"
	"time"
)

// Status is the registration status of a license or DEA record.
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusSuspended Status = "suspended"
	StatusRevoked   Status = "revoked"
)

// License is one prescriber license record as reported by a state board.
type License struct {
	// Number is the license number.
	Number string `json:"number" yaml:"number"`

	// State is the issuing state.
	State string `json:"state" yaml:"state"`

	// Status is the board-reported standing.
	Status Status `json:"status" yaml:"status"`

	// ExpiresAt is the license expiration date.
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`

	// VerifiedAt is when this record was last confirmed against the
	// board. Drives the staleness warning in the license evaluator.
	VerifiedAt time.Time `json:"verified_at" yaml:"verified_at"`
}

// DEARegistration is one DEA registration record.
type DEARegistration struct {
	// Number is the registration number (two letters, seven digits).
	Number string `json:"number" yaml:"number"`

	// Status is the registration standing.
	Status Status `json:"status" yaml:"status"`

	// RegistrantLastName is the registrant's surname. The second letter
	// of the number must match its initial.
	RegistrantLastName string `json:"registrant_last_name" yaml:"registrant_last_name"`

	// Schedules lists the controlled-substance schedules the registrant
	// is authorized to prescribe (e.g. "II", "III").
	Schedules []string `json:"schedules" yaml:"schedules"`

	// ExpiresAt is the registration expiration date.
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`

	// VerifiedAt is when this record was last confirmed.
	VerifiedAt time.Time `json:"verified_at" yaml:"verified_at"`
}

// Authorized reports whether the registration covers the given schedule.
func (r *DEARegistration) Authorized(schedule string) bool {
	for _, s := range r.Schedules {
		if s == schedule {
			return true
		}
	}
	return false
}

// StateRules captures the destination-state shipping restrictions the
// state-compliance evaluator enforces. The zero value means no
// restrictions; restrictions are always explicit.
type StateRules struct {
	// State is the two-letter state code.
	State string `json:"state" yaml:"state"`

	// RequiresLOV requires a letter-of-verification ("lov") artifact on
	// file before compounded shipment into the state.
	RequiresLOV bool `json:"requires_lov" yaml:"requires_lov"`

	// InjectableCompoundBan forbids shipping compounded injectables
	// into the state.
	InjectableCompoundBan bool `json:"injectable_compound_ban" yaml:"injectable_compound_ban"`

	// ClinicOnlyShipping restricts shipment to licensed clinic
	// destinations.
	ClinicOnlyShipping bool `json:"clinic_only_shipping" yaml:"clinic_only_shipping"`
}

// Source is the reference-data interface evaluators depend on.
//
// Implementations must honor ctx cancellation and deadlines on every
// method. A missing record returns *NotFoundError; an unreachable or
// failing backend returns *LookupError.
type Source interface {
	// PrescriberLicense returns the license record for a state and
	// license number.
	PrescriberLicense(ctx context.Context, state, number string) (*License, error)

	// DEARegistration returns the registration record for a DEA number.
	DEARegistration(ctx context.Context, number string) (*DEARegistration, error)

	// StateRules returns the shipping rules for a destination state.
	StateRules(ctx context.Context, state string) (*StateRules, error)

	// Close releases backend resources.
	Close() error
}
