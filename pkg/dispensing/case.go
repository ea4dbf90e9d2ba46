package dispensing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Schedule identifies a controlled-substance schedule. The empty string
// means the drug is not a controlled substance. Schedule I substances are
// not dispensable and are rejected by validation.
type Schedule string

// Controlled-substance schedules recognized by the engine.
const (
	ScheduleNone Schedule = ""
	ScheduleII   Schedule = "II"
	ScheduleIII  Schedule = "III"
	ScheduleIV   Schedule = "IV"
	ScheduleV    Schedule = "V"
)

// Controlled reports whether the schedule denotes a controlled substance.
func (s Schedule) Controlled() bool {
	return s != ScheduleNone
}

// Valid reports whether the schedule is one the engine dispenses.
func (s Schedule) Valid() bool {
	switch s {
	case ScheduleNone, ScheduleII, ScheduleIII, ScheduleIV, ScheduleV:
		return true
	}
	return false
}

// FacilityType classifies the compounding facility under FDA sections
// 503A (traditional compounding pharmacy) and 503B (outsourcing facility).
type FacilityType string

const (
	Facility503A FacilityType = "503A"
	Facility503B FacilityType = "503B"
)

// Prescriber identifies the prescribing practitioner.
type Prescriber struct {
	// Name is the practitioner's display name. Informational only.
	Name string `json:"name,omitempty"`

	// LicenseNumber is the state medical license number.
	LicenseNumber string `json:"license_number"`

	// LicenseState is the two-letter state that issued the license.
	LicenseState string `json:"license_state"`

	// DEANumber is the DEA registration number. Required when the drug
	// is a controlled substance.
	DEANumber string `json:"dea_number,omitempty"`
}

// Patient carries the minimum patient context the engine needs. Patient
// identity beyond jurisdiction is deliberately excluded from the snapshot.
type Patient struct {
	// State is the patient's two-letter jurisdiction.
	State string `json:"state"`

	// BirthYear supports age-banded rules without carrying a birth date.
	BirthYear int `json:"birth_year,omitempty"`
}

// Drug identifies the dispensed product and its dosing facts.
type Drug struct {
	// Name is the drug name as dispensed (e.g. "atorvastatin").
	Name string `json:"name"`

	// NDC is the National Drug Code, when known.
	NDC string `json:"ndc,omitempty"`

	// Schedule is the controlled-substance schedule, empty for
	// non-controlled drugs.
	Schedule Schedule `json:"schedule,omitempty"`

	// Class is the therapeutic class (e.g. "statin", "antiarrhythmic").
	// Drives documentation requirements.
	Class string `json:"class,omitempty"`

	// DailyDoseMG is the prescribed daily dose in milligrams.
	DailyDoseMG float64 `json:"daily_dose_mg"`

	// Quantity is the dispensed unit count.
	Quantity float64 `json:"quantity"`

	// DaysSupply is the number of days the fill covers.
	DaysSupply int `json:"days_supply"`

	// ExpirationDate is the beyond-use date for compounded or otherwise
	// dated preparations. Zero when not applicable.
	ExpirationDate time.Time `json:"expiration_date,omitzero"`

	// Compound marks a compounded preparation.
	Compound bool `json:"compound,omitempty"`

	// ComponentCount is the number of active components in a compounded
	// preparation.
	ComponentCount int `json:"component_count,omitempty"`

	// Injectable marks injectable routes of administration.
	Injectable bool `json:"injectable,omitempty"`
}

// Facility describes the dispensing facility.
type Facility struct {
	// Type is the facility classification, 503A or 503B. May be empty
	// when the adapter could not determine it; the compounding evaluator
	// treats that as a violation for compounded preparations.
	Type FacilityType `json:"type,omitempty"`

	// State is the facility's two-letter state.
	State string `json:"state"`
}

// Shipping describes the dispensing destination.
type Shipping struct {
	// DestinationState is the two-letter state the fill ships to.
	DestinationState string `json:"destination_state"`

	// ClinicDestination is true when the destination is a licensed
	// clinic rather than a patient address. Several states only permit
	// clinic shipment.
	ClinicDestination bool `json:"clinic_destination,omitempty"`
}

// Fill is one prior dispensing event for the patient, as reported by the
// upstream system. PriorFills are ordered most-recent-first.
type Fill struct {
	DrugName    string    `json:"drug_name"`
	Schedule    Schedule  `json:"schedule,omitempty"`
	State       string    `json:"state"`
	FillDate    time.Time `json:"fill_date"`
	Quantity    float64   `json:"quantity"`
	DaysSupply  int       `json:"days_supply"`
	DailyDoseMG float64   `json:"daily_dose_mg"`
}

// Case is one dispensing attempt's immutable input snapshot.
//
// Treat a Case as read-only once constructed: evaluators receive a shared
// pointer and must not modify it. Normalize returns an adjusted copy rather
// than editing in place.
type Case struct {
	// CaseID is the external case identifier shared by all snapshots of
	// the same real-world case.
	CaseID string `json:"case_id"`

	// RxNumber is the prescription number.
	RxNumber string `json:"rx_number"`

	// RefillNumber is zero for the original fill and increments per
	// refill attempt.
	RefillNumber int `json:"refill_number"`

	// FillDate is the date of this dispensing attempt.
	FillDate time.Time `json:"fill_date"`

	// UseDate is the intended administration or use date. Drives the
	// beyond-use-date check.
	UseDate time.Time `json:"use_date"`

	Prescriber Prescriber `json:"prescriber"`
	Patient    Patient    `json:"patient"`
	Drug       Drug       `json:"drug"`
	Facility   Facility   `json:"facility"`
	Shipping   Shipping   `json:"shipping"`

	// PriorFills is the patient's fill history, most recent first.
	PriorFills []Fill `json:"prior_fills,omitempty"`

	// Documentation lists the artifact names present on the case
	// (e.g. "ecg", "compounding-sheet", "lov"), lower-case and sorted.
	Documentation []string `json:"documentation,omitempty"`
}

// Normalize returns a copy of the Case with state codes upper-cased, the
// DEA number upper-cased, and documentation artifact names lower-cased and
// sorted. The receiver is not modified.
func (c *Case) Normalize() *Case {
	out := *c

	out.Prescriber.LicenseState = normalizeState(c.Prescriber.LicenseState)
	out.Prescriber.DEANumber = strings.ToUpper(strings.TrimSpace(c.Prescriber.DEANumber))
	out.Prescriber.LicenseNumber = strings.TrimSpace(c.Prescriber.LicenseNumber)
	out.Patient.State = normalizeState(c.Patient.State)
	out.Facility.State = normalizeState(c.Facility.State)
	out.Shipping.DestinationState = normalizeState(c.Shipping.DestinationState)

	if len(c.PriorFills) > 0 {
		out.PriorFills = make([]Fill, len(c.PriorFills))
		copy(out.PriorFills, c.PriorFills)
		for i := range out.PriorFills {
			out.PriorFills[i].State = normalizeState(out.PriorFills[i].State)
		}
	}

	if len(c.Documentation) > 0 {
		out.Documentation = make([]string, 0, len(c.Documentation))
		for _, d := range c.Documentation {
			d = strings.ToLower(strings.TrimSpace(d))
			if d != "" {
				out.Documentation = append(out.Documentation, d)
			}
		}
		sort.Strings(out.Documentation)
	}

	return &out
}

// HasArtifact reports whether a documentation artifact is present on the
// case. The name is matched case-insensitively.
func (c *Case) HasArtifact(name string) bool {
	name = strings.ToLower(name)
	for _, d := range c.Documentation {
		if d == name {
			return true
		}
	}
	return false
}

// Fingerprint returns the SHA-256 digest of the canonical JSON encoding of
// the snapshot. Two Cases with identical content produce identical
// fingerprints; collection order is part of the content, so callers should
// fingerprint normalized Cases.
func (c *Case) Fingerprint() string {
	// Struct field order fixes the JSON key order, so Marshal is
	// deterministic for a given snapshot.
	data, err := json.Marshal(c)
	if err != nil {
		// Case contains only marshalable field types.
		panic("dispensing: case fingerprint: " + err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func normalizeState(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
