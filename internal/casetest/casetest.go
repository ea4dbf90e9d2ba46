// Package casetest provides shared case and reference-data fixtures for
// integration tests. Every fixture uses fixed dates so decisions are
// reproducible run to run.
package casetest

import (
	"time"

	"rxsentinel/arbiter/pkg/dispensing"
	"rxsentinel/arbiter/pkg/refdata"
)

// Fixture identities. The DEA number carries a valid check digit and
// matches the registrant surname on file.
const (
	LicenseNumber = "A123456"
	LicenseState  = "CA"
	DEANumber     = "BA1234563"
)

// FillDate is the fixed dispensing date every fixture case uses.
var FillDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

// Dispensable returns a well-formed non-controlled fill that passes every
// applicable evaluator against Source's records.
func Dispensable(caseID string) *dispensing.Case {
	return &dispensing.Case{
		CaseID:       caseID,
		RxNumber:     "RX-" + caseID,
		RefillNumber: 0,
		FillDate:     FillDate,
		UseDate:      FillDate.AddDate(0, 0, 2),
		Prescriber: dispensing.Prescriber{
			Name:          "R. Alvarez",
			LicenseNumber: LicenseNumber,
			LicenseState:  LicenseState,
		},
		Patient: dispensing.Patient{State: "TX", BirthYear: 1981},
		Drug: dispensing.Drug{
			Name:        "atorvastatin",
			Class:       "statin",
			DailyDoseMG: 20,
			Quantity:    30,
			DaysSupply:  30,
		},
		Facility: dispensing.Facility{Type: dispensing.Facility503A, State: "AZ"},
		Shipping: dispensing.Shipping{DestinationState: "TX"},
	}
}

// Controlled returns a well-formed Schedule III fill that passes every
// applicable evaluator against Source's records.
func Controlled(caseID string) *dispensing.Case {
	c := Dispensable(caseID)
	c.Prescriber.DEANumber = DEANumber
	c.Drug = dispensing.Drug{
		Name:        "testosterone cypionate",
		Schedule:    dispensing.ScheduleIII,
		Class:       "androgen",
		DailyDoseMG: 14,
		Quantity:    1,
		DaysSupply:  28,
	}
	c.Documentation = []string{"prescription-image"}
	return c
}

// Held returns a well-formed fill whose prescriber is not on file, so the
// license evaluator blocks and the decision is HOLD.
func Held(caseID string) *dispensing.Case {
	c := Dispensable(caseID)
	c.Prescriber.LicenseNumber = "Z999999"
	return c
}

// Source returns a memory reference-data source seeded with the records
// the fixture cases resolve against.
func Source() *refdata.MemorySource {
	src := refdata.NewMemorySource()
	src.SeedLicense(refdata.License{
		Number:     LicenseNumber,
		State:      LicenseState,
		Status:     refdata.StatusActive,
		ExpiresAt:  FillDate.AddDate(1, 0, 0),
		VerifiedAt: FillDate.AddDate(0, 0, -9),
	})
	src.SeedDEA(refdata.DEARegistration{
		Number:             DEANumber,
		Status:             refdata.StatusActive,
		RegistrantLastName: "Alvarez",
		Schedules:          []string{"II", "III"},
		ExpiresAt:          FillDate.AddDate(1, 0, 0),
	})
	return src
}

// SeedYAML is the seed-file equivalent of Source, for tests that exercise
// the refdata.seed_file configuration path.
const SeedYAML = `licenses:
  - number: A123456
    state: CA
    status: active
    expires_at: 2027-03-10T00:00:00Z
    verified_at: 2026-03-01T00:00:00Z
dea_registrations:
  - number: BA1234563
    status: active
    registrant_last_name: Alvarez
    schedules: ["II", "III"]
    expires_at: 2027-03-10T00:00:00Z
`
