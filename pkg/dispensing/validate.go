package dispensing

import "fmt"

// Validate performs structural validation of the snapshot and returns a
// *MalformedCaseError carrying every violation found, or nil when the Case
// is well-formed. Validate assumes a normalized Case (see Normalize);
// un-normalized state codes fail the state checks.
//
// Validation is purely structural. Regulatory judgments (expired licenses,
// refill timing, dose ranges) belong to evaluators, which only ever see
// Cases that passed this check.
func (c *Case) Validate() error {
	var violations []string

	add := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if c.CaseID == "" {
		add("case_id is required")
	}
	if c.RxNumber == "" {
		add("rx_number is required")
	}
	if c.RefillNumber < 0 {
		add("refill_number must not be negative")
	}
	if c.FillDate.IsZero() {
		add("fill_date is required")
	}
	if c.UseDate.IsZero() {
		add("use_date is required")
	}

	if c.Prescriber.LicenseNumber == "" {
		add("prescriber.license_number is required")
	}
	if !ValidState(c.Prescriber.LicenseState) {
		add("prescriber.license_state %q is not a recognized state", c.Prescriber.LicenseState)
	}

	if !c.Drug.Schedule.Valid() {
		add("drug.schedule %q is not dispensable", c.Drug.Schedule)
	}
	if c.Drug.Schedule.Controlled() && c.Prescriber.DEANumber == "" {
		add("prescriber.dea_number is required for controlled substances")
	}
	if c.Drug.Name == "" {
		add("drug.name is required")
	}
	if c.Drug.DailyDoseMG < 0 {
		add("drug.daily_dose_mg must not be negative")
	}
	if c.Drug.Quantity <= 0 {
		add("drug.quantity must be positive")
	}
	if c.Drug.DaysSupply <= 0 {
		add("drug.days_supply must be positive")
	}
	if c.Drug.ComponentCount < 0 {
		add("drug.component_count must not be negative")
	}
	if c.Drug.Compound && c.Drug.ComponentCount == 0 {
		add("drug.component_count is required for compounded preparations")
	}

	if c.Facility.Type != "" && c.Facility.Type != Facility503A && c.Facility.Type != Facility503B {
		add("facility.type %q must be 503A or 503B", c.Facility.Type)
	}
	if !ValidState(c.Facility.State) {
		add("facility.state %q is not a recognized state", c.Facility.State)
	}
	if !ValidState(c.Patient.State) {
		add("patient.state %q is not a recognized state", c.Patient.State)
	}
	if !ValidState(c.Shipping.DestinationState) {
		add("shipping.destination_state %q is not a recognized state", c.Shipping.DestinationState)
	}

	for i, f := range c.PriorFills {
		if f.DrugName == "" {
			add("prior_fills[%d].drug_name is required", i)
		}
		if f.FillDate.IsZero() {
			add("prior_fills[%d].fill_date is required", i)
		}
		if f.State != "" && !ValidState(f.State) {
			add("prior_fills[%d].state %q is not a recognized state", i, f.State)
		}
	}

	if len(violations) > 0 {
		return NewMalformedCaseError(c.CaseID, violations)
	}
	return nil
}
