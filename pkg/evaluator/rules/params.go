package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Params carries every tunable threshold for the built-in evaluators.
// The zero value is not usable; start from Defaults and override.
//
// Params are part of the decision's provenance: Digest folds them into the
// registry version, so a parameter change is visible on every decision made
// after it takes effect.
type Params struct {
	License       LicenseParams       `yaml:"license" json:"license"`
	Refill        RefillParams        `yaml:"refill" json:"refill"`
	Dosage        DosageParams        `yaml:"dosage" json:"dosage"`
	BUD           BUDParams           `yaml:"bud" json:"bud"`
	Compounding   CompoundingParams   `yaml:"compounding" json:"compounding"`
	Documentation DocumentationParams `yaml:"documentation" json:"documentation"`
}

// LicenseParams tunes the prescriber-license evaluator.
type LicenseParams struct {
	// MaxVerificationAgeDays is how old a board verification may be, as of
	// the fill date, before the evaluator warns about staleness.
	MaxVerificationAgeDays int `yaml:"max_verification_age_days" json:"max_verification_age_days"`
}

// RefillParams tunes the refill-timing evaluator.
type RefillParams struct {
	// MaxRefills is the refill ceiling for Schedule III through V.
	// Schedule II is always zero and not configurable.
	MaxRefills int `yaml:"max_refills" json:"max_refills"`

	// MinIntervalDays is the minimum number of calendar days between
	// fills of the same drug, counted across all states.
	MinIntervalDays int `yaml:"min_interval_days" json:"min_interval_days"`
}

// DosageParams tunes the cumulative-dosage evaluator.
type DosageParams struct {
	// ClassLimitsMG maps a therapeutic class to its maximum daily dose in
	// milligrams. Classes absent from the map are not dose-checked.
	ClassLimitsMG map[string]float64 `yaml:"class_limits_mg" json:"class_limits_mg"`

	// CriticalMultiplier scales a class limit to its block threshold.
	// Cumulative doses at or above limit*multiplier block; doses above the
	// limit but below the threshold warn.
	CriticalMultiplier float64 `yaml:"critical_multiplier" json:"critical_multiplier"`
}

// BUDParams tunes the beyond-use-date evaluator.
type BUDParams struct {
	// MinRemainingDays is the minimum number of calendar days that must
	// remain between the intended use date and the preparation's
	// expiration. The boundary is inclusive.
	MinRemainingDays int `yaml:"min_remaining_days" json:"min_remaining_days"`
}

// CompoundingParams tunes the compounding evaluator.
type CompoundingParams struct {
	// MaxComponents503A is the active-component ceiling for traditional
	// 503A pharmacies. 503B outsourcing facilities compound from bulk and
	// carry no component limit.
	MaxComponents503A int `yaml:"max_components_503a" json:"max_components_503a"`
}

// DocumentationParams tunes the clinical-documentation evaluator.
type DocumentationParams struct {
	// CompoundArtifacts are required on every compounded preparation.
	CompoundArtifacts []string `yaml:"compound_artifacts" json:"compound_artifacts"`

	// ControlledArtifacts are required on every controlled substance.
	ControlledArtifacts []string `yaml:"controlled_artifacts" json:"controlled_artifacts"`

	// RequiredByClass maps a therapeutic class to extra required
	// artifacts.
	RequiredByClass map[string][]string `yaml:"required_by_class" json:"required_by_class"`
}

// Defaults returns the production parameter set.
func Defaults() Params {
	return Params{
		License: LicenseParams{
			MaxVerificationAgeDays: 90,
		},
		Refill: RefillParams{
			MaxRefills:      5,
			MinIntervalDays: 7,
		},
		Dosage: DosageParams{
			ClassLimitsMG: map[string]float64{
				"phentermine": 37.5,
				"sildenafil":  100,
				"tadalafil":   20,
				"thyroid":     0.3,
			},
			CriticalMultiplier: 1.5,
		},
		BUD: BUDParams{
			MinRemainingDays: 10,
		},
		Compounding: CompoundingParams{
			MaxComponents503A: 5,
		},
		Documentation: DocumentationParams{
			CompoundArtifacts:   []string{"clinical-difference-statement", "compounding-worksheet"},
			ControlledArtifacts: []string{"prescription-image"},
			RequiredByClass:     map[string][]string{},
		},
	}
}

// IsZero reports whether no field of the parameter set is populated,
// distinguishing "caller gave no params" from an explicit configuration.
func (p Params) IsZero() bool {
	return p.License == (LicenseParams{}) &&
		p.Refill == (RefillParams{}) &&
		len(p.Dosage.ClassLimitsMG) == 0 &&
		p.Dosage.CriticalMultiplier == 0 &&
		p.BUD == (BUDParams{}) &&
		p.Compounding == (CompoundingParams{}) &&
		len(p.Documentation.CompoundArtifacts) == 0 &&
		len(p.Documentation.ControlledArtifacts) == 0 &&
		len(p.Documentation.RequiredByClass) == 0
}

// Validate checks the parameter set for values that would make an
// evaluator misbehave.
func (p Params) Validate() error {
	if p.License.MaxVerificationAgeDays <= 0 {
		return fmt.Errorf("rules: license.max_verification_age_days must be positive, got %d", p.License.MaxVerificationAgeDays)
	}
	if p.Refill.MaxRefills < 0 {
		return fmt.Errorf("rules: refill.max_refills cannot be negative, got %d", p.Refill.MaxRefills)
	}
	if p.Refill.MinIntervalDays < 0 {
		return fmt.Errorf("rules: refill.min_interval_days cannot be negative, got %d", p.Refill.MinIntervalDays)
	}
	for class, limit := range p.Dosage.ClassLimitsMG {
		if limit <= 0 {
			return fmt.Errorf("rules: dosage.class_limits_mg[%q] must be positive, got %g", class, limit)
		}
	}
	if p.Dosage.CriticalMultiplier < 1 {
		return fmt.Errorf("rules: dosage.critical_multiplier must be at least 1, got %g", p.Dosage.CriticalMultiplier)
	}
	if p.BUD.MinRemainingDays < 0 {
		return fmt.Errorf("rules: bud.min_remaining_days cannot be negative, got %d", p.BUD.MinRemainingDays)
	}
	if p.Compounding.MaxComponents503A <= 0 {
		return fmt.Errorf("rules: compounding.max_components_503a must be positive, got %d", p.Compounding.MaxComponents503A)
	}
	return nil
}

// Digest returns a short hex digest of the parameter set. encoding/json
// sorts map keys, so the digest is stable for equal parameter sets.
func (p Params) Digest() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("rules: digest params: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16], nil
}
