// Package rules implements the built-in compliance evaluators.
//
// Eight evaluators cover the dispensing checks: prescriber licensure, DEA
// registration, destination-state shipping restrictions, refill timing,
// cumulative dosage, beyond-use dating, compounding limits, and clinical
// documentation completeness. BuildRegistry assembles them in their fixed
// registration order with applicability predicates, so a non-controlled
// tablet never pays for a DEA lookup.
//
// Evaluators are deterministic: every date comparison is anchored to the
// case's own fill or use date, never the wall clock, so re-evaluating an
// identical snapshot under identical parameters yields identical verdicts.
// Thresholds live in Params; severities are fixed per reason code.
package rules
