// Package dispensing defines the immutable case snapshot that every
// compliance evaluation runs against.
//
// A Case is created once per dispensing attempt from upstream adapter data
// and is never mutated afterwards. A re-evaluation of the same external case
// constructs a new Case carrying the same CaseID but a fresh content
// snapshot, so historical decisions stay reproducible against the exact
// snapshot that produced them. The Fingerprint method returns a stable
// SHA-256 digest of the snapshot for that purpose.
//
// # Basic Usage
//
// Cases normally arrive as JSON from an adapter and are normalized and
// validated before orchestration:
//
//	var c dispensing.Case
//	if err := json.Unmarshal(body, &c); err != nil { ... }
//	snapshot := c.Normalize()
//	if err := snapshot.Validate(); err != nil {
//	    // err is a *MalformedCaseError carrying every violation
//	}
//
// Validation failures reject the whole run before any evaluator is invoked;
// they are reported distinctly from a HOLD decision.
package dispensing
