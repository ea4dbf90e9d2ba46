// Package ledger provides the append-only, hash-chained audit trail.
//
// Every decision and override lands here as an Entry. Entries carry a
// globally monotonic sequence and a SHA-256 hash over the previous entry's
// hash plus their own content, so any after-the-fact edit, removal, or
// reorder breaks the chain at a verifiable position. VerifyChain walks the
// chain and reports the first divergence.
//
// Appends serialize through one short critical section that assigns the
// sequence and links the hash; storage I/O inside it is a single row
// insert. Reads never take the append lock.
package ledger
