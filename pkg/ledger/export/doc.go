// Package export provides audit entry exporters for JSON and CSV.
//
// Both exporters take a slice for small dumps and a channel for
// streaming, so a full-chain export never holds the ledger in memory.
// Stream feeds either from ledger pages.
package export
