// Package storage provides the persistence backends for the audit
// ledger: a SQLite store for production and an in-memory store for tests
// and ephemeral runs.
//
// Both stores persist entry payloads byte-for-byte. The chain hash covers
// stored bytes, so a store that rewrote payloads would fail verification.
package storage
