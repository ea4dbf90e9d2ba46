package ledger

import (
	"context"
	"encoding/json"
	"time"
)

// Entry kinds recorded on the chain.
const (
	KindEvaluationRun    = "evaluation-run"
	KindDecision         = "decision"
	KindOverride         = "override"
	KindEvaluatorFailure = "evaluator-failure"
)

// GenesisHash is the previous-hash value of the first entry.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one immutable audit record.
type Entry struct {
	// Sequence is the entry's position on the chain, starting at 1 and
	// globally monotonic across all cases.
	Sequence uint64 `json:"sequence"`

	// EntryID is the entry's unique identifier.
	EntryID string `json:"entry_id"`

	// CaseID is the dispensing case the entry belongs to.
	CaseID string `json:"case_id"`

	// Kind classifies the payload, one of the Kind* constants.
	Kind string `json:"kind"`

	// Payload is the recorded document, stored byte-for-byte.
	Payload json.RawMessage `json:"payload"`

	// PrevHash is the hash of the preceding entry, GenesisHash for the
	// first.
	PrevHash string `json:"prev_hash"`

	// Hash covers PrevHash and the entry's own content.
	Hash string `json:"hash"`

	// RecordedAt is when the entry was appended, UTC.
	RecordedAt time.Time `json:"recorded_at"`
}

// Draft is the caller-supplied part of an entry. The ledger assigns
// sequence, identity, hashes, and the timestamp.
type Draft struct {
	CaseID  string
	Kind    string
	Payload json.RawMessage
}

// Query defines filter parameters for reading entries, used by the audit
// export surface. Zero-value fields are not applied.
type Query struct {
	// CaseID restricts results to one case.
	CaseID string `json:"case_id,omitempty"`

	// Kind restricts results to one entry kind.
	Kind string `json:"kind,omitempty"`

	// From is the inclusive lower bound on RecordedAt.
	From *time.Time `json:"from,omitempty"`

	// To is the inclusive upper bound on RecordedAt.
	To *time.Time `json:"to,omitempty"`

	// After is a sequence cursor; only entries with a higher sequence
	// are returned.
	After uint64 `json:"after,omitempty"`

	// Limit is the maximum number of entries to return.
	Limit int `json:"limit,omitempty"`
}

// VerifyResult is the outcome of a chain walk.
type VerifyResult struct {
	// Intact is true when every entry links and hashes correctly.
	Intact bool `json:"intact"`

	// Checked is the number of entries examined.
	Checked uint64 `json:"checked"`

	// BrokenAt is the sequence of the first diverging entry, zero when
	// the chain is intact.
	BrokenAt uint64 `json:"broken_at,omitempty"`

	// Reason describes the first divergence.
	Reason string `json:"reason,omitempty"`
}

// Store is the persistence interface beneath the ledger.
//
// Implementations must persist Payload byte-for-byte and return entries
// exactly as stored; hashes are recomputed over stored bytes during
// verification.
type Store interface {
	// Head returns the highest-sequence entry, or nil when empty.
	Head(ctx context.Context) (*Entry, error)

	// Append inserts a fully-formed entry. The sequence must not exist.
	Append(ctx context.Context, e *Entry) error

	// AppendBatch inserts the entries as one unit; either every entry
	// lands or none do.
	AppendBatch(ctx context.Context, entries []*Entry) error

	// Scan returns up to limit entries with sequence > after, ascending.
	Scan(ctx context.Context, after uint64, limit int) ([]Entry, error)

	// ForCase returns up to limit entries for the case with sequence >
	// after, ascending.
	ForCase(ctx context.Context, caseID string, after uint64, limit int) ([]Entry, error)

	// Query returns entries matching q in ascending sequence order.
	Query(ctx context.Context, q Query) ([]Entry, error)

	// Close releases the store.
	Close() error
}
