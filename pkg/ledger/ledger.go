package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// defaultPageLimit caps reads when the caller does not say.
	defaultPageLimit = 100
	// maxPageLimit is the hard ceiling on one page.
	maxPageLimit = 500
	// verifyBatch is the scan size used by VerifyChain.
	verifyBatch = 500
)

// Ledger sequences and hash-links entries onto a Store.
type Ledger struct {
	store Store
	log   *slog.Logger
	newID func() string
	now   func() time.Time

	// mu serializes sequence assignment and the insert that commits it.
	// head is the cached tail of the chain, loaded once.
	mu         sync.Mutex
	head       *Entry
	headLoaded bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger's logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		l.log = log
	}
}

// WithClock overrides the timestamp source. Test support.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates a Ledger on top of store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		log:   slog.Default(),
		newID: func() string { return uuid.NewString() },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = l.log.With("component", "ledger")
	return l
}

// Append validates a draft, assigns the next sequence, links it to the
// chain tail, and persists it. Concurrent appends serialize here; the
// critical section is one head read (cached after the first) and one
// insert.
func (l *Ledger) Append(ctx context.Context, d Draft) (*Entry, error) {
	if err := validateDraft(d); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.headLoaded {
		head, err := l.store.Head(ctx)
		if err != nil {
			return nil, err
		}
		l.head = head
		l.headLoaded = true
	}

	seq := uint64(1)
	prev := GenesisHash
	if l.head != nil {
		seq = l.head.Sequence + 1
		prev = l.head.Hash
	}

	entry := &Entry{
		Sequence:   seq,
		EntryID:    l.newID(),
		CaseID:     d.CaseID,
		Kind:       d.Kind,
		Payload:    append(json.RawMessage(nil), d.Payload...),
		PrevHash:   prev,
		RecordedAt: l.now().UTC(),
	}
	entry.Hash = entryHash(entry)

	if err := l.store.Append(ctx, entry); err != nil {
		// The insert may or may not have landed; drop the cache so the
		// next append re-reads the true tail.
		l.headLoaded = false
		l.head = nil
		return nil, err
	}
	l.head = entry

	l.log.Debug("entry appended",
		"sequence", entry.Sequence,
		"case_id", entry.CaseID,
		"kind", entry.Kind)
	return entry, nil
}

// AppendBatch validates and appends the drafts as one unit, in order.
// The whole batch lands or none of it does; the entries share one
// critical section, so no foreign entry can interleave a run's records.
func (l *Ledger) AppendBatch(ctx context.Context, drafts []Draft) ([]Entry, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	for _, d := range drafts {
		if err := validateDraft(d); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.headLoaded {
		head, err := l.store.Head(ctx)
		if err != nil {
			return nil, err
		}
		l.head = head
		l.headLoaded = true
	}

	seq := uint64(1)
	prev := GenesisHash
	if l.head != nil {
		seq = l.head.Sequence + 1
		prev = l.head.Hash
	}

	recorded := l.now().UTC()
	entries := make([]*Entry, len(drafts))
	for i, d := range drafts {
		e := &Entry{
			Sequence:   seq,
			EntryID:    l.newID(),
			CaseID:     d.CaseID,
			Kind:       d.Kind,
			Payload:    append(json.RawMessage(nil), d.Payload...),
			PrevHash:   prev,
			RecordedAt: recorded,
		}
		e.Hash = entryHash(e)
		entries[i] = e
		seq++
		prev = e.Hash
	}

	if err := l.store.AppendBatch(ctx, entries); err != nil {
		l.headLoaded = false
		l.head = nil
		return nil, err
	}
	l.head = entries[len(entries)-1]

	l.log.Debug("batch appended",
		"first_sequence", entries[0].Sequence,
		"count", len(entries),
		"case_id", entries[0].CaseID)

	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = *e
	}
	return out, nil
}

// Head returns the chain tail, or nil when the ledger is empty.
func (l *Ledger) Head(ctx context.Context) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.headLoaded {
		return l.head, nil
	}
	head, err := l.store.Head(ctx)
	if err != nil {
		return nil, err
	}
	l.head = head
	l.headLoaded = true
	return head, nil
}

// Entries returns up to limit entries with sequence greater than after,
// in ascending order. A non-positive limit uses the default page size.
func (l *Ledger) Entries(ctx context.Context, after uint64, limit int) ([]Entry, error) {
	return l.store.Scan(ctx, after, clampLimit(limit))
}

// EntriesFor returns up to limit of the case's entries with sequence
// greater than after, in ascending order.
func (l *Ledger) EntriesFor(ctx context.Context, caseID string, after uint64, limit int) ([]Entry, error) {
	return l.store.ForCase(ctx, caseID, after, clampLimit(limit))
}

// Query returns entries matching q, ascending by sequence. Used by the
// export surface for time-range and kind filtered reads.
func (l *Ledger) Query(ctx context.Context, q Query) ([]Entry, error) {
	q.Limit = clampLimit(q.Limit)
	return l.store.Query(ctx, q)
}

// VerifyChain walks the full chain and reports the first divergence:
// a sequence gap, a broken link, or an entry whose content no longer
// matches its hash. Verification reads pages and does not block appends.
func (l *Ledger) VerifyChain(ctx context.Context) (*VerifyResult, error) {
	result := &VerifyResult{Intact: true}
	expected := uint64(1)
	prev := GenesisHash
	after := uint64(0)

	for {
		batch, err := l.store.Scan(ctx, after, verifyBatch)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			return result, nil
		}
		for i := range batch {
			e := &batch[i]
			switch {
			case e.Sequence != expected:
				return broken(result, e.Sequence, "sequence gap"), nil
			case e.PrevHash != prev:
				return broken(result, e.Sequence, "previous hash mismatch"), nil
			case entryHash(e) != e.Hash:
				return broken(result, e.Sequence, "content hash mismatch"), nil
			}
			result.Checked++
			prev = e.Hash
			expected++
			after = e.Sequence
		}
	}
}

func broken(r *VerifyResult, seq uint64, reason string) *VerifyResult {
	r.Intact = false
	r.BrokenAt = seq
	r.Reason = reason
	return r
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}

func validateDraft(d Draft) error {
	if d.CaseID == "" {
		return NewDraftError("case_id", "is required")
	}
	switch d.Kind {
	case KindEvaluationRun, KindDecision, KindOverride, KindEvaluatorFailure:
	default:
		return NewDraftError("kind", "must be evaluation-run, decision, override, or evaluator-failure")
	}
	if len(d.Payload) == 0 || !json.Valid(d.Payload) {
		return NewDraftError("payload", "must be valid JSON")
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}
