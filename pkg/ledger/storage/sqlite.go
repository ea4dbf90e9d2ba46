package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"rxsentinel/arbiter/pkg/ledger"
)

// SQLiteConfig contains configuration for the SQLite ledger backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the
	// database. Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/ledger.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements ledger.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore creates a SQLite-backed ledger store. It initializes
// the schema and enables WAL mode if configured.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "ledger.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, ledger.NewStoreError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite ledger store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)
	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return ledger.NewStoreError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return ledger.NewStoreError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return ledger.NewStoreError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return ledger.NewStoreError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return ledger.NewStoreError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return ledger.NewStoreError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Head returns the highest-sequence entry, or nil when the chain is
// empty.
func (s *SQLiteStore) Head(ctx context.Context) (*ledger.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT sequence, entry_id, case_id, kind, payload, prev_hash, hash, recorded_at
		FROM ledger_entries ORDER BY sequence DESC LIMIT 1`)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStoreError("sqlite", "head", err)
	}
	return e, nil
}

// Append inserts a fully-formed entry. A duplicate sequence fails on the
// primary key.
func (s *SQLiteStore) Append(ctx context.Context, e *ledger.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries
			(sequence, entry_id, case_id, kind, payload, prev_hash, hash, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Sequence, e.EntryID, e.CaseID, e.Kind, []byte(e.Payload),
		e.PrevHash, e.Hash, e.RecordedAt.UnixNano(),
	)
	if err != nil {
		return ledger.NewStoreError("sqlite", "append", err)
	}
	return nil
}

// AppendBatch inserts the entries in one transaction; either every entry
// lands or none do.
func (s *SQLiteStore) AppendBatch(ctx context.Context, entries []*ledger.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.NewStoreError("sqlite", "append_batch", err)
	}
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_entries
				(sequence, entry_id, case_id, kind, payload, prev_hash, hash, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Sequence, e.EntryID, e.CaseID, e.Kind, []byte(e.Payload),
			e.PrevHash, e.Hash, e.RecordedAt.UnixNano(),
		)
		if err != nil {
			tx.Rollback()
			return ledger.NewStoreError("sqlite", "append_batch", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return ledger.NewStoreError("sqlite", "append_batch", err)
	}
	return nil
}

// Scan returns up to limit entries with sequence > after, ascending.
func (s *SQLiteStore) Scan(ctx context.Context, after uint64, limit int) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, entry_id, case_id, kind, payload, prev_hash, hash, recorded_at
		FROM ledger_entries WHERE sequence > ?
		ORDER BY sequence ASC LIMIT ?`, after, limit)
	if err != nil {
		return nil, ledger.NewStoreError("sqlite", "scan", err)
	}
	defer rows.Close()
	return collectEntries(rows, "scan")
}

// ForCase returns up to limit of the case's entries with sequence >
// after, ascending.
func (s *SQLiteStore) ForCase(ctx context.Context, caseID string, after uint64, limit int) ([]ledger.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, entry_id, case_id, kind, payload, prev_hash, hash, recorded_at
		FROM ledger_entries WHERE case_id = ? AND sequence > ?
		ORDER BY sequence ASC LIMIT ?`, caseID, after, limit)
	if err != nil {
		return nil, ledger.NewStoreError("sqlite", "for_case", err)
	}
	defer rows.Close()
	return collectEntries(rows, "for_case")
}

// Query returns entries matching q in ascending sequence order.
func (s *SQLiteStore) Query(ctx context.Context, q ledger.Query) ([]ledger.Entry, error) {
	where, args := buildWhereClause(q)

	sqlQuery := `
		SELECT sequence, entry_id, case_id, kind, payload, prev_hash, hash, recorded_at
		FROM ledger_entries WHERE ` + where + ` ORDER BY sequence ASC`
	if q.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, ledger.NewStoreError("sqlite", "query", err)
	}
	defer rows.Close()
	return collectEntries(rows, "query")
}

// buildWhereClause turns a query into a WHERE clause and its arguments.
// The sequence cursor is always present, so the clause is never empty.
func buildWhereClause(q ledger.Query) (string, []any) {
	clauses := []string{"sequence > ?"}
	args := []any{q.After}

	if q.CaseID != "" {
		clauses = append(clauses, "case_id = ?")
		args = append(args, q.CaseID)
	}
	if q.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, q.Kind)
	}
	if q.From != nil {
		clauses = append(clauses, "recorded_at >= ?")
		args = append(args, q.From.UnixNano())
	}
	if q.To != nil {
		clauses = append(clauses, "recorded_at <= ?")
		args = append(args, q.To.UnixNano())
	}
	return strings.Join(clauses, " AND "), args
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return ledger.NewStoreError("sqlite", "close", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*ledger.Entry, error) {
	var e ledger.Entry
	var payload []byte
	var recordedAt int64
	if err := row.Scan(&e.Sequence, &e.EntryID, &e.CaseID, &e.Kind,
		&payload, &e.PrevHash, &e.Hash, &recordedAt); err != nil {
		return nil, err
	}
	e.Payload = payload
	e.RecordedAt = time.Unix(0, recordedAt).UTC()
	return &e, nil
}

func collectEntries(rows *sql.Rows, operation string) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, ledger.NewStoreError("sqlite", operation, err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStoreError("sqlite", operation, err)
	}
	return out, nil
}
