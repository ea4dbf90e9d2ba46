package refdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteSource is a reference-data source backed by a local SQLite file.
// Suitable for single-instance deployments where the license, DEA, and
// state-rule tables are synced in by an external loader.
//
// The database is opened in WAL mode with a busy timeout; reads and the
// loader's writes can proceed concurrently.
type SQLiteSource struct {
	db        *sql.DB
	closeOnce sync.Once

	licenseStmt *sql.Stmt
	deaStmt     *sql.Stmt
	rulesStmt   *sql.Stmt
}

// SQLiteSourceConfig configures the SQLite source.
type SQLiteSourceConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

const refdataSchema = `
CREATE TABLE IF NOT EXISTS prescriber_licenses (
	state       TEXT NOT NULL,
	number      TEXT NOT NULL,
	status      TEXT NOT NULL,
	expires_at  INTEGER NOT NULL,
	verified_at INTEGER NOT NULL,
	PRIMARY KEY (state, number)
);

CREATE TABLE IF NOT EXISTS dea_registrations (
	number               TEXT PRIMARY KEY,
	status               TEXT NOT NULL,
	registrant_last_name TEXT NOT NULL,
	schedules            TEXT NOT NULL,
	expires_at           INTEGER NOT NULL,
	verified_at          INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS state_rules (
	state                   TEXT PRIMARY KEY,
	requires_lov            INTEGER NOT NULL DEFAULT 0,
	injectable_compound_ban INTEGER NOT NULL DEFAULT 0,
	clinic_only_shipping    INTEGER NOT NULL DEFAULT 0
);
`

// NewSQLiteSource opens (or creates) a reference database at path with
// default settings.
func NewSQLiteSource(path string) (*SQLiteSource, error) {
	return NewSQLiteSourceWithConfig(SQLiteSourceConfig{Path: path})
}

// NewSQLiteSourceWithConfig opens a reference database with custom
// configuration.
func NewSQLiteSourceWithConfig(cfg SQLiteSourceConfig) (*SQLiteSource, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("refdata: db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("refdata: failed to open database: %w", err)
	}

	// SQLite supports a single writer; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteSource{db: db}

	if _, err := db.Exec(refdataSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("refdata: failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("refdata: failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteSource) prepareStatements() error {
	var err error

	s.licenseStmt, err = s.db.Prepare(`
		SELECT number, state, status, expires_at, verified_at
		FROM prescriber_licenses WHERE state = ? AND number = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare license statement: %w", err)
	}

	s.deaStmt, err = s.db.Prepare(`
		SELECT number, status, registrant_last_name, schedules, expires_at, verified_at
		FROM dea_registrations WHERE number = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare dea statement: %w", err)
	}

	s.rulesStmt, err = s.db.Prepare(`
		SELECT state, requires_lov, injectable_compound_ban, clinic_only_shipping
		FROM state_rules WHERE state = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare state rules statement: %w", err)
	}

	return nil
}

// PrescriberLicense implements Source.
func (s *SQLiteSource) PrescriberLicense(ctx context.Context, state, number string) (*License, error) {
	var (
		l                    License
		expiresNS, checkedNS int64
	)
	row := s.licenseStmt.QueryRowContext(ctx, state, number)
	err := row.Scan(&l.Number, &l.State, &l.Status, &expiresNS, &checkedNS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError("license", licenseKey(state, number))
	}
	if err != nil {
		return nil, NewLookupError("sqlite", "prescriber_license", err)
	}
	l.ExpiresAt = time.Unix(0, expiresNS).UTC()
	l.VerifiedAt = time.Unix(0, checkedNS).UTC()
	return &l, nil
}

// DEARegistration implements Source.
func (s *SQLiteSource) DEARegistration(ctx context.Context, number string) (*DEARegistration, error) {
	var (
		r                    DEARegistration
		schedules            string
		expiresNS, checkedNS int64
	)
	row := s.deaStmt.QueryRowContext(ctx, number)
	err := row.Scan(&r.Number, &r.Status, &r.RegistrantLastName, &schedules, &expiresNS, &checkedNS)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError("dea", number)
	}
	if err != nil {
		return nil, NewLookupError("sqlite", "dea_registration", err)
	}
	if err := json.Unmarshal([]byte(schedules), &r.Schedules); err != nil {
		return nil, NewLookupError("sqlite", "dea_registration", fmt.Errorf("decode schedules: %w", err))
	}
	r.ExpiresAt = time.Unix(0, expiresNS).UTC()
	r.VerifiedAt = time.Unix(0, checkedNS).UTC()
	return &r, nil
}

// StateRules implements Source. Unknown states return the zero rule set.
func (s *SQLiteSource) StateRules(ctx context.Context, state string) (*StateRules, error) {
	var (
		r               StateRules
		lov, ban, clinic int
	)
	row := s.rulesStmt.QueryRowContext(ctx, state)
	err := row.Scan(&r.State, &lov, &ban, &clinic)
	if errors.Is(err, sql.ErrNoRows) {
		return &StateRules{State: state}, nil
	}
	if err != nil {
		return nil, NewLookupError("sqlite", "state_rules", err)
	}
	r.RequiresLOV = lov != 0
	r.InjectableCompoundBan = ban != 0
	r.ClinicOnlyShipping = clinic != 0
	return &r, nil
}

// UpsertLicense inserts or replaces a license record. Used by loaders and
// tests; the evaluators themselves never write.
func (s *SQLiteSource) UpsertLicense(ctx context.Context, l License) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prescriber_licenses (state, number, status, expires_at, verified_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (state, number) DO UPDATE SET
			status = excluded.status,
			expires_at = excluded.expires_at,
			verified_at = excluded.verified_at
	`, l.State, l.Number, l.Status, l.ExpiresAt.UnixNano(), l.VerifiedAt.UnixNano())
	if err != nil {
		return NewLookupError("sqlite", "upsert_license", err)
	}
	return nil
}

// UpsertDEA inserts or replaces a DEA registration record.
func (s *SQLiteSource) UpsertDEA(ctx context.Context, r DEARegistration) error {
	schedules, err := json.Marshal(r.Schedules)
	if err != nil {
		return NewLookupError("sqlite", "upsert_dea", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dea_registrations (number, status, registrant_last_name, schedules, expires_at, verified_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (number) DO UPDATE SET
			status = excluded.status,
			registrant_last_name = excluded.registrant_last_name,
			schedules = excluded.schedules,
			expires_at = excluded.expires_at,
			verified_at = excluded.verified_at
	`, r.Number, r.Status, r.RegistrantLastName, string(schedules), r.ExpiresAt.UnixNano(), r.VerifiedAt.UnixNano())
	if err != nil {
		return NewLookupError("sqlite", "upsert_dea", err)
	}
	return nil
}

// UpsertStateRules inserts or replaces a state's shipping rules.
func (s *SQLiteSource) UpsertStateRules(ctx context.Context, r StateRules) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO state_rules (state, requires_lov, injectable_compound_ban, clinic_only_shipping)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (state) DO UPDATE SET
			requires_lov = excluded.requires_lov,
			injectable_compound_ban = excluded.injectable_compound_ban,
			clinic_only_shipping = excluded.clinic_only_shipping
	`, r.State, boolInt(r.RequiresLOV), boolInt(r.InjectableCompoundBan), boolInt(r.ClinicOnlyShipping))
	if err != nil {
		return NewLookupError("sqlite", "upsert_state_rules", err)
	}
	return nil
}

// Bootstrap seeds the default state rules for any state without a row.
// Existing rows are left untouched.
func (s *SQLiteSource) Bootstrap(ctx context.Context) error {
	for _, r := range DefaultStateRules() {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO state_rules (state, requires_lov, injectable_compound_ban, clinic_only_shipping)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (state) DO NOTHING
		`, r.State, boolInt(r.RequiresLOV), boolInt(r.InjectableCompoundBan), boolInt(r.ClinicOnlyShipping))
		if err != nil {
			return NewLookupError("sqlite", "bootstrap", err)
		}
	}
	return nil
}

// Close implements Source.
func (s *SQLiteSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.licenseStmt, s.deaStmt, s.rulesStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
