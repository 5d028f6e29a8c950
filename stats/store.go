// Package stats keeps the homepage counters (beneficiaries, fitted
// prostheses, years of experience, specialists) in a local SQLite file.
// The values never reach the backend.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Counter keys, in display order.
const (
	Beneficiaries    = "beneficiaries"
	ProsthesesFitted = "prostheses_fitted"
	YearsExperience  = "years_experience"
	Specialists      = "specialists"
)

// Keys lists every counter key in display order.
var Keys = []string{Beneficiaries, ProsthesesFitted, YearsExperience, Specialists}

var (
	// ErrUnknownKey is returned by Set for a key outside Keys.
	ErrUnknownKey = errors.New("stats: unknown counter")
	// ErrNegative is returned when a counter would be stored below zero.
	ErrNegative = errors.New("stats: counter must not be negative")
)

// Stats is the set of homepage counters.
type Stats struct {
	Beneficiaries    int       `form:"beneficiaries" validate:"gte=0"`
	ProsthesesFitted int       `form:"prostheses_fitted" validate:"gte=0"`
	YearsExperience  int       `form:"years_experience" validate:"gte=0"`
	Specialists      int       `form:"specialists" validate:"gte=0"`
	UpdatedAt        time.Time `form:"-"`
}

// Defaults are shown until an administrator saves real values.
var Defaults = Stats{
	Beneficiaries:    5000,
	ProsthesesFitted: 3000,
	YearsExperience:  15,
	Specialists:      25,
}

// Value returns the counter stored under key.
func (s Stats) Value(key string) int {
	switch key {
	case Beneficiaries:
		return s.Beneficiaries
	case ProsthesesFitted:
		return s.ProsthesesFitted
	case YearsExperience:
		return s.YearsExperience
	case Specialists:
		return s.Specialists
	}
	return 0
}

func (s *Stats) set(key string, v int) bool {
	switch key {
	case Beneficiaries:
		s.Beneficiaries = v
	case ProsthesesFitted:
		s.ProsthesesFitted = v
	case YearsExperience:
		s.YearsExperience = v
	case Specialists:
		s.Specialists = v
	default:
		return false
	}
	return true
}

// Store wraps the SQLite file holding the counters.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path, creating its directory.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create stats dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure stats db: %w", err)
	}
	db.SetMaxOpenConns(2)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS counters (
    key TEXT PRIMARY KEY,
    value INTEGER NOT NULL,
    updated_at TEXT NOT NULL
);
`)
	return err
}

// Get returns the stored counters. Counters never saved keep their default.
func (s *Store) Get(ctx context.Context) (Stats, error) {
	out := Defaults
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM counters`)
	if err != nil {
		return out, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key, updated string
			value        int
		)
		if err := rows.Scan(&key, &value, &updated); err != nil {
			return out, err
		}
		if !out.set(key, value) {
			continue
		}
		if t, err := time.Parse(time.RFC3339, updated); err == nil && t.After(out.UpdatedAt) {
			out.UpdatedAt = t
		}
	}
	return out, rows.Err()
}

// Save stores every counter of st in one transaction.
func (s *Store) Save(ctx context.Context, st Stats) error {
	for _, key := range Keys {
		if st.Value(key) < 0 {
			return fmt.Errorf("%s: %w", key, ErrNegative)
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := time.Now().UTC().Format(time.RFC3339)
	for _, key := range Keys {
		if err := upsert(ctx, tx, key, st.Value(key), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Set stores a single counter.
func (s *Store) Set(ctx context.Context, key string, value int) error {
	var probe Stats
	if !probe.set(key, value) {
		return fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	if value < 0 {
		return fmt.Errorf("%s: %w", key, ErrNegative)
	}
	return upsert(ctx, s.db, key, value, time.Now().UTC().Format(time.RFC3339))
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, key string, value int, at string) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO counters (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`, key, value, at)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
