// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists normalised destination records in SQLite and
// answers structured queries over them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/pdiddy/travel-recommender/internal/logging"
	"github.com/pdiddy/travel-recommender/pkg/types"
)

// LoadMode selects how BulkLoad treats existing rows.
type LoadMode string

const (
	ModeAppend  LoadMode = "append"
	ModeReplace LoadMode = "replace"
)

// ParseLoadMode accepts "append" or "replace".
func ParseLoadMode(s string) (LoadMode, error) {
	switch LoadMode(strings.ToLower(s)) {
	case ModeAppend:
		return ModeAppend, nil
	case ModeReplace:
		return ModeReplace, nil
	}
	return "", &types.ValidationError{Field: "mode", Value: s, Reason: "must be append or replace"}
}

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("destination not found")

// Store manages the destinations SQLite database. Reads may run
// concurrently; bulk loads are serialised and run in one transaction, so a
// reader sees either the old table or the new one.
type Store struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger

	writeMu sync.Mutex
	loaded  atomic.Bool
}

// Open prepares a handle on the database at cfg.Path. Nothing touches disk
// until Load is called.
func Open(cfg types.StoreConfig, logger zerolog.Logger) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = types.DefaultConfig().Store.Path
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, &types.StorageError{Op: "open", Err: err}
	}
	return &Store{
		db:     db,
		path:   path,
		logger: logging.WithComponent(logger, "store"),
	}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Load creates the schema if it does not exist. It is safe to call more
// than once.
func (s *Store) Load(ctx context.Context) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &types.StorageError{Op: "load", Err: fmt.Errorf("creating database directory: %w", err)}
		}
	}
	if err := s.db.PingContext(ctx); err != nil {
		return &types.StorageError{Op: "load", Err: err}
	}
	if err := s.createSchema(ctx); err != nil {
		return &types.StorageError{Op: "load", Err: err}
	}
	s.loaded.Store(true)
	s.logger.Debug().Str("path", s.path).Msg("schema ready")
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	var cols strings.Builder
	cols.WriteString("id TEXT PRIMARY KEY,\n\t\tparent_region TEXT NOT NULL,\n\t\tregion TEXT NOT NULL")
	for _, c := range columns[3 : len(columns)-1] {
		fmt.Fprintf(&cols, ",\n\t\t%s REAL NOT NULL", c)
	}
	cols.WriteString(",\n\t\tdescription TEXT NOT NULL")

	statements := []string{
		"CREATE TABLE IF NOT EXISTS destinations (\n\t\t" + cols.String() + "\n\t)",
		`CREATE INDEX IF NOT EXISTS idx_destinations_parent_region ON destinations(parent_region)`,
		`CREATE INDEX IF NOT EXISTS idx_destinations_cost ON destinations(cost_per_week)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) checkLoaded(op string) error {
	if !s.loaded.Load() {
		return fmt.Errorf("%s: %w", op, types.ErrNotLoaded)
	}
	return nil
}

// BulkLoad writes records in a single transaction. ModeReplace clears the
// table first; ModeAppend fails the whole batch on a duplicate id.
func (s *Store) BulkLoad(ctx context.Context, records []types.DestinationRecord, mode LoadMode) (int, error) {
	if err := s.checkLoaded("bulk load"); err != nil {
		return 0, err
	}
	if mode != ModeAppend && mode != ModeReplace {
		return 0, &types.ValidationError{Field: "mode", Value: mode, Reason: "must be append or replace"}
	}
	for i := range records {
		if err := checkRecord(&records[i]); err != nil {
			return 0, err
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &types.StorageError{Op: "bulk load", Err: fmt.Errorf("beginning transaction: %w", err)}
	}
	defer tx.Rollback()

	if mode == ModeReplace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM destinations`); err != nil {
			return 0, &types.StorageError{Op: "bulk load", Err: fmt.Errorf("clearing destinations: %w", err)}
		}
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, &types.StorageError{Op: "bulk load", Err: fmt.Errorf("preparing insert: %w", err)}
	}
	defer stmt.Close()

	for i := range records {
		if _, err := stmt.ExecContext(ctx, recordValues(&records[i])...); err != nil {
			return 0, &types.StorageError{Op: "bulk load", Err: fmt.Errorf("inserting %s: %w", records[i].ID, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &types.StorageError{Op: "bulk load", Err: fmt.Errorf("committing: %w", err)}
	}

	s.logger.Info().Int("records", len(records)).Str("mode", string(mode)).Msg("bulk load committed")
	return len(records), nil
}

// checkRecord enforces the record invariants before anything is written.
func checkRecord(r *types.DestinationRecord) error {
	if strings.TrimSpace(r.ID) == "" {
		return &types.ValidationError{Field: "id", Reason: "required field is missing"}
	}
	if r.CostPerWeek < 0 {
		return &types.ValidationError{Field: "cost_per_week", Value: r.CostPerWeek, Reason: "must be non-negative"}
	}
	vals := recordValues(r)
	for i, c := range columns {
		if !isScoreColumn(c) {
			continue
		}
		if v := vals[i].(float64); v < 0 || v > 1 {
			return &types.ValidationError{Field: c, Value: v, Reason: fmt.Sprintf("score of %s outside [0,1]", r.ID)}
		}
	}
	return nil
}

// All returns every stored record ordered by id.
func (s *Store) All(ctx context.Context) ([]types.DestinationRecord, error) {
	return s.Query(ctx, Query{OrderBy: "id"})
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := s.checkLoaded("count"); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM destinations`).Scan(&n); err != nil {
		return 0, &types.StorageError{Op: "count", Err: err}
	}
	return n, nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (types.DestinationRecord, error) {
	recs, err := s.Query(ctx, Query{Conditions: []Condition{{Field: "id", Op: OpEq, Value: id}}})
	if err != nil {
		return types.DestinationRecord{}, err
	}
	if len(recs) == 0 {
		return types.DestinationRecord{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return recs[0], nil
}
