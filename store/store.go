// Package store persists observable estimation runs in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/theapemachine/qobs"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

var ErrNotFound = errors.New("run not found")

// Entry is the statistics of one observable within a run.
type Entry struct {
	Observable string
	Statistics qobs.Statistics
}

// Run is one evaluation of a set of observables on a state.
type Run struct {
	ID         string
	Label      string
	NumSites   int
	NumSamples int
	CreatedAt  time.Time
	Entries    []Entry
}

// Store persists runs in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store and applies the embedded schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}

	dsn := "file:" + filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite db")
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "ping sqlite db")
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "apply schema")
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

/*
SaveRun inserts a run and its entries in one transaction, returning the
stored run with its ID and creation time filled in.
*/
func (s *Store) SaveRun(ctx context.Context, run Run) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC().Truncate(time.Millisecond)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, label, num_sites, num_samples, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Label, run.NumSites, run.NumSamples, run.CreatedAt.UnixMilli(),
	); err != nil {
		return Run{}, errors.Wrapf(err, "insert run %s", run.ID)
	}

	for i, entry := range run.Entries {
		st := entry.Statistics
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_statistics
				(run_id, position, observable, mean, variance, std_error, num_samples)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, entry.Observable, st.Mean, st.Variance, st.StdError, st.NumSamples,
		); err != nil {
			return Run{}, errors.Wrapf(err, "insert %s for run %s", entry.Observable, run.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, errors.Wrap(err, "commit")
	}
	return run, nil
}

// Run loads a run by ID.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, label, num_sites, num_samples, created_at FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.Wrapf(ErrNotFound, "run %s", id)
	}
	if err != nil {
		return Run{}, errors.Wrapf(err, "load run %s", id)
	}

	if run.Entries, err = s.entries(ctx, id); err != nil {
		return Run{}, err
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, label, num_sites, num_samples, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list runs")
	}

	for i := range runs {
		if runs[i].Entries, err = s.entries(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT observable, mean, variance, std_error, num_samples
		 FROM run_statistics WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "load statistics for %s", runID)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.Observable,
			&e.Statistics.Mean,
			&e.Statistics.Variance,
			&e.Statistics.StdError,
			&e.Statistics.NumSamples,
		); err != nil {
			return nil, errors.Wrap(err, "scan statistics")
		}
		entries = append(entries, e)
	}
	return entries, errors.Wrap(rows.Err(), "load statistics")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run     Run
		created int64
	)
	if err := row.Scan(&run.ID, &run.Label, &run.NumSites, &run.NumSamples, &created); err != nil {
		return Run{}, err
	}
	run.CreatedAt = time.UnixMilli(created).UTC()
	return run, nil
}
