package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"
)

// timeLayout is fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by GetRun for an unknown ID.
var ErrNotFound = errors.New("run not found")

// Run is one journal row.
type Run struct {
	ID                string    `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	InputPath         string    `json:"input_path"`
	OutputPath        string    `json:"output_path"`
	Width             int       `json:"width"`
	Height            int       `json:"height"`
	Channels          int       `json:"channels"`
	Level             int       `json:"level"`
	BaselineErrorRate float64   `json:"baseline_error_rate"`
	LifetimeSeconds   float64   `json:"lifetime_seconds"`
	ElapsedSeconds    float64   `json:"elapsed_seconds"`
	Protections       int64     `json:"protections"`
	DecoheredReads    int64     `json:"decohered_reads"`
	OutputSHA256      string    `json:"output_sha256"`
}

// RecordRun inserts run. A second insert with the same ID is ignored.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("record run: empty id")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, created_at, input_path, output_path, width, height, channels, level,
		 baseline_error_rate, lifetime_seconds, elapsed_seconds, protections,
		 decohered_reads, output_sha256)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.CreatedAt.UTC().Format(timeLayout),
		norm.NFC.String(run.InputPath),
		norm.NFC.String(run.OutputPath),
		run.Width,
		run.Height,
		run.Channels,
		run.Level,
		run.BaselineErrorRate,
		run.LifetimeSeconds,
		run.ElapsedSeconds,
		run.Protections,
		run.DecoheredReads,
		run.OutputSHA256,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

const selectRun = `
	SELECT id, created_at, input_path, output_path, width, height, channels, level,
	       baseline_error_rate, lifetime_seconds, elapsed_seconds, protections,
	       decohered_reads, output_sha256
	FROM runs
`

// GetRun returns the run with the given ID, or ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRun+" WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
//
// Returns an empty slice (not nil) when the journal is empty.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := selectRun + " ORDER BY created_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run     Run
		created string
	)
	err := sc.Scan(
		&run.ID,
		&created,
		&run.InputPath,
		&run.OutputPath,
		&run.Width,
		&run.Height,
		&run.Channels,
		&run.Level,
		&run.BaselineErrorRate,
		&run.LifetimeSeconds,
		&run.ElapsedSeconds,
		&run.Protections,
		&run.DecoheredReads,
		&run.OutputSHA256,
	)
	if err != nil {
		return Run{}, err
	}

	run.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return run, nil
}
