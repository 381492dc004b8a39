package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// ErrRunNotFound is returned when a truncation run does not exist.
var ErrRunNotFound = errors.New("truncation run not found")

const runColumns = `
	id, playlist_id, playlist_name, status, target_size, initial_size, final_size,
	tracks_removed, seed, dry_run, error_message, started_at, completed_at
`

// TruncationRepository records the history of playlist truncations.
//
// Runs are created in the running state and updated once the truncation ends.
type TruncationRepository struct {
	db *sql.DB
}

// NewTruncationRepository creates a new TruncationRepository with the given database connection
func NewTruncationRepository(db *sql.DB) *TruncationRepository {
	return &TruncationRepository{db: db}
}

// Create inserts a new run with generated ID and sequence
func (r *TruncationRepository) Create(ctx context.Context, run *models.TruncationRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "truncation_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO truncation_runs (
			id, sequence, playlist_id, playlist_name, status, target_size, initial_size,
			final_size, tracks_removed, seed, dry_run, error_message, started_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		id,
		sequence,
		run.PlaylistID,
		run.PlaylistName,
		string(run.Status),
		run.TargetSize,
		run.InitialSize,
		run.FinalSize,
		run.Removed,
		int64(run.Seed),
		run.DryRun,
		nullString(run.Error),
		run.StartedAt,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert truncation run: %w", err)
	}

	run.ID = id
	return nil
}

// Update stores the outcome of a run
func (r *TruncationRepository) Update(ctx context.Context, run *models.TruncationRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE truncation_runs
		SET status = ?, initial_size = ?, final_size = ?, tracks_removed = ?, seed = ?, error_message = ?, completed_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		string(run.Status),
		run.InitialSize,
		run.FinalSize,
		run.Removed,
		int64(run.Seed),
		nullString(run.Error),
		run.CompletedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update truncation run: %w", err)
	}
	return expectOne(result, ErrRunNotFound, run.ID)
}

// Get retrieves a run by ID
func (r *TruncationRepository) Get(ctx context.Context, id string) (*models.TruncationRun, error) {
	query := `SELECT ` + runColumns + ` FROM truncation_runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListByPlaylist retrieves the most recent runs of a playlist, newest first.
//
// A limit of zero or less returns every run.
func (r *TruncationRepository) ListByPlaylist(ctx context.Context, playlistID string, limit int) ([]models.TruncationRun, error) {
	query := `SELECT ` + runColumns + ` FROM truncation_runs WHERE playlist_id = ? ORDER BY sequence DESC`
	args := []any{playlistID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query truncation runs: %w", err)
	}
	defer rows.Close()

	runs := []models.TruncationRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

func scanRun(row rowScanner) (*models.TruncationRun, error) {
	var (
		run          models.TruncationRun
		status       string
		seed         int64
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&run.ID, &run.PlaylistID, &run.PlaylistName, &status, &run.TargetSize, &run.InitialSize, &run.FinalSize,
		&run.Removed, &seed, &run.DryRun, &errorMessage, &run.StartedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan truncation run: %w", err)
	}

	run.Status = models.RunStatus(status)
	run.Seed = uint64(seed)
	if errorMessage.Valid {
		run.Error = errorMessage.String
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
