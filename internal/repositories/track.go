package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

const trackColumns = `id, path, title, artist, people, album, version, genre, duration, file_size`

// TrackRepository persists library tracks keyed by their file path.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Upsert inserts the track, or refreshes the tags and size of the track already stored at the same path.
//
// The track's ID is set to the stored ID on success.
func (r *TrackRepository) Upsert(ctx context.Context, track *models.Track) error {
	if track.Path == "" {
		return fmt.Errorf("%w: track path is required", shared.ErrInvalidInput)
	}
	if track.FileSize < 0 {
		return fmt.Errorf("%w: track %s has negative size %d", shared.ErrInvalidInput, track.Path, track.FileSize)
	}

	now := time.Now()
	existing, err := r.GetByPath(ctx, track.Path)
	switch {
	case err == nil:
		track.ID = existing.ID
		query := `
			UPDATE tracks
			SET title = ?, artist = ?, people = ?, album = ?, version = ?, genre = ?, duration = ?, file_size = ?, updated_at = ?
			WHERE id = ?
		`
		if _, err := r.db.ExecContext(ctx, query,
			track.Title, track.Artist, track.People, track.Album, track.Version, track.Genre,
			track.Duration, track.FileSize, now, track.ID,
		); err != nil {
			return fmt.Errorf("failed to update track: %w", err)
		}
		return nil
	case !errors.Is(err, shared.ErrTrackNotFound):
		return err
	}

	sequence, err := NextSequence(ctx, r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO tracks (id, sequence, path, title, artist, people, album, version, genre, duration, file_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query,
		id, sequence, track.Path, track.Title, track.Artist, track.People, track.Album, track.Version, track.Genre,
		track.Duration, track.FileSize, now, now,
	); err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	track.ID = id
	return nil
}

// Get retrieves a track by ID
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

// GetByPath retrieves a track by its file path
func (r *TrackRepository) GetByPath(ctx context.Context, path string) (*models.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE path = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, path), path)
}

// List retrieves every track in insertion order
func (r *TrackRepository) List(ctx context.Context) ([]models.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks ORDER BY sequence ASC`
	return r.query(ctx, query)
}

// ListByIDs retrieves the tracks with the given IDs in insertion order. Unknown IDs are skipped.
func (r *TrackRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Track, error) {
	if len(ids) == 0 {
		return []models.Track{}, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY sequence ASC`
	return r.query(ctx, query, args...)
}

// Count returns the number of tracks and their combined size in bytes
func (r *TrackRepository) Count(ctx context.Context) (int, int64, error) {
	var (
		count int
		size  int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM tracks`).Scan(&count, &size)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return count, size, nil
}

func (r *TrackRepository) query(ctx context.Context, query string, args ...any) ([]models.Track, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// scanOne scans a single row into a [models.Track]
func (r *TrackRepository) scanOne(row *sql.Row, key string) (*models.Track, error) {
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, key)
	}
	return track, err
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var t models.Track
	err := row.Scan(&t.ID, &t.Path, &t.Title, &t.Artist, &t.People, &t.Album, &t.Version, &t.Genre, &t.Duration, &t.FileSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return &t, nil
}
