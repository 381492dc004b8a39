package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// PlaylistRepository persists playlists and their ordered entries.
//
// Handles playlist CRUD operations with soft delete support. A track may appear in a playlist more than once.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistSummary = `
	SELECT p.id, p.name, p.description, COUNT(pt.track_id), COALESCE(SUM(t.file_size), 0)
	FROM playlists p
	LEFT JOIN playlist_tracks pt ON pt.playlist_id = p.id
	LEFT JOIN tracks t ON t.id = pt.track_id
`

// Create inserts a new playlist with generated ID and sequence
func (r *PlaylistRepository) Create(ctx context.Context, name, description string) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}

	sequence, err := NextSequence(ctx, r.db, "playlists")
	if err != nil {
		return nil, fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	now := time.Now()

	query := `
		INSERT INTO playlists (id, sequence, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, id, sequence, name, description, now, now); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: playlist %q", shared.ErrDuplicateName, name)
		}
		return nil, fmt.Errorf("failed to insert playlist: %w", err)
	}

	return &models.Playlist{ID: id, Name: name, Description: description}, nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	query := playlistSummary + ` WHERE p.id = ? AND p.deleted_at IS NULL GROUP BY p.id`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), id)
}

// GetByName retrieves a playlist by its exact name, excluding soft-deleted playlists
func (r *PlaylistRepository) GetByName(ctx context.Context, name string) (*models.Playlist, error) {
	query := playlistSummary + ` WHERE p.name = ? AND p.deleted_at IS NULL GROUP BY p.id`
	return r.scanOne(r.db.QueryRowContext(ctx, query, name), name)
}

// Resolve looks a playlist up by ID first, then by name.
func (r *PlaylistRepository) Resolve(ctx context.Context, nameOrID string) (*models.Playlist, error) {
	playlist, err := r.Get(ctx, nameOrID)
	if err == nil || !errors.Is(err, shared.ErrPlaylistNotFound) {
		return playlist, err
	}
	return r.GetByName(ctx, nameOrID)
}

// List retrieves all playlists with their aggregates, excluding soft-deleted playlists
func (r *PlaylistRepository) List(ctx context.Context) ([]models.Playlist, error) {
	query := playlistSummary + ` WHERE p.deleted_at IS NULL GROUP BY p.id ORDER BY p.sequence ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		playlist, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return nil
}

// AddTracks appends the given track IDs, in order, to the end of the playlist.
func (r *PlaylistRepository) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchPlaylist(ctx, tx, playlistID); err != nil {
		return err
	}

	var last int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM playlist_tracks WHERE playlist_id = ?`, playlistID,
	).Scan(&last); err != nil {
		return fmt.Errorf("failed to read last position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO playlist_tracks (playlist_id, position, track_id) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, trackID := range trackIDs {
		if _, err := stmt.ExecContext(ctx, playlistID, last+i+1, trackID); err != nil {
			return fmt.Errorf("failed to add track %s: %w", trackID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist tracks: %w", err)
	}
	return nil
}

// Tracks returns the playlist entries in order, duplicates included.
func (r *PlaylistRepository) Tracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	query := `
		SELECT t.id, t.path, t.title, t.artist, t.people, t.album, t.version, t.genre, t.duration, t.file_size
		FROM playlist_tracks pt
		JOIN tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
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

// Export loads the playlist and its entries.
func (r *PlaylistRepository) Export(ctx context.Context, nameOrID string) (*models.PlaylistExport, error) {
	playlist, err := r.Resolve(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	tracks, err := r.Tracks(ctx, playlist.ID)
	if err != nil {
		return nil, err
	}

	return &models.PlaylistExport{Playlist: *playlist, Tracks: tracks}, nil
}

// RemoveTracks removes every occurrence of the given track IDs from the playlist in one transaction
// and returns the number of entries removed.
func (r *PlaylistRepository) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) (int64, error) {
	if len(trackIDs) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchPlaylist(ctx, tx, playlistID); err != nil {
		return 0, err
	}

	args := make([]any, 0, len(trackIDs)+1)
	args = append(args, playlistID)
	for _, id := range trackIDs {
		args = append(args, id)
	}

	query := `DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id IN (` + placeholders(len(trackIDs)) + `)`
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to remove playlist tracks: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit playlist track removal: %w", err)
	}
	return removed, nil
}

// touchPlaylist bumps updated_at and fails when the playlist does not exist.
func touchPlaylist(ctx context.Context, tx *sql.Tx, playlistID string) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE playlists SET updated_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), playlistID)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return nil
}

// scanOne scans a single row into a [models.Playlist]
func (r *PlaylistRepository) scanOne(row *sql.Row, key string) (*models.Playlist, error) {
	playlist, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, key)
	}
	return playlist, err
}

func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	var p models.Playlist
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.TrackCount, &p.Size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return &p, nil
}
