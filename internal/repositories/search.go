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

// SearchRepository persists saved searches keyed by name.
type SearchRepository struct {
	db *sql.DB
}

// NewSearchRepository creates a new SearchRepository with the given database connection
func NewSearchRepository(db *sql.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Save inserts the search or replaces the query and enabled flag of the search with the same name.
func (r *SearchRepository) Save(ctx context.Context, search models.SavedSearch) error {
	if err := search.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now()
	query := `
		INSERT INTO saved_searches (name, query, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET query = excluded.query, enabled = excluded.enabled, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, search.Name, search.Query, search.Enabled, now, now); err != nil {
		return fmt.Errorf("failed to save search %q: %w", search.Name, err)
	}
	return nil
}

// Get retrieves a saved search by name
func (r *SearchRepository) Get(ctx context.Context, name string) (*models.SavedSearch, error) {
	var s models.SavedSearch
	err := r.db.QueryRowContext(ctx,
		`SELECT name, query, enabled FROM saved_searches WHERE name = ?`, name,
	).Scan(&s.Name, &s.Query, &s.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSearchNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan search: %w", err)
	}
	return &s, nil
}

// List retrieves all saved searches ordered by name
func (r *SearchRepository) List(ctx context.Context) ([]models.SavedSearch, error) {
	return r.query(ctx, `SELECT name, query, enabled FROM saved_searches ORDER BY name ASC`)
}

// ListEnabled retrieves the enabled saved searches ordered by name
func (r *SearchRepository) ListEnabled(ctx context.Context) ([]models.SavedSearch, error) {
	return r.query(ctx, `SELECT name, query, enabled FROM saved_searches WHERE enabled = 1 ORDER BY name ASC`)
}

// SetEnabled toggles whether the named search is exported
func (r *SearchRepository) SetEnabled(ctx context.Context, name string, enabled bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE saved_searches SET enabled = ?, updated_at = ? WHERE name = ?`, enabled, time.Now(), name)
	if err != nil {
		return fmt.Errorf("failed to update search: %w", err)
	}
	return expectOne(result, shared.ErrSearchNotFound, name)
}

// Delete removes a saved search
func (r *SearchRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM saved_searches WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete search: %w", err)
	}
	return expectOne(result, shared.ErrSearchNotFound, name)
}

func (r *SearchRepository) query(ctx context.Context, query string, args ...any) ([]models.SavedSearch, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches: %w", err)
	}
	defer rows.Close()

	searches := []models.SavedSearch{}
	for rows.Next() {
		var s models.SavedSearch
		if err := rows.Scan(&s.Name, &s.Query, &s.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		searches = append(searches, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return searches, nil
}

func expectOne(result sql.Result, notFound error, key string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", notFound, key)
	}
	return nil
}
