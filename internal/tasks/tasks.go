// package tasks implements the long-running library operations behind the CLI.
//
// The core abstraction is Engine, which scans the library, sizes and truncates playlists and exports saved searches.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"

	"github.com/desertthunder/plx/internal/models"
)

// TrackStore persists library tracks.
type TrackStore interface {
	Upsert(ctx context.Context, track *models.Track) error
	List(ctx context.Context) ([]models.Track, error)
}

// PlaylistStore reads playlists and removes entries from them.
type PlaylistStore interface {
	Resolve(ctx context.Context, nameOrID string) (*models.Playlist, error)
	Tracks(ctx context.Context, playlistID string) ([]models.Track, error)
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) (int64, error)
}

// SearchStore reads saved searches.
type SearchStore interface {
	List(ctx context.Context) ([]models.SavedSearch, error)
	ListEnabled(ctx context.Context) ([]models.SavedSearch, error)
}

// RunStore records truncation history.
type RunStore interface {
	Create(ctx context.Context, run *models.TruncationRun) error
	Update(ctx context.Context, run *models.TruncationRun) error
}

// Engine runs library operations against the configured stores.
type Engine struct {
	tracks    TrackStore
	playlists PlaylistStore
	searches  SearchStore
	runs      RunStore
}

// NewEngine creates a new Engine. runs may be nil, in which case truncations are not recorded.
func NewEngine(tracks TrackStore, playlists PlaylistStore, searches SearchStore, runs RunStore) *Engine {
	return &Engine{
		tracks:    tracks,
		playlists: playlists,
		searches:  searches,
		runs:      runs,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
