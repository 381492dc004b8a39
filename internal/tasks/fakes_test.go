package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

type fakeTrackStore struct {
	mu      sync.Mutex
	tracks  []models.Track
	listErr error
	failOn  string
}

func (f *fakeTrackStore) Upsert(ctx context.Context, track *models.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && track.Path == f.failOn {
		return errors.New("disk I/O error")
	}
	track.ID = fmt.Sprintf("t%d", len(f.tracks)+1)
	f.tracks = append(f.tracks, *track)
	return nil
}

func (f *fakeTrackStore) List(ctx context.Context) ([]models.Track, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tracks, nil
}

type fakePlaylistStore struct {
	playlist  models.Playlist
	entries   []models.Track
	removeErr error
	removed   [][]string
	block     chan struct{}
}

func (f *fakePlaylistStore) Resolve(ctx context.Context, nameOrID string) (*models.Playlist, error) {
	if nameOrID != f.playlist.ID && nameOrID != f.playlist.Name {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, nameOrID)
	}
	p := f.playlist
	return &p, nil
}

func (f *fakePlaylistStore) Tracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if f.block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.block:
		}
	}
	return slices.Clone(f.entries), nil
}

func (f *fakePlaylistStore) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) (int64, error) {
	if f.removeErr != nil {
		return 0, f.removeErr
	}
	f.removed = append(f.removed, trackIDs)

	var n int64
	kept := f.entries[:0]
	for _, t := range f.entries {
		if slices.Contains(trackIDs, t.ID) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	f.entries = kept
	return n, nil
}

type fakeSearchStore struct {
	searches []models.SavedSearch
	err      error
}

func (f *fakeSearchStore) List(ctx context.Context) ([]models.SavedSearch, error) {
	return f.searches, f.err
}

func (f *fakeSearchStore) ListEnabled(ctx context.Context) ([]models.SavedSearch, error) {
	if f.err != nil {
		return nil, f.err
	}
	var enabled []models.SavedSearch
	for _, s := range f.searches {
		if s.Enabled {
			enabled = append(enabled, s)
		}
	}
	return enabled, nil
}

type fakeRunStore struct {
	runs      []models.TruncationRun
	createErr error
}

func (f *fakeRunStore) Create(ctx context.Context, run *models.TruncationRun) error {
	if f.createErr != nil {
		return f.createErr
	}
	run.ID = fmt.Sprintf("run%d", len(f.runs)+1)
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeRunStore) Update(ctx context.Context, run *models.TruncationRun) error {
	for i := range f.runs {
		if f.runs[i].ID == run.ID {
			f.runs[i] = *run
			return nil
		}
	}
	return errors.New("run not found")
}

// drain collects every update buffered in ch.
func drain(ch chan ProgressUpdate) []ProgressUpdate {
	var updates []ProgressUpdate
	for {
		select {
		case u := <-ch:
			updates = append(updates, u)
		default:
			return updates
		}
	}
}
