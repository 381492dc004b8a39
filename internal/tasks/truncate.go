package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/prune"
	"github.com/desertthunder/plx/internal/shared"
)

// SizeReport describes the on-disk size of a playlist.
type SizeReport struct {
	Playlist  models.Playlist
	Entries   int   // Playlist entries, duplicates included
	Unique    int   // Distinct tracks
	Bytes     int64 // Sum of entry sizes, duplicates counted every time
	Megabytes int64 // Bytes in whole megabytes, rounded down
	Duration  int   // Total duration in seconds
}

// PlaylistSize sums the size of every entry of the playlist.
func (e *Engine) PlaylistSize(ctx context.Context, nameOrID string) (*SizeReport, error) {
	playlist, err := e.playlists.Resolve(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	tracks, err := e.playlists.Tracks(ctx, playlist.ID)
	if err != nil {
		return nil, err
	}

	export := models.PlaylistExport{Playlist: *playlist, Tracks: tracks}
	items, _ := collapse(tracks)
	bytes := export.TotalSize()

	return &SizeReport{
		Playlist:  *playlist,
		Entries:   len(tracks),
		Unique:    len(items),
		Bytes:     bytes,
		Megabytes: shared.WholeMegabytes(bytes),
		Duration:  export.TotalDuration(),
	}, nil
}

// TruncateOpts configures [Engine.Truncate].
type TruncateOpts struct {
	TargetMB int64  // Size budget in megabytes (1 MB = 1024 * 1024 bytes)
	Seed     uint64 // Random seed; zero picks one at random
	DryRun   bool   // Report the removals without changing the playlist
}

// TruncateResult is the outcome of a truncation.
type TruncateResult struct {
	Playlist       models.Playlist
	TargetSize     int64
	InitialSize    int64
	FinalSize      int64
	Removed        []models.Track // Distinct tracks removed, in removal order
	EntriesRemoved int            // Playlist entries removed, duplicates included
	Seed           uint64         // Seed actually used, for reproducing the run
	DryRun         bool
	RunID          string // History entry, empty when history is disabled
}

// Truncate randomly removes tracks from the playlist until its size fits the target.
//
// A track that appears several times is one candidate whose size is counted once per entry,
// and removing it removes every entry. Removals are applied in a single transaction.
func (e *Engine) Truncate(ctx context.Context, nameOrID string, opts TruncateOpts, progress chan<- ProgressUpdate) (*TruncateResult, error) {
	if opts.TargetMB < 0 {
		return nil, fmt.Errorf("%w: target size must not be negative, got %d MB", shared.ErrInvalidArgument, opts.TargetMB)
	}

	playlist, err := e.playlists.Resolve(ctx, nameOrID)
	if err != nil {
		return nil, err
	}

	tracks, err := e.playlists.Tracks(ctx, playlist.ID)
	if err != nil {
		return nil, err
	}

	items, byID := collapse(tracks)
	e.sendProgress(progress, loadPlaylistUpdate(playlist, len(tracks), len(items)))

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	result := &TruncateResult{
		Playlist:   *playlist,
		TargetSize: shared.MegabytesToBytes(opts.TargetMB),
		Seed:       seed,
		DryRun:     opts.DryRun,
	}
	result.InitialSize = prune.TotalSize(items)

	run, err := e.startRun(ctx, result)
	if err != nil {
		return nil, err
	}

	pruner := prune.New(
		prune.WithSeed(seed),
		prune.WithProgress(func(remaining int, size int64) {
			p := PruneProgress{
				Remaining: remaining,
				SizeBytes: size,
				Fraction:  prune.Fraction(result.InitialSize, result.TargetSize, size),
			}
			e.sendProgress(progress, pruneUpdate(len(items)-remaining, len(items), p))
		}),
	)

	pruned, err := pruner.PruneContext(ctx, items, result.TargetSize)
	if err != nil {
		return nil, e.finishRun(ctx, run, result, err)
	}

	result.FinalSize = pruned.FinalSize
	ids := make([]string, 0, len(pruned.Removed))
	for _, item := range pruned.Removed {
		ids = append(ids, item.ID)
		result.Removed = append(result.Removed, byID[item.ID].track)
		result.EntriesRemoved += byID[item.ID].count
	}

	if len(ids) > 0 {
		e.sendProgress(progress, applyRemovalsUpdate(len(ids), opts.DryRun))
		if !opts.DryRun {
			if _, err := e.playlists.RemoveTracks(ctx, playlist.ID, ids); err != nil {
				return nil, e.finishRun(ctx, run, result, fmt.Errorf("failed to apply removals: %w", err))
			}
		}
	}

	if err := e.finishRun(ctx, run, result, nil); err != nil {
		return result, err
	}
	return result, nil
}

type entry struct {
	track models.Track
	count int
}

// collapse turns playlist entries into one prune item per distinct track, in order of first appearance.
func collapse(tracks []models.Track) ([]prune.Item, map[string]*entry) {
	byID := make(map[string]*entry, len(tracks))
	order := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if en, ok := byID[t.ID]; ok {
			en.count++
			continue
		}
		byID[t.ID] = &entry{track: t, count: 1}
		order = append(order, t.ID)
	}

	items := make([]prune.Item, 0, len(order))
	for _, id := range order {
		en := byID[id]
		items = append(items, prune.Item{ID: id, Size: en.track.FileSize * int64(en.count)})
	}
	return items, byID
}

func (e *Engine) startRun(ctx context.Context, result *TruncateResult) (*models.TruncationRun, error) {
	if e.runs == nil {
		return nil, nil
	}

	run := &models.TruncationRun{
		PlaylistID:   result.Playlist.ID,
		PlaylistName: result.Playlist.Name,
		Status:       models.RunRunning,
		TargetSize:   result.TargetSize,
		InitialSize:  result.InitialSize,
		Seed:         result.Seed,
		DryRun:       result.DryRun,
		StartedAt:    time.Now(),
	}
	if err := e.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record truncation: %w", err)
	}
	result.RunID = run.ID
	return run, nil
}

// finishRun stores the outcome of the run and returns cause, or the storage error when there is no cause.
func (e *Engine) finishRun(ctx context.Context, run *models.TruncationRun, result *TruncateResult, cause error) error {
	if run == nil {
		return cause
	}

	status := models.RunCompleted
	switch {
	case errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		status = models.RunCanceled
	case cause != nil:
		status = models.RunFailed
	}

	run.FinalSize = result.FinalSize
	run.Removed = len(result.Removed)
	run.Finish(status, cause, time.Now())

	if err := e.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		if cause != nil {
			return errors.Join(cause, err)
		}
		return fmt.Errorf("failed to record truncation: %w", err)
	}
	return cause
}

// Task is a truncation running in the background.
type Task struct {
	progress chan ProgressUpdate
	done     chan struct{}
	cancel   context.CancelFunc
	result   *TruncateResult
	err      error
}

// StartTruncate runs [Engine.Truncate] on its own goroutine.
//
// The progress channel is closed when the truncation ends.
func (e *Engine) StartTruncate(ctx context.Context, nameOrID string, opts TruncateOpts) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{
		progress: make(chan ProgressUpdate, 64),
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	go func() {
		t.result, t.err = e.Truncate(ctx, nameOrID, opts, t.progress)
		close(t.progress)
		close(t.done)
		cancel()
	}()

	return t
}

// Progress returns the update stream of the task.
func (t *Task) Progress() <-chan ProgressUpdate { return t.progress }

// Done is closed once the task has ended and its result is available.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel asks the task to stop. A task stopped before its removals are applied leaves the playlist unchanged.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the task ends and returns its outcome.
func (t *Task) Wait() (*TruncateResult, error) {
	<-t.done
	return t.result, t.err
}
