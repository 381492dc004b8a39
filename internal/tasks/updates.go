package tasks

import (
	"fmt"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, zero when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// PruneProgress is the Data of a [PruneTracks] update.
type PruneProgress struct {
	Remaining int     // Tracks still in the playlist
	SizeBytes int64   // Current playlist size
	Fraction  float64 // Share of the excess removed so far, in [0, 1]
}

// Operation phase enumeration
type Phase int

const (
	ScanFiles Phase = iota
	LoadPlaylist
	PruneTracks
	ApplyRemovals
	LoadSearches
	ExportSearch
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case ScanFiles:
		return "scan_files"
	case LoadPlaylist:
		return "load_playlist"
	case PruneTracks:
		return "prune_tracks"
	case ApplyRemovals:
		return "apply_removals"
	case LoadSearches:
		return "load_searches"
	case ExportSearch:
		return "export_search"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

func scanFileUpdate(step int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanFiles,
		Step:    step,
		Message: fmt.Sprintf("[%d] %s", step, path),
	}
}

func loadPlaylistUpdate(playlist *models.Playlist, entries, unique int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded playlist: %s (%d entries, %d tracks)", playlist.Name, entries, unique),
		Data:    playlist,
	}
}

func pruneUpdate(step, total int, p PruneProgress) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PruneTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Removed %d tracks, %s left", step, shared.FormatSize(p.SizeBytes)),
		Data:    p,
	}
}

func applyRemovalsUpdate(tracks int, dryRun bool) ProgressUpdate {
	msg := fmt.Sprintf("Removing %d tracks from playlist...", tracks)
	if dryRun {
		msg = fmt.Sprintf("Dry run: %d tracks would be removed", tracks)
	}
	return ProgressUpdate{
		Phase:   ApplyRemovals,
		Step:    1,
		Total:   1,
		Message: msg,
	}
}

func loadSearchesUpdate(searches, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadSearches,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Exporting %d saved searches over %d tracks...", searches, tracks),
	}
}

func exportCompletedUpdate(step, total int, name string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportSearch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, name, tracks),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportSearch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func writeManifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing manifest %s", path),
	}
}
