package tasks

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// AudioExtensions are the file extensions picked up by [Engine.ScanLibrary].
var AudioExtensions = []string{".mp3", ".flac", ".ogg", ".opus", ".m4a", ".wav"}

var artistTitleInFilename = regexp.MustCompile(`^(?:\d+\.\s+|\d+\s+-\s+)?(.+?)\s+-\s+(.+)$`)

// ScanResult summarizes a library scan.
type ScanResult struct {
	Root    string // Absolute library root
	Tracks  int    // Audio files stored
	Bytes   int64  // Combined size of the stored files
	Skipped int    // Files ignored because of their extension
}

// ScanLibrary walks root and stores every audio file found, keyed by its absolute path.
//
// Tags and duration are read with [ReadTrack]. Untagged files take artist and title from
// "<artist> - <title>" file names, optionally prefixed by a track number, otherwise the file
// name becomes the title. The parent directory becomes the album.
func (e *Engine) ScanLibrary(ctx context.Context, root string, progress chan<- ProgressUpdate) (*ScanResult, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: library root", shared.ErrMissingArgument)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", shared.ErrInvalidArgument, abs)
	}

	result := &ScanResult{Root: abs}
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !IsAudioFile(path) {
			result.Skipped++
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		track := ReadTrack(path, fi.Size())
		if err := e.tracks.Upsert(ctx, &track); err != nil {
			return err
		}

		result.Tracks++
		result.Bytes += track.FileSize
		e.sendProgress(progress, scanFileUpdate(result.Tracks, path))
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("library scan failed after %d tracks: %w", result.Tracks, err)
	}

	return result, nil
}

// IsAudioFile reports whether path has one of the [AudioExtensions].
func IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, audio := range AudioExtensions {
		if ext == audio {
			return true
		}
	}
	return false
}

// TrackFromPath builds a track for the file at path, inferring tags from the file name.
func TrackFromPath(path string, size int64) models.Track {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	track := models.Track{Path: path, Title: name, FileSize: size}
	if match := artistTitleInFilename.FindStringSubmatch(name); match != nil {
		track.Artist, track.Title = match[1], match[2]
	}
	if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != string(filepath.Separator) {
		track.Album = dir
	}
	return track
}
