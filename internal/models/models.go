// package models defines the data model for the playlist toolkit
package models

import (
	"fmt"
	"strings"
	"time"
)

// Track represents a single audio file in the library.
type Track struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	People   string `json:"people,omitempty"` // Newline separated performers
	Album    string `json:"album,omitempty"`
	Version  string `json:"version,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Duration int    `json:"duration"`  // Duration in seconds
	FileSize int64  `json:"file_size"` // Size on disk in bytes
}

// Attr gets an attribute of a track by its name. Accepted names are:
//
//	"path" "title" "artist" "people" "album" "version" "genre" "duration" "size"
//
// String attributes are returned as string, "duration" and "size" as int64.
func (t *Track) Attr(attr string) any {
	switch attr {
	case "path":
		return t.Path
	case "title":
		return t.Title
	case "artist":
		return t.Artist
	case "people":
		return t.People
	case "album":
		return t.Album
	case "version":
		return t.Version
	case "genre":
		return t.Genre
	case "duration":
		return int64(t.Duration)
	case "size":
		return t.FileSize
	}
	return nil
}

// PeopleDisplay joins the performers with ", ", falling back to the artist.
func (t Track) PeopleDisplay() string {
	people := strings.TrimSpace(t.People)
	if people == "" {
		return t.Artist
	}
	return strings.Join(strings.Split(people, "\n"), ", ")
}

// TitleWithVersion appends the version in parentheses when one is set.
func (t Track) TitleWithVersion() string {
	if t.Version == "" {
		return t.Title
	}
	return fmt.Sprintf("%s (%s)", t.Title, t.Version)
}

// DisplayTitle is the "<people> - <title version>" string shown in playlists.
func (t Track) DisplayTitle() string {
	return fmt.Sprintf("%s - %s", t.PeopleDisplay(), t.TitleWithVersion())
}

func (t Track) String() string {
	return fmt.Sprintf("%s (%ds)", t.DisplayTitle(), t.Duration)
}

// Playlist represents playlist metadata with aggregate figures.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Size        int64  `json:"size"` // Aggregate size of all entries in bytes
}

// PlaylistExport represents a playlist with its ordered entries.
//
// Tracks may contain the same track more than once.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// TotalSize sums the file size of every entry.
func (p *PlaylistExport) TotalSize() int64 {
	var size int64
	for _, t := range p.Tracks {
		size += t.FileSize
	}
	return size
}

// TotalDuration sums the duration of every entry in seconds.
func (p *PlaylistExport) TotalDuration() int {
	var d int
	for _, t := range p.Tracks {
		d += t.Duration
	}
	return d
}

// SavedSearch is a named library query that can be exported as a playlist.
type SavedSearch struct {
	Name    string `json:"name" yaml:"name"`
	Query   string `json:"query" yaml:"query"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// Validate checks required fields.
func (s SavedSearch) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("saved search name is required")
	}
	if strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("saved search name %q must not contain path separators", s.Name)
	}
	if strings.TrimSpace(s.Query) == "" {
		return fmt.Errorf("saved search %q has an empty query", s.Name)
	}
	return nil
}

// RunStatus is the lifecycle state of a [TruncationRun].
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// TruncationRun records one attempt to shrink a playlist to a target size.
type TruncationRun struct {
	ID           string     `json:"id"`
	PlaylistID   string     `json:"playlist_id"`
	PlaylistName string     `json:"playlist_name"`
	Status       RunStatus  `json:"status"`
	TargetSize   int64      `json:"target_size"`
	InitialSize  int64      `json:"initial_size"`
	FinalSize    int64      `json:"final_size"`
	Removed      int        `json:"tracks_removed"`
	Seed         uint64     `json:"seed"`
	DryRun       bool       `json:"dry_run"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Validate checks required fields.
func (r *TruncationRun) Validate() error {
	if r.PlaylistID == "" {
		return fmt.Errorf("playlist ID is required")
	}
	if r.TargetSize < 0 {
		return fmt.Errorf("target size must not be negative")
	}
	switch r.Status {
	case RunRunning, RunCompleted, RunFailed, RunCanceled:
	default:
		return fmt.Errorf("invalid status %q", r.Status)
	}
	return nil
}

// Finish marks the run as ended with the given status at the given time.
func (r *TruncationRun) Finish(status RunStatus, err error, at time.Time) {
	r.Status = status
	r.CompletedAt = &at
	if err != nil {
		r.Error = err.Error()
	}
}
