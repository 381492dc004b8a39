package tasks

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// ReadTrack builds a track for the audio file at path.
//
// Names inferred by [TrackFromPath] are replaced by the embedded tags (ID3, MP4, FLAC and Ogg
// comments) when present. People lists the distinct artist, album artist and composer.
// MP3 durations are measured from the audio frames; other formats use the ID3 length frame
// when there is one and are left at zero otherwise. Unreadable tags are not an error.
func ReadTrack(path string, size int64) models.Track {
	track := TrackFromPath(path, size)

	f, err := os.Open(path)
	if err != nil {
		return track
	}
	defer f.Close()

	if meta, err := tag.ReadFrom(f); err == nil {
		applyTags(&track, meta)
	}

	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			if seconds := mp3Duration(f); seconds > 0 {
				track.Duration = seconds
			}
		}
	}
	return track
}

func applyTags(track *models.Track, meta tag.Metadata) {
	if title := strings.TrimSpace(meta.Title()); title != "" {
		track.Title = title
	}
	if artist := strings.TrimSpace(meta.Artist()); artist != "" {
		track.Artist = artist
	}
	if album := strings.TrimSpace(meta.Album()); album != "" {
		track.Album = album
	}
	if genre := strings.TrimSpace(meta.Genre()); genre != "" {
		track.Genre = genre
	}

	var people []string
	for _, name := range []string{meta.Artist(), meta.AlbumArtist(), meta.Composer()} {
		name = strings.TrimSpace(name)
		if name != "" && !containsFold(people, name) {
			people = append(people, name)
		}
	}
	if len(people) > 0 {
		track.People = strings.Join(people, "\n")
	}

	// TLEN holds the length in milliseconds.
	if raw, ok := meta.Raw()["TLEN"].(string); ok {
		if ms, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && ms > 0 {
			track.Duration = int((time.Duration(ms) * time.Millisecond).Round(time.Second) / time.Second)
		}
	}
}

// mp3Duration sums the duration of every MPEG audio frame in r, in whole seconds.
func mp3Duration(r io.Reader) int {
	decoder := mp3.NewDecoder(r)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			break
		}
		total += frame.Duration()
	}
	return int(total.Round(time.Second) / time.Second)
}

func containsFold(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}
