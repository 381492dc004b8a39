// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/desertthunder/plx/internal/models"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// LibraryFile describes a fake audio file created by [WriteLibrary].
type LibraryFile struct {
	Path string // Relative to the library root
	Size int
}

// WriteLibrary creates files of the given sizes under root and returns their absolute paths.
func WriteLibrary(t *testing.T, root string, files ...LibraryFile) []string {
	t.Helper()
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(root, f.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", path, err)
		}
		if err := os.WriteFile(path, make([]byte, f.Size), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", path, err)
		}
		paths = append(paths, path)
	}
	return paths
}

// MakeTracks builds tracks with sequential IDs for the given file sizes.
func MakeTracks(sizes ...int64) []models.Track {
	tracks := make([]models.Track, 0, len(sizes))
	for i, size := range sizes {
		id := string(rune('a' + i))
		tracks = append(tracks, models.Track{
			ID:       id,
			Path:     filepath.Join("/music", id+".mp3"),
			Title:    "Track " + id,
			Artist:   "Artist",
			Duration: 60 * (i + 1),
			FileSize: size,
		})
	}
	return tracks
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MP3FrameDuration is the length of one frame written by [TaggedMP3].
const MP3FrameDuration = 1152 * time.Second / 44100

// TaggedMP3 returns an MP3 file made of an ID3v2.3 tag holding the given text frames
// (for example "TIT2" for the title) followed by silent 128 kbps, 44.1 kHz MPEG-1 Layer III frames.
func TaggedMP3(frames map[string]string, audioFrames int) []byte {
	var body bytes.Buffer
	for id, text := range frames {
		data := append([]byte{0}, text...)
		body.WriteString(id)
		binary.Write(&body, binary.BigEndian, uint32(len(data)))
		body.Write([]byte{0, 0})
		body.Write(data)
	}

	var out bytes.Buffer
	if body.Len() > 0 {
		n := body.Len()
		out.WriteString("ID3")
		out.Write([]byte{3, 0, 0})
		out.Write([]byte{byte((n >> 21) & 0x7f), byte((n >> 14) & 0x7f), byte((n >> 7) & 0x7f), byte(n & 0x7f)})
		out.Write(body.Bytes())
	}

	frame := make([]byte, 144*128000/44100)
	copy(frame, []byte{0xff, 0xfb, 0x90, 0x00})
	for range audioFrames {
		out.Write(frame)
	}
	return out.Bytes()
}
