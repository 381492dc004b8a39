package query

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

func TestParseSavedFile(t *testing.T) {
	t.Run("reads query and name pairs", func(t *testing.T) {
		input := "artist:beatles\nBeatles\n\ngenre=jazz duration>300\nLong Jazz\n"

		searches, err := ParseSavedFile(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ParseSavedFile failed: %v", err)
		}
		if len(searches) != 2 {
			t.Fatalf("expected 2 searches, got %d", len(searches))
		}
		if searches[0].Name != "Beatles" || searches[0].Query != "artist:beatles" || !searches[0].Enabled {
			t.Errorf("unexpected first search: %+v", searches[0])
		}
		if searches[1].Name != "Long Jazz" || searches[1].Query != "genre:jazz duration>300" {
			t.Errorf("unexpected second search: %+v", searches[1])
		}
	})

	t.Run("text equality becomes a substring match", func(t *testing.T) {
		input := "genre=rock duration=180 title=Love\ Song
Rock
"

		searches, err := ParseSavedFile(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ParseSavedFile failed: %v", err)
		}
		if got, want := searches[0].Query, "genre:rock duration=180 title:Love\\ Song"; got != want {
			t.Errorf("Query = %q, want %q", got, want)
		}

		q := MustCompile(searches[0].Query)
		track := models.Track{Title: "My Love Song (Live)", Genre: "Hard Rock", Duration: 180}
		if !q.Match(track) {
			t.Errorf("%q should match %+v", searches[0].Query, track)
		}
		track.Duration = 181
		if q.Match(track) {
			t.Errorf("%q should keep the exact duration comparison", searches[0].Query)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		searches, err := ParseSavedFile(strings.NewReader(""))
		if err != nil {
			t.Fatalf("ParseSavedFile failed: %v", err)
		}
		if len(searches) != 0 {
			t.Errorf("expected no searches, got %d", len(searches))
		}
	})

	t.Run("query without name", func(t *testing.T) {
		_, err := ParseSavedFile(strings.NewReader("artist:beatles\nBeatles\ngenre:rock\n"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("name with separator", func(t *testing.T) {
		_, err := ParseSavedFile(strings.NewReader("artist:beatles\nrock/pop\n"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("invalid query", func(t *testing.T) {
		_, err := ParseSavedFile(strings.NewReader("mood:happy\nHappy\n"))
		if !errors.Is(err, shared.ErrInvalidQuery) {
			t.Errorf("expected ErrInvalidQuery, got %v", err)
		}
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "searches.yaml")
		doc := `searches:
  - name: Rock
    query: genre:rock
    enabled: true
  - name: Short
    query: duration<200
    enabled: false
`
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatal(err)
		}

		searches, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		if len(searches) != 2 {
			t.Fatalf("expected 2 searches, got %d", len(searches))
		}
		if searches[0].Name != "Rock" || !searches[0].Enabled {
			t.Errorf("unexpected first search: %+v", searches[0])
		}
		if searches[1].Name != "Short" || searches[1].Enabled {
			t.Errorf("unexpected second search: %+v", searches[1])
		}
	})

	t.Run("empty yaml", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yml")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}

		searches, err := LoadYAML(path)
		if err != nil {
			t.Fatalf("LoadYAML failed: %v", err)
		}
		if len(searches) != 0 {
			t.Errorf("expected no searches, got %d", len(searches))
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("searches: [\n"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadFile(path); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("plain text", func(t *testing.T) {
		path := filepath.Join(dir, "queries.saved")
		if err := os.WriteFile(path, []byte("beatles\nBeatles\n"), 0644); err != nil {
			t.Fatal(err)
		}

		searches, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		if len(searches) != 1 || searches[0].Name != "Beatles" {
			t.Errorf("unexpected searches: %+v", searches)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(dir, "missing.saved")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
