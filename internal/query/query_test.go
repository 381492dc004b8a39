package query

import (
	"errors"
	"testing"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

var library = []models.Track{
	{ID: "1", Path: "/music/beatles/something.mp3", Title: "Something", Artist: "The Beatles", Album: "Abbey Road", Genre: "Rock", Duration: 182, FileSize: 4 * shared.BytesPerMB},
	{ID: "2", Path: "/music/beatles/come together.mp3", Title: "Come Together", Artist: "The Beatles", Album: "Abbey Road", Genre: "Rock", Duration: 259, FileSize: 6 * shared.BytesPerMB},
	{ID: "3", Path: "/music/miles/so what.flac", Title: "So What", Artist: "Miles Davis", People: "Miles Davis\nJohn Coltrane", Album: "Kind of Blue", Genre: "Jazz", Duration: 545, FileSize: 40 * shared.BytesPerMB},
	{ID: "4", Path: "/music/miles/blue in green.flac", Title: "Blue in Green", Version: "Take 2", Artist: "Miles Davis", Album: "Kind of Blue", Genre: "Jazz", Duration: 337, FileSize: 25 * shared.BytesPerMB},
}

func ids(tracks []models.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"unkeyed artist", "beatles", []string{"1", "2"}},
		{"unkeyed is case insensitive", "BEATLES", []string{"1", "2"}},
		{"unkeyed album", "blue", []string{"3", "4"}},
		{"unkeyed people", "coltrane", []string{"3"}},
		{"keyed title", "title:what", []string{"3"}},
		{"keyed does not search other fields", "title:beatles", []string{}},
		{"wildcard", "title:s*g", []string{"1"}},
		{"escaped space", `title:come\ together`, []string{"2"}},
		{"multiple keywords", "beatles title:come", []string{"2"}},
		{"equals", "genre=jazz", []string{"3", "4"}},
		{"equals is not substring", "genre=jaz", []string{}},
		{"version", "version:take", []string{"4"}},
		{"path", "path:/music/miles", []string{"3", "4"}},
		{"regex characters are literal", "path:.flac", []string{"3", "4"}},
		{"duration less", "duration<200", []string{"1"}},
		{"duration greater", "duration>300", []string{"3", "4"}},
		{"duration equal", "duration=259", []string{"2"}},
		{"size in bytes", "size>5000000", []string{"2", "3", "4"}},
		{"size with unit", "size>30MiB", []string{"3"}},
		{"property is case insensitive", "TITLE:so", []string{"1", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Compile(tt.query)
			if err != nil {
				t.Fatalf("Compile(%q) failed: %v", tt.query, err)
			}

			got := ids(q.Filter(library))
			if !equalIDs(got, tt.want) {
				t.Errorf("Compile(%q) matched %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"unknown property", "mood:happy"},
		{"ordering on text", "title>a"},
		{"bad number", "duration>long"},
		{"bad size", "size>lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.query)
			if !errors.Is(err, shared.ErrInvalidQuery) {
				t.Errorf("Compile(%q) error = %v, want ErrInvalidQuery", tt.query, err)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	t.Run("String returns source", func(t *testing.T) {
		q := MustCompile("  artist:miles ")
		if q.String() != "artist:miles" {
			t.Errorf("String() = %q", q.String())
		}
	})

	t.Run("nil query matches nothing", func(t *testing.T) {
		var q *Query
		if q.Match(library[0]) {
			t.Error("nil query should not match")
		}
	})

	t.Run("Filter keeps order", func(t *testing.T) {
		q := MustCompile("rock")
		got := ids(q.Filter([]models.Track{library[1], library[0]}))
		if !equalIDs(got, []string{"2", "1"}) {
			t.Errorf("Filter() = %v", got)
		}
	})

	t.Run("MustCompile panics on bad query", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		MustCompile("mood:happy")
	})
}
