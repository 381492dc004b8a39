package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	th "github.com/desertthunder/plx/internal/testing"
)

func exportLibrary() *fakeTrackStore {
	return &fakeTrackStore{tracks: []models.Track{
		{ID: "1", Path: "/music/rock/a.mp3", Title: "Anthem", Artist: "Band", Genre: "Rock", Duration: 200, FileSize: 100},
		{ID: "2", Path: "/music/rock/b.mp3", Title: "Ballad", Artist: "Band", Genre: "Rock", Duration: 300, FileSize: 200},
		{ID: "3", Path: "/music/jazz/c.flac", Title: "Cool", Artist: "Quartet", Genre: "Jazz", Duration: 400, FileSize: 400},
	}}
}

func TestExportSearches(t *testing.T) {
	ctx := context.Background()

	t.Run("exports enabled searches", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "playlists")
		searches := &fakeSearchStore{searches: []models.SavedSearch{
			{Name: "Rock", Query: "genre:rock", Enabled: true},
			{Name: "Jazz", Query: "genre:jazz", Enabled: true},
			{Name: "Everything", Query: "path:/music", Enabled: false},
		}}
		e := NewEngine(exportLibrary(), nil, searches, nil)
		progress := make(chan ProgressUpdate, 10)

		result, err := e.ExportSearches(ctx, progress, ExportOpts{OutputDir: dir, Workers: 2, Absolute: true})
		if err != nil {
			t.Fatalf("ExportSearches failed: %v", err)
		}

		if result.Total != 2 || result.Succeeded != 2 || result.Failed != 0 {
			t.Errorf("unexpected counts %+v", result)
		}
		if result.Results[0].Search.Name != "Jazz" || result.Results[1].Search.Name != "Rock" {
			t.Errorf("results should be sorted by name, got %+v", result.Results)
		}
		if result.Results[1].Tracks != 2 || result.Results[1].Size != 300 {
			t.Errorf("unexpected Rock result %+v", result.Results[1])
		}

		rock := th.MustReadFile(t, filepath.Join(dir, "Rock.m3u"))
		want := "#EXTM3U\n#EXTINF:200,Band - Anthem\n/music/rock/a.mp3\n#EXTINF:300,Band - Ballad\n/music/rock/b.mp3\n"
		if rock != want {
			t.Errorf("Rock.m3u =\n%s\nwant:\n%s", rock, want)
		}
		if _, err := os.Stat(filepath.Join(dir, "Everything.m3u")); !os.IsNotExist(err) {
			t.Error("disabled search should not be exported")
		}

		var manifest formatter.Manifest
		if err := json.Unmarshal([]byte(th.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
			t.Fatalf("invalid manifest: %v", err)
		}
		if manifest.Succeeded != 2 || len(manifest.Entries) != 2 || manifest.OutputDir != dir {
			t.Errorf("unexpected manifest %+v", manifest)
		}

		updates := drain(progress)
		if updates[0].Phase != LoadSearches || updates[len(updates)-1].Phase != WriteManifest {
			t.Errorf("unexpected progress phases %+v", updates)
		}
	})

	t.Run("relative paths", func(t *testing.T) {
		root := t.TempDir()
		dir := filepath.Join(root, "playlists")
		library := &fakeTrackStore{tracks: []models.Track{
			{ID: "1", Path: filepath.Join(root, "rock", "a.mp3"), Title: "Anthem", Artist: "Band", Genre: "Rock"},
		}}
		searches := &fakeSearchStore{searches: []models.SavedSearch{{Name: "Rock", Query: "genre:rock", Enabled: true}}}
		e := NewEngine(library, nil, searches, nil)

		if _, err := e.ExportSearches(ctx, nil, ExportOpts{OutputDir: dir}); err != nil {
			t.Fatalf("ExportSearches failed: %v", err)
		}

		content := th.MustReadFile(t, filepath.Join(dir, "Rock.m3u"))
		if !strings.Contains(content, "\n"+filepath.Join("..", "rock", "a.mp3")+"\n") {
			t.Errorf("expected relative path, got:\n%s", content)
		}
	})

	t.Run("named searches ignore the enabled flag", func(t *testing.T) {
		dir := t.TempDir()
		searches := &fakeSearchStore{searches: []models.SavedSearch{
			{Name: "Rock", Query: "genre:rock", Enabled: true},
			{Name: "Jazz", Query: "genre:jazz", Enabled: false},
		}}
		e := NewEngine(exportLibrary(), nil, searches, nil)

		result, err := e.ExportSearches(ctx, nil, ExportOpts{OutputDir: dir, Names: []string{"Jazz"}})
		if err != nil {
			t.Fatalf("ExportSearches failed: %v", err)
		}
		if result.Total != 1 || result.Results[0].Search.Name != "Jazz" {
			t.Errorf("unexpected result %+v", result)
		}
		th.AssertFileExists(t, filepath.Join(dir, "Jazz.m3u"))

		if _, err := e.ExportSearches(ctx, nil, ExportOpts{OutputDir: dir, Names: []string{"Blues"}}); !errors.Is(err, shared.ErrSearchNotFound) {
			t.Errorf("expected ErrSearchNotFound, got %v", err)
		}
	})

	t.Run("failures are recorded per search", func(t *testing.T) {
		dir := t.TempDir()
		searches := &fakeSearchStore{searches: []models.SavedSearch{
			{Name: "Rock", Query: "genre:rock", Enabled: true},
			{Name: "Broken", Query: "mood:happy", Enabled: true},
		}}
		e := NewEngine(exportLibrary(), nil, searches, nil)

		result, err := e.ExportSearches(ctx, nil, ExportOpts{OutputDir: dir, Workers: 20})
		if err != nil {
			t.Fatalf("ExportSearches failed: %v", err)
		}
		if result.Succeeded != 1 || result.Failed != 1 {
			t.Errorf("expected 1 success and 1 failure, got %+v", result)
		}
		if !errors.Is(result.Results[0].Error, shared.ErrInvalidQuery) {
			t.Errorf("expected invalid query error for Broken, got %v", result.Results[0].Error)
		}

		manifest := th.MustReadFile(t, result.ManifestPath)
		if !strings.Contains(manifest, `"error"`) {
			t.Errorf("manifest should record the failure, got %s", manifest)
		}
	})

	t.Run("no searches", func(t *testing.T) {
		dir := t.TempDir()
		e := NewEngine(exportLibrary(), nil, &fakeSearchStore{}, nil)

		result, err := e.ExportSearches(ctx, nil, ExportOpts{OutputDir: dir})
		if err != nil {
			t.Fatalf("ExportSearches failed: %v", err)
		}
		if result.Total != 0 {
			t.Errorf("expected nothing exported, got %+v", result)
		}
		th.AssertFileExists(t, filepath.Join(dir, formatter.ManifestFile))
	})

	t.Run("errors", func(t *testing.T) {
		e := NewEngine(exportLibrary(), nil, &fakeSearchStore{}, nil)
		if _, err := e.ExportSearches(ctx, nil, ExportOpts{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}

		failing := NewEngine(exportLibrary(), nil, &fakeSearchStore{err: errors.New("no such table")}, nil)
		if _, err := failing.ExportSearches(ctx, nil, ExportOpts{OutputDir: t.TempDir()}); err == nil {
			t.Error("expected search store error")
		}

		library := &fakeTrackStore{listErr: errors.New("no such table")}
		searches := &fakeSearchStore{searches: []models.SavedSearch{{Name: "Rock", Query: "rock", Enabled: true}}}
		if _, err := NewEngine(library, nil, searches, nil).ExportSearches(ctx, nil, ExportOpts{OutputDir: t.TempDir()}); err == nil {
			t.Error("expected track store error")
		}

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := NewEngine(exportLibrary(), nil, searches, nil).ExportSearches(canceled, nil, ExportOpts{OutputDir: t.TempDir()}); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
