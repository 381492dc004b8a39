package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	tu "github.com/desertthunder/plx/internal/testing"
)

func newTestDB(t *testing.T) *Runner {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := shared.SaveConfig(configPath, shared.DefaultConfig()); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	return NewRunner(RunnerOpts{
		ConfigPath: configPath,
		DB:         db,
		Logger:     shared.NewLogger(&bytes.Buffer{}),
		Output:     &bytes.Buffer{},
	})
}

// run executes the CLI with args and returns what it printed.
func run(t *testing.T, r *Runner, args ...string) (string, error) {
	t.Helper()
	out := r.output.(*bytes.Buffer)
	out.Reset()
	err := r.app().Run(context.Background(), append([]string{"plx"}, args...))
	return out.String(), err
}

func mustRun(t *testing.T, r *Runner, args ...string) string {
	t.Helper()
	out, err := run(t, r, args...)
	if err != nil {
		t.Fatalf("plx %s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.db != nil || runner.engine != nil {
				t.Error("expected database to be opened lazily")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with database wires repositories", func(t *testing.T) {
			runner := newTestDB(t)

			if runner.tracks == nil || runner.playlists == nil || runner.searches == nil || runner.runs == nil {
				t.Error("expected repositories to be set")
			}
			if runner.engine == nil {
				t.Error("expected engine to be set")
			}
			if err := runner.open(); err != nil || runner.ownsDB {
				t.Errorf("open should keep the provided database, got err=%v owns=%v", err, runner.ownsDB)
			}
		})

		t.Run("opens the configured database", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(t.TempDir(), "plx.db")
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(&bytes.Buffer{})})

			if err := runner.open(); err != nil {
				t.Fatalf("open failed: %v", err)
			}
			if !runner.ownsDB || runner.engine == nil {
				t.Error("expected runner to own a wired database")
			}
			if err := runner.after(context.Background(), nil); err != nil {
				t.Errorf("after failed: %v", err)
			}
			tu.AssertFileExists(t, config.Database.Path)
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "library", "playlist", "search", "export", "tui"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil || cmd.Name != want[i] {
				t.Errorf("command at index %d: expected %s, got %+v", i, want[i], cmd)
			}
		}
	})

	t.Run("printProgress", func(t *testing.T) {
		updates := func(n int) chan tasks.ProgressUpdate {
			ch := make(chan tasks.ProgressUpdate, n+1)
			for i := range n {
				ch <- tasks.ProgressUpdate{Phase: tasks.ScanFiles, Step: i, Message: fmt.Sprintf("file %d", i)}
			}
			ch <- tasks.ProgressUpdate{Phase: tasks.WriteManifest, Message: "manifest"}
			close(ch)
			return ch
		}

		t.Run("throttles updates within a phase", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			<-runner.printProgress(updates(100))

			lines := strings.Count(output.String(), "\n")
			if lines >= 101 || !strings.Contains(output.String(), "file 0") || !strings.Contains(output.String(), "manifest") {
				t.Errorf("expected first update of each phase only, got %d lines:\n%s", lines, output.String())
			}
		})

		t.Run("verbose prints everything", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})
			runner.verbose = true

			<-runner.printProgress(updates(100))

			if lines := strings.Count(output.String(), "\n"); lines != 101 {
				t.Errorf("expected 101 lines, got %d", lines)
			}
		})
	})
}

func TestBefore(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	config := shared.DefaultConfig()
	config.Truncate.Seed = 99
	if err := shared.SaveConfig(configPath, config); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Run("loads config and verbosity", func(t *testing.T) {
		db := newTestDB(t).db
		runner := NewRunner(RunnerOpts{DB: db, Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})

		if _, err := run(t, runner, "--config", configPath, "--verbose", "playlist", "list"); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if runner.config.Truncate.Seed != 99 || runner.configPath != configPath {
			t.Errorf("expected config from %s, got seed %d", configPath, runner.config.Truncate.Seed)
		}
		if !runner.verbose {
			t.Error("expected verbose mode")
		}
	})

	t.Run("missing config uses defaults", func(t *testing.T) {
		db := newTestDB(t).db
		runner := NewRunner(RunnerOpts{DB: db, Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})

		if _, err := run(t, runner, "--config", filepath.Join(dir, "missing.toml"), "playlist", "list"); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if runner.config.Truncate.Seed != 0 {
			t.Errorf("expected default config, got seed %d", runner.config.Truncate.Seed)
		}
	})

	t.Run("invalid config fails", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.toml")
		if err := os.WriteFile(bad, []byte("[database]\npath = \"\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(&bytes.Buffer{})})

		if _, err := run(t, runner, "--config", bad, "playlist", "list"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestCommands(t *testing.T) {
	root := t.TempDir()
	tu.WriteLibrary(t, root,
		tu.LibraryFile{Path: "rock/Band - Anthem.mp3", Size: 3 * int(shared.BytesPerMB)},
		tu.LibraryFile{Path: "rock/Band - Ballad.mp3", Size: 2 * int(shared.BytesPerMB)},
		tu.LibraryFile{Path: "jazz/Quartet - Cool.flac", Size: 4 * int(shared.BytesPerMB)},
		tu.LibraryFile{Path: "notes.txt", Size: 10},
	)

	r := newTestDB(t)

	t.Run("setup", func(t *testing.T) {
		out := mustRun(t, r, "setup")
		if !strings.Contains(out, "Database ready") || !strings.Contains(out, "plx library scan") {
			t.Errorf("unexpected setup output:\n%s", out)
		}
	})

	t.Run("library", func(t *testing.T) {
		out := mustRun(t, r, "library", "scan", root)
		if !strings.Contains(out, "Scanned 3 tracks") || !strings.Contains(out, "Skipped 1 files") {
			t.Errorf("unexpected scan output:\n%s", out)
		}

		out = mustRun(t, r, "library", "list", "--query", "album:jazz")
		if !strings.Contains(out, "Quartet - Cool") || strings.Contains(out, "Anthem") {
			t.Errorf("unexpected list output:\n%s", out)
		}

		if _, err := run(t, r, "library", "list", "--query", "mood:happy"); !errors.Is(err, shared.ErrInvalidQuery) {
			t.Errorf("expected ErrInvalidQuery, got %v", err)
		}
		if _, err := run(t, r, "library", "scan"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("playlist", func(t *testing.T) {
		mustRun(t, r, "playlist", "create", "--description", "Loud", "Mix")
		if _, err := run(t, r, "playlist", "create", "Mix"); !errors.Is(err, shared.ErrDuplicateName) {
			t.Errorf("expected ErrDuplicateName, got %v", err)
		}

		out := mustRun(t, r, "playlist", "add", "--query", "album:rock", "Mix")
		if !strings.Contains(out, "Added 2 tracks") {
			t.Errorf("unexpected add output:\n%s", out)
		}

		out = mustRun(t, r, "playlist", "size", "Mix")
		if !strings.Contains(out, "Mix: 5 MB") {
			t.Errorf("unexpected size output:\n%s", out)
		}

		out = mustRun(t, r, "playlist", "show", "--format", "m3u", "Mix")
		if !strings.HasPrefix(out, "#EXTM3U\n") || !strings.Contains(out, filepath.Join(root, "rock", "Band - Anthem.mp3")) {
			t.Errorf("unexpected m3u output:\n%s", out)
		}

		if _, err := run(t, r, "playlist", "show", "--format", "xml", "Mix"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
		if _, err := run(t, r, "playlist", "truncate", "Mix"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument without --size, got %v", err)
		}
		if _, err := run(t, r, "playlist", "size", "Nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("truncate", func(t *testing.T) {
		out := mustRun(t, r, "playlist", "truncate", "--size", "3", "--dry-run", "Mix")
		if !strings.Contains(out, "Dry Run Complete") {
			t.Errorf("unexpected dry run output:\n%s", out)
		}
		if out := mustRun(t, r, "playlist", "size", "Mix"); !strings.Contains(out, "Mix: 5 MB") {
			t.Errorf("dry run changed the playlist:\n%s", out)
		}

		out = mustRun(t, r, "playlist", "truncate", "--size", "3", "--seed", "9", "Mix")
		if !strings.Contains(out, "Truncation Complete!") || !strings.Contains(out, "Removed: 1 tracks") || !strings.Contains(out, "Seed: 9") {
			t.Errorf("unexpected truncate output:\n%s", out)
		}

		out = mustRun(t, r, "playlist", "history", "Mix")
		if strings.Count(out, "completed") != 2 || !strings.Contains(out, "(dry run)") {
			t.Errorf("unexpected history output:\n%s", out)
		}

		if _, err := run(t, r, "playlist", "truncate", "--size=-1", "Mix"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("search", func(t *testing.T) {
		mustRun(t, r, "search", "add", "Jazz", "album:jazz")
		mustRun(t, r, "search", "add", "--disabled", "Rock", "album:rock")
		if _, err := run(t, r, "search", "add", "Bad", "mood:happy"); !errors.Is(err, shared.ErrInvalidQuery) {
			t.Errorf("expected ErrInvalidQuery, got %v", err)
		}

		out := mustRun(t, r, "search", "list")
		if !strings.Contains(out, "[✓] Jazz") || !strings.Contains(out, "[ ] Rock") || !strings.Contains(out, "1 tracks") {
			t.Errorf("unexpected search list:\n%s", out)
		}

		file := filepath.Join(t.TempDir(), "searches.yaml")
		yaml := "searches:\n  - name: Everything\n    query: path:/\n    enabled: true\n"
		if err := os.WriteFile(file, []byte(yaml), 0644); err != nil {
			t.Fatal(err)
		}
		if out := mustRun(t, r, "search", "import", file); !strings.Contains(out, "Imported 1 saved searches") {
			t.Errorf("unexpected import output:\n%s", out)
		}

		mustRun(t, r, "search", "disable", "Everything")
		if _, err := run(t, r, "search", "enable", "Blues"); !errors.Is(err, shared.ErrSearchNotFound) {
			t.Errorf("expected ErrSearchNotFound, got %v", err)
		}
	})

	t.Run("export", func(t *testing.T) {
		if _, err := run(t, r, "export", "searches"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument without a folder, got %v", err)
		}

		dir := filepath.Join(t.TempDir(), "playlists")
		out := mustRun(t, r, "export", "searches", "--dir", dir)
		if !strings.Contains(out, "Exported: 1/1 searches") {
			t.Errorf("unexpected export output:\n%s", out)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "Jazz.m3u"))

		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if config.Export.LastFolder != dir {
			t.Errorf("expected last folder %s, got %s", dir, config.Export.LastFolder)
		}

		out = mustRun(t, r, "export", "searches", "--name", "Rock")
		if !strings.Contains(out, "Rock: 2 tracks") {
			t.Errorf("expected export to the last folder, got:\n%s", out)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "Rock.m3u"))
	})

	t.Run("delete", func(t *testing.T) {
		mustRun(t, r, "search", "delete", "Rock")
		mustRun(t, r, "playlist", "delete", "Mix")
		if out := mustRun(t, r, "playlist", "list"); !strings.Contains(out, "No playlists yet") {
			t.Errorf("expected no playlists, got:\n%s", out)
		}
	})
}
