package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/query"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate creates an empty playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	playlist, err := r.playlists.Create(ctx, name, cmd.String("description"))
	if err != nil {
		return err
	}

	r.logger.Debug("created playlist", "id", playlist.ID, "name", playlist.Name)
	r.writePlain("✓ Created playlist %s (%s)\n", playlist.Name, playlist.ID)
	return nil
}

// PlaylistAdd appends every library track matching a query to a playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	nameOrID := cmd.StringArg("playlist")
	if nameOrID == "" {
		return fmt.Errorf("%w: playlist name or ID", shared.ErrMissingArgument)
	}
	q, err := query.Compile(cmd.String("query"))
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	playlist, err := r.playlists.Resolve(ctx, nameOrID)
	if err != nil {
		return err
	}

	library, err := r.tracks.List(ctx)
	if err != nil {
		return err
	}

	matches := q.Filter(library)
	if len(matches) == 0 {
		r.writePlain("No tracks match %q\n", q.String())
		return nil
	}

	ids := make([]string, len(matches))
	for i, t := range matches {
		ids[i] = t.ID
	}
	if err := r.playlists.AddTracks(ctx, playlist.ID, ids); err != nil {
		return err
	}

	export := models.PlaylistExport{Tracks: matches}
	r.writePlain("✓ Added %d tracks (%s) to %s\n", len(matches), shared.FormatSize(export.TotalSize()), playlist.Name)
	return nil
}

// PlaylistList prints every playlist with its size.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	playlists, err := r.playlists.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	if len(playlists) == 0 {
		r.writePlain("No playlists yet. Create one with 'plx playlist create <name>'.\n")
		return nil
	}

	for _, pl := range playlists {
		r.writePlain("%-30s %6d tracks %10s  %s\n", pl.Name, pl.TrackCount, shared.FormatSize(pl.Size), pl.ID)
	}
	return nil
}

// PlaylistShow prints or writes a playlist as text, CSV, JSON or M3U.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	nameOrID := cmd.StringArg("playlist")
	if nameOrID == "" {
		return fmt.Errorf("%w: playlist name or ID", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	export, err := r.playlists.Export(ctx, nameOrID)
	if err != nil {
		return err
	}

	out := cmd.String("out")
	format := cmd.String("format")

	switch format {
	case "text":
		if out != "" {
			path, err := formatter.WriteTextExport(export, out)
			if err != nil {
				return err
			}
			r.writePlain("✓ Wrote %s\n", path)
			return nil
		}
		data, err := formatter.ExportToText(export)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)

	case "csv":
		if out != "" {
			result, err := formatter.WriteCSVExport(export, out)
			if err != nil {
				return err
			}
			r.writePlain("✓ Wrote %s and %s\n", result.TracksFile, result.MetadataFile)
			return nil
		}
		data, err := formatter.ExportToCSV(export)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)

	case "json":
		data, err := formatter.ExportToJSON(export)
		if err != nil {
			return err
		}
		if out != "" {
			return r.writeFile(out, data)
		}
		return r.writePlain("%s\n", data)

	case "m3u":
		absolute := cmd.Bool("absolute") || out == ""
		data, err := formatter.ExportToM3U(export.Tracks, filepath.Dir(out), absolute)
		if err != nil {
			return err
		}
		if out != "" {
			return r.writeFile(out, data)
		}
		return r.writePlain("%s", data)

	default:
		return fmt.Errorf("%w: --format must be text, csv, json or m3u, got %q", shared.ErrInvalidFlag, format)
	}
}

func (r *Runner) writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.writePlain("✓ Wrote %s\n", path)
	return nil
}

// PlaylistSize reports the on-disk size of a playlist.
func (r *Runner) PlaylistSize(ctx context.Context, cmd *cli.Command) error {
	nameOrID := cmd.StringArg("playlist")
	if nameOrID == "" {
		return fmt.Errorf("%w: playlist name or ID", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	report, err := r.engine.PlaylistSize(ctx, nameOrID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	r.writePlain("%s: %d MB (%s)\n", report.Playlist.Name, report.Megabytes, shared.FormatSize(report.Bytes))
	r.writePlain("  %d entries, %d distinct tracks, %s\n", report.Entries, report.Unique, shared.FormatDuration(report.Duration))
	return nil
}

// PlaylistTruncate randomly removes tracks until the playlist fits the requested size.
func (r *Runner) PlaylistTruncate(ctx context.Context, cmd *cli.Command) error {
	nameOrID := cmd.StringArg("playlist")
	opts := tasks.TruncateOpts{
		TargetMB: cmd.Int64("size"),
		Seed:     r.config.Truncate.Seed,
		DryRun:   cmd.Bool("dry-run"),
	}
	if cmd.IsSet("seed") {
		opts.Seed = cmd.Uint64("seed")
	}

	if cmd.Bool("tui") {
		return r.runTUI(ctx, nameOrID, opts)
	}

	if nameOrID == "" {
		return fmt.Errorf("%w: playlist name or ID", shared.ErrMissingArgument)
	}
	if !cmd.IsSet("size") {
		return fmt.Errorf("%w: --size in megabytes", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	logger := shared.WithLogger(r.logger, "playlist", nameOrID)
	logger.Info("truncating playlist", "target_mb", opts.TargetMB, "dry_run", opts.DryRun)

	progress := make(chan tasks.ProgressUpdate, 64)
	done := r.printProgress(progress)
	result, err := r.engine.Truncate(ctx, nameOrID, opts, progress)
	close(progress)
	<-done

	if err != nil {
		logger.Error("truncation failed", "error", err)
		return err
	}
	logger.Info("truncation complete", "removed", len(result.Removed), "final_size", result.FinalSize, "seed", result.Seed)

	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	r.writeTruncateResult(result)
	return nil
}

func (r *Runner) writeTruncateResult(result *tasks.TruncateResult) {
	r.writePlain("\n")
	if result.DryRun {
		r.writePlainHeader("Dry Run Complete (playlist unchanged)")
	} else {
		r.writePlainHeader("Truncation Complete!")
	}
	r.writePlain("Playlist: %s\n", result.Playlist.Name)
	r.writePlain("Size: %s → %s (target %s)\n",
		shared.FormatSize(result.InitialSize), shared.FormatSize(result.FinalSize), shared.FormatSize(result.TargetSize))
	r.writePlain("Removed: %d tracks (%d entries)\n", len(result.Removed), result.EntriesRemoved)
	for _, t := range result.Removed {
		r.writePlain("  - %s (%s)\n", t.DisplayTitle(), shared.FormatSize(t.FileSize))
	}
	r.writePlain("Seed: %d (rerun with --seed %d to reproduce)\n", result.Seed, result.Seed)
}

// PlaylistHistory lists the recorded truncations of a playlist, newest first.
func (r *Runner) PlaylistHistory(ctx context.Context, cmd *cli.Command) error {
	nameOrID := cmd.StringArg("playlist")
	if nameOrID == "" {
		return fmt.Errorf("%w: playlist name or ID", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	playlist, err := r.playlists.Resolve(ctx, nameOrID)
	if err != nil {
		return err
	}

	runs, err := r.runs.ListByPlaylist(ctx, playlist.ID, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		r.writePlain("No truncations recorded for %s\n", playlist.Name)
		return nil
	}

	for _, run := range runs {
		mode := ""
		if run.DryRun {
			mode = " (dry run)"
		}
		r.writePlain("%s  %-9s %10s → %-10s target %-10s removed %-4d seed %d%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			run.Status,
			shared.FormatSize(run.InitialSize),
			shared.FormatSize(run.FinalSize),
			shared.FormatSize(run.TargetSize),
			run.Removed,
			run.Seed,
			mode,
		)
		if run.Error != "" {
			r.writePlain("  error: %s\n", run.Error)
		}
	}
	return nil
}

// PlaylistDelete removes a playlist.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	nameOrID := cmd.StringArg("playlist")
	if nameOrID == "" {
		return fmt.Errorf("%w: playlist name or ID", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	playlist, err := r.playlists.Resolve(ctx, nameOrID)
	if err != nil {
		return err
	}
	if err := r.playlists.Delete(ctx, playlist.ID); err != nil {
		return err
	}

	r.writePlain("✓ Deleted playlist %s\n", playlist.Name)
	return nil
}

func playlistArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "playlist"}}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage, size and truncate playlists",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create an empty playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:      "add",
				Usage:     "Append the library tracks matching a query",
				Arguments: playlistArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Library query selecting the tracks to add",
						Required: true,
					},
				},
				Action: r.PlaylistAdd,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List playlists with their sizes",
				Flags:   jsonFlags(),
				Action:  r.PlaylistList,
			},
			{
				Name:      "show",
				Usage:     "Print or write a playlist",
				Arguments: playlistArg(),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: text, csv, json or m3u",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout (csv: base name of the files)",
					},
					&cli.BoolFlag{
						Name:  "absolute",
						Usage: "Write absolute track paths in M3U files",
					},
				},
				Action: r.PlaylistShow,
			},
			{
				Name:      "size",
				Usage:     "Report the size of a playlist",
				Arguments: playlistArg(),
				Flags:     jsonFlags(),
				Action:    r.PlaylistSize,
			},
			{
				Name:      "truncate",
				Usage:     "Randomly remove tracks until the playlist fits a size in MB",
				Arguments: playlistArg(),
				Flags: append([]cli.Flag{
					&cli.Int64Flag{
						Name:    "size",
						Aliases: []string{"s"},
						Usage:   "Target size in megabytes (1 MB = 1024 * 1024 bytes)",
					},
					&cli.Uint64Flag{
						Name:  "seed",
						Usage: "Random seed for a reproducible selection (0 picks one)",
					},
					&cli.BoolFlag{
						Name:    "dry-run",
						Aliases: []string{"n"},
						Usage:   "Show what would be removed without changing the playlist",
					},
					&cli.BoolFlag{
						Name:  "tui",
						Usage: "Run interactively",
					},
				}, jsonFlags()...),
				Action: r.PlaylistTruncate,
			},
			{
				Name:      "history",
				Usage:     "List past truncations of a playlist",
				Arguments: playlistArg(),
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries (0 lists all)",
						Value: 20,
					},
				}, jsonFlags()...),
				Action: r.PlaylistHistory,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a playlist",
				Arguments: playlistArg(),
				Action:    r.PlaylistDelete,
			},
		},
	}
}
