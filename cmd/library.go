package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/query"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// LibraryScan indexes the audio files under a folder.
func (r *Runner) LibraryScan(ctx context.Context, cmd *cli.Command) error {
	root := cmd.StringArg("root")
	if root == "" {
		root = r.config.Library.Root
	}
	if root == "" {
		return fmt.Errorf("%w: library folder (argument or library.root in config)", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	r.logger.Info("scanning library", "root", root)
	r.writePlain("Scanning %s...\n", root)

	progress := make(chan tasks.ProgressUpdate, 64)
	done := r.printProgress(progress)
	result, err := r.engine.ScanLibrary(ctx, root, progress)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.logger.Info("scan complete", "tracks", result.Tracks, "skipped", result.Skipped)
	r.writePlain("\n✓ Scanned %d tracks (%s) in %s\n", result.Tracks, shared.FormatSize(result.Bytes), result.Root)
	if result.Skipped > 0 {
		r.writePlain("  Skipped %d files that are not audio\n", result.Skipped)
	}
	return nil
}

// LibraryList prints the library, optionally filtered by a query.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	tracks, err := r.tracks.List(ctx)
	if err != nil {
		return err
	}

	if raw := cmd.String("query"); raw != "" {
		q, err := query.Compile(raw)
		if err != nil {
			return err
		}
		tracks = q.Filter(tracks)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	export := models.PlaylistExport{Tracks: tracks}
	for _, t := range tracks {
		r.writePlain("%-50s %10s  %s\n", t.DisplayTitle(), shared.FormatSize(t.FileSize), t.Path)
	}
	r.writePlainln("%d tracks, %s", len(tracks), shared.FormatSize(export.TotalSize()))
	return nil
}

func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Index and browse the music library",
		Commands: []*cli.Command{
			{
				Name:  "scan",
				Usage: "Index the audio files under a folder",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "root"},
				},
				Action: r.LibraryScan,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List library tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   `Only list tracks matching a query (e.g. "genre:rock size>5MB")`,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.LibraryList,
			},
		},
	}
}
