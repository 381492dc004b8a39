package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ExportSearches writes one M3U playlist per saved search.
//
// The destination defaults to the last folder used and is remembered in the config file after a successful export.
func (r *Runner) ExportSearches(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	if dir == "" {
		dir = r.config.Export.LastFolder
	}
	if dir == "" {
		return fmt.Errorf("%w: --dir (no previous export folder)", shared.ErrMissingArgument)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	opts := tasks.ExportOpts{
		OutputDir: abs,
		Names:     cmd.StringSlice("name"),
		Workers:   r.config.Export.Workers,
		Absolute:  r.config.Export.AbsolutePaths || cmd.Bool("absolute"),
	}
	if cmd.IsSet("workers") {
		opts.Workers = cmd.Int("workers")
	}

	if err := r.open(); err != nil {
		return err
	}

	r.logger.Info("exporting saved searches", "dir", abs, "workers", opts.Workers)
	r.writePlain("Exporting saved searches to %s...\n", abs)

	progress := make(chan tasks.ProgressUpdate, 64)
	done := r.printProgress(progress)
	result, err := r.engine.ExportSearches(ctx, progress, opts)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Folder: %s\n", result.OutputDir)
	r.writePlain("Exported: %d/%d searches\n", result.Succeeded, result.Total)
	for _, res := range result.Results {
		if res.Error != nil {
			r.writePlain("  ✗ %s: %v\n", res.Search.Name, res.Error)
			continue
		}
		r.writePlain("  ✓ %s: %d tracks (%s)\n", res.Search.Name, res.Tracks, shared.FormatSize(res.Size))
	}
	r.writePlain("Manifest: %s\n", result.ManifestPath)

	return r.rememberExportFolder(abs)
}

// rememberExportFolder stores dir as export.last_folder when the config file exists.
func (r *Runner) rememberExportFolder(dir string) error {
	r.config.Export.LastFolder = dir
	if r.configPath == "" {
		return nil
	}
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, export folder not saved", "path", r.configPath)
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.logger.Debug("saved export folder", "path", r.configPath, "folder", dir)
	return nil
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export saved searches as M3U playlists",
		Commands: []*cli.Command{
			{
				Name:  "searches",
				Usage: "Write one M3U file per enabled saved search",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Destination folder (default: last export folder)",
					},
					&cli.StringSliceFlag{
						Name:  "name",
						Usage: "Export only the named searches, enabled or not (repeatable)",
					},
					&cli.BoolFlag{
						Name:  "absolute",
						Usage: "Write absolute track paths instead of paths relative to the folder",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   fmt.Sprintf("Concurrent exports (max %d)", tasks.MaxExportWorkers),
						Value:   tasks.DefaultExportWorkers,
					},
				},
				Action: r.ExportSearches,
			},
		},
	}
}
