package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/desertthunder/plx/internal/tasks"
	"github.com/desertthunder/plx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for playlist truncation.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	opts := tasks.TruncateOpts{
		TargetMB: cmd.Int64("size"),
		Seed:     r.config.Truncate.Seed,
		DryRun:   cmd.Bool("dry-run"),
	}
	if cmd.IsSet("seed") {
		opts.Seed = cmd.Uint64("seed")
	}
	return r.runTUI(ctx, cmd.StringArg("playlist"), opts)
}

// runTUI opens the playlist picker, or the confirmation screen when nameOrID is set.
func (r *Runner) runTUI(ctx context.Context, nameOrID string, opts tasks.TruncateOpts) error {
	if err := r.open(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(filepath.Join(os.TempDir(), "plx", "tui.log"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.logger = fileLogger

	model := ui.NewModel(ctx, r.playlists, r.engine, opts)
	if nameOrID != "" {
		model.Select(nameOrID)
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	result, err := model.Result()
	if err != nil {
		return err
	}
	if result != nil {
		r.writeTruncateResult(result)
	}
	return nil
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Usage:     "Pick and truncate a playlist interactively",
		Arguments: playlistArg(),
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:    "size",
				Aliases: []string{"s"},
				Usage:   "Initial target size in megabytes",
				Value:   700,
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
		},
		Action: r.TUI,
	}
}
