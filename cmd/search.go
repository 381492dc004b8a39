package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/query"
	"github.com/desertthunder/plx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SearchAdd saves a named query, replacing the query of an existing search with the same name.
func (r *Runner) SearchAdd(ctx context.Context, cmd *cli.Command) error {
	search := models.SavedSearch{
		Name:    cmd.StringArg("name"),
		Query:   cmd.StringArg("query"),
		Enabled: !cmd.Bool("disabled"),
	}
	if search.Name == "" || search.Query == "" {
		return fmt.Errorf("%w: search name and query", shared.ErrMissingArgument)
	}
	if _, err := query.Compile(search.Query); err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	if err := r.searches.Save(ctx, search); err != nil {
		return err
	}
	r.writePlain("✓ Saved search %s: %s\n", search.Name, search.Query)
	return nil
}

// SearchList prints the saved searches and how many library tracks each one matches.
func (r *Runner) SearchList(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	searches, err := r.searches.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(searches, cmd.Bool("pretty"))
	}

	if len(searches) == 0 {
		r.writePlain("No saved searches. Add one with 'plx search add <name> <query>'.\n")
		return nil
	}

	library, err := r.tracks.List(ctx)
	if err != nil {
		return err
	}

	for _, s := range searches {
		state := "✓"
		if !s.Enabled {
			state = " "
		}

		matched := "invalid query"
		if q, err := query.Compile(s.Query); err == nil {
			matched = fmt.Sprintf("%d tracks", len(q.Filter(library)))
		}
		r.writePlain("[%s] %-25s %-12s %s\n", state, s.Name, matched, s.Query)
	}
	return nil
}

func (r *Runner) setSearchEnabled(ctx context.Context, cmd *cli.Command, enabled bool) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: search name", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	if err := r.searches.SetEnabled(ctx, name, enabled); err != nil {
		return err
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	r.writePlain("✓ %s %s\n", name, state)
	return nil
}

// SearchEnable includes a saved search in exports.
func (r *Runner) SearchEnable(ctx context.Context, cmd *cli.Command) error {
	return r.setSearchEnabled(ctx, cmd, true)
}

// SearchDisable excludes a saved search from exports.
func (r *Runner) SearchDisable(ctx context.Context, cmd *cli.Command) error {
	return r.setSearchEnabled(ctx, cmd, false)
}

// SearchDelete removes a saved search.
func (r *Runner) SearchDelete(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: search name", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	if err := r.searches.Delete(ctx, name); err != nil {
		return err
	}
	r.writePlain("✓ Deleted search %s\n", name)
	return nil
}

// SearchImport loads saved searches from a plain name/query file or a YAML file.
//
// The whole file is validated before anything is stored.
func (r *Runner) SearchImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		path = r.config.Library.SavedSearches
	}
	if path == "" {
		return fmt.Errorf("%w: saved searches file (argument or library.saved_searches in config)", shared.ErrMissingArgument)
	}

	searches, err := query.LoadFile(path)
	if err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	for _, s := range searches {
		if err := r.searches.Save(ctx, s); err != nil {
			return err
		}
		r.logger.Debug("imported search", "name", s.Name, "query", s.Query)
	}

	r.writePlain("✓ Imported %d saved searches from %s\n", len(searches), path)
	return nil
}

func searchNameArg() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "name"}}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Manage saved searches",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Save a named library query",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "name"},
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "disabled",
						Usage: "Save without including it in exports",
					},
				},
				Action: r.SearchAdd,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List saved searches",
				Flags:   jsonFlags(),
				Action:  r.SearchList,
			},
			{
				Name:      "enable",
				Usage:     "Include a saved search in exports",
				Arguments: searchNameArg(),
				Action:    r.SearchEnable,
			},
			{
				Name:      "disable",
				Usage:     "Exclude a saved search from exports",
				Arguments: searchNameArg(),
				Action:    r.SearchDisable,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a saved search",
				Arguments: searchNameArg(),
				Action:    r.SearchDelete,
			},
			{
				Name:  "import",
				Usage: "Import searches from a name/query text file or a YAML file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Action: r.SearchImport,
			},
		},
	}
}
