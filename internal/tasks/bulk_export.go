package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/plx/internal/formatter"
	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/query"
	"github.com/desertthunder/plx/internal/shared"
)

const (
	DefaultExportWorkers = 4
	MaxExportWorkers     = 8
)

// ExportOpts contains configuration for saved search exports.
type ExportOpts struct {
	OutputDir string   // Destination folder of the M3U files
	Names     []string // Searches to export; empty exports every enabled search
	Workers   int      // Concurrent workers (default: 4, max: 8)
	Absolute  bool     // Write absolute track paths instead of paths relative to OutputDir
}

// SearchExportResult is the outcome of exporting one saved search.
type SearchExportResult struct {
	Search models.SavedSearch
	File   string
	Tracks int
	Size   int64
	Error  error
}

// ExportResult summarizes a saved search export.
type ExportResult struct {
	OutputDir    string
	Total        int
	Succeeded    int
	Failed       int
	Results      []SearchExportResult // Sorted by search name
	ManifestPath string
}

type exportJob struct {
	search models.SavedSearch
}

// ExportSearches writes one M3U playlist per saved search to opts.OutputDir.
//
// The library is loaded once and shared by a pool of workers, each filtering it through one compiled query.
// Failures are recorded per search and do not stop the others. A manifest summarizing the run is written last.
func (e *Engine) ExportSearches(ctx context.Context, progress chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("%w: output directory", shared.ErrMissingArgument)
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultExportWorkers
	}
	if opts.Workers > MaxExportWorkers {
		opts.Workers = MaxExportWorkers
	}

	searches, err := e.selectSearches(ctx, opts.Names)
	if err != nil {
		return nil, err
	}

	library, err := e.tracks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	e.sendProgress(progress, loadSearchesUpdate(len(searches), len(library)))

	result := &ExportResult{
		OutputDir: opts.OutputDir,
		Total:     len(searches),
		Results:   make([]SearchExportResult, 0, len(searches)),
	}

	jobs := make(chan exportJob, len(searches))
	results := make(chan SearchExportResult, len(searches))

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, library, opts)
	}

	for _, s := range searches {
		jobs <- exportJob{search: s}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Error == nil {
			result.Succeeded++
			e.sendProgress(progress, exportCompletedUpdate(completed, len(searches), res.Search.Name, res.Tracks))
		} else {
			result.Failed++
			e.sendProgress(progress, exportFailedUpdate(completed, len(searches), res.Search.Name, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export canceled after %d of %d searches: %w", completed, len(searches), err)
	}

	slices.SortFunc(result.Results, func(a, b SearchExportResult) int {
		return strings.Compare(a.Search.Name, b.Search.Name)
	})

	manifestPath := filepath.Join(opts.OutputDir, formatter.ManifestFile)
	e.sendProgress(progress, writeManifestUpdate(manifestPath))
	if err := formatter.WriteExportManifest(buildManifest(result), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// selectSearches returns the named searches, or every enabled search when names is empty.
func (e *Engine) selectSearches(ctx context.Context, names []string) ([]models.SavedSearch, error) {
	if len(names) == 0 {
		searches, err := e.searches.ListEnabled(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load saved searches: %w", err)
		}
		return searches, nil
	}

	all, err := e.searches.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved searches: %w", err)
	}

	selected := make([]models.SavedSearch, 0, len(names))
	for _, name := range names {
		i := slices.IndexFunc(all, func(s models.SavedSearch) bool { return s.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", shared.ErrSearchNotFound, name)
		}
		selected = append(selected, all[i])
	}
	return selected, nil
}

// exportWorker is a worker goroutine that exports saved searches from the jobs channel.
func (e *Engine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- SearchExportResult,
	library []models.Track,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportSearch(job.search, library, opts)
	}
}

func exportSearch(search models.SavedSearch, library []models.Track, opts ExportOpts) SearchExportResult {
	result := SearchExportResult{Search: search}

	q, err := query.Compile(search.Query)
	if err != nil {
		result.Error = err
		return result
	}

	matches := q.Filter(library)
	path, err := formatter.WriteM3UExport(matches, opts.OutputDir, search.Name, opts.Absolute)
	if err != nil {
		result.Error = err
		return result
	}

	result.File = path
	result.Tracks = len(matches)
	for _, t := range matches {
		result.Size += t.FileSize
	}
	return result
}

func buildManifest(result *ExportResult) *formatter.Manifest {
	manifest := &formatter.Manifest{
		GeneratedAt: time.Now().UTC(),
		OutputDir:   result.OutputDir,
		Succeeded:   result.Succeeded,
		Failed:      result.Failed,
		Entries:     make([]formatter.ManifestEntry, 0, len(result.Results)),
	}

	for _, res := range result.Results {
		entry := formatter.ManifestEntry{
			Name:   res.Search.Name,
			Query:  res.Search.Query,
			File:   res.File,
			Tracks: res.Tracks,
			Size:   res.Size,
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		manifest.Entries = append(manifest.Entries, entry)
	}
	return manifest
}
