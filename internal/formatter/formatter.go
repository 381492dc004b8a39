// package formatter renders playlists and saved search results as M3U, CSV, JSON and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
)

// M3UExt is the file extension of exported playlists.
const M3UExt = ".m3u"

// ExportToM3U renders tracks as an extended M3U playlist.
//
// Each entry is written as "#EXTINF:<duration>,<people> - <title version>" followed by the path.
// Paths are made relative to baseDir unless absolute is set or no relative path exists.
func ExportToM3U(tracks []models.Track, baseDir string, absolute bool) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")
	for _, track := range tracks {
		if track.Path == "" {
			return nil, fmt.Errorf("%w: track %s has no path", shared.ErrExportFailed, track.ID)
		}

		buf.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", track.Duration, track.DisplayTitle()))
		buf.WriteString(entryPath(track.Path, baseDir, absolute))
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

func entryPath(path, baseDir string, absolute bool) string {
	if absolute || baseDir == "" {
		return path
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil {
		return path
	}
	return rel
}

// WriteM3UExport writes tracks to {dir}/{name}.m3u, creating dir when needed, and returns the file path.
func WriteM3UExport(tracks []models.Track, dir, name string, absolute bool) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: playlist name is required", shared.ErrMissingArgument)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := ExportToM3U(tracks, dir, absolute)
	if err != nil {
		return "", fmt.Errorf("failed to generate M3U: %w", err)
	}

	path := filepath.Join(dir, name+M3UExt)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("%w: failed to write %s: %v", shared.ErrExportFailed, path, err)
	}

	return path, nil
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: Position, ID, Title, Artist, Album, Duration, Size, Path
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artist", "Album", "Duration", "Size", "Path"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range export.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.ID,
			track.TitleWithVersion(),
			track.PeopleDisplay(),
			track.Album,
			strconv.Itoa(track.Duration),
			strconv.FormatInt(track.FileSize, 10),
			track.Path,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", export.Playlist.Name))
	if export.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", export.Playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n", len(export.Tracks)))
	buf.WriteString(fmt.Sprintf("Size: %s\n", shared.FormatSize(export.TotalSize())))
	buf.WriteString(fmt.Sprintf("Duration: %s\n\n", shared.FormatDuration(export.TotalDuration())))

	for i, track := range export.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s [%s] %s\n",
			i+1, track.DisplayTitle(), shared.FormatDuration(track.Duration), shared.FormatSize(track.FileSize)))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the playlist with its entries as indented JSON.
func ExportToJSON(export *models.PlaylistExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist name as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *models.PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.Name
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:   tracksFile,
		MetadataFile: metadataFile,
	}, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.Name}_tracks.txt as the filename.
func WriteTextExport(export *models.PlaylistExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", export.Playlist.Name)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// ManifestEntry records the outcome of exporting a single saved search.
type ManifestEntry struct {
	Name   string `json:"name"`
	Query  string `json:"query"`
	File   string `json:"file,omitempty"`
	Tracks int    `json:"tracks"`
	Size   int64  `json:"size"`
	Error  string `json:"error,omitempty"`
}

// Manifest summarizes a saved search export run.
type Manifest struct {
	GeneratedAt time.Time       `json:"generated_at"`
	OutputDir   string          `json:"output_dir"`
	Succeeded   int             `json:"succeeded"`
	Failed      int             `json:"failed"`
	Entries     []ManifestEntry `json:"entries"`
}

// ManifestFile is the name of the manifest written next to exported playlists.
const ManifestFile = "export_manifest.json"

// WriteExportManifest writes the manifest as indented JSON to path.
func WriteExportManifest(manifest *Manifest, path string) error {
	data, err := shared.MarshalJSON(manifest, true)
	if err != nil {
		return fmt.Errorf("failed to generate manifest JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
