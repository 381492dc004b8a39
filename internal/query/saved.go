package query

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/plx/internal/models"
	"github.com/desertthunder/plx/internal/shared"
	"gopkg.in/yaml.v3"
)

// savedFile is the YAML layout of a saved searches file.
type savedFile struct {
	Searches []models.SavedSearch `yaml:"searches"`
}

// ParseSavedFile reads the plain text saved searches format: a query line
// followed by the name of the search on the next line, repeated. Blank lines
// are ignored. Every search read this way is enabled.
//
// In this format "tag=value" is a case insensitive substring match, so text
// keywords using "=" are stored as "tag:value". Numeric comparisons are kept.
func ParseSavedFile(r io.Reader) ([]models.SavedSearch, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read saved searches: %w", err)
	}

	if len(lines)%2 != 0 {
		return nil, fmt.Errorf("%w: query %q has no name", shared.ErrInvalidInput, lines[len(lines)-1])
	}

	searches := make([]models.SavedSearch, 0, len(lines)/2)
	for i := 0; i < len(lines); i += 2 {
		s := models.SavedSearch{Query: fromSavedFormat(lines[i]), Name: lines[i+1], Enabled: true}
		if err := validate(s); err != nil {
			return nil, err
		}
		searches = append(searches, s)
	}
	return searches, nil
}

// ParseYAML reads saved searches from a YAML document of the form:
//
//	searches:
//	  - name: Rock
//	    query: genre:rock
//	    enabled: true
func ParseYAML(r io.Reader) ([]models.SavedSearch, error) {
	var doc savedFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return []models.SavedSearch{}, nil
		}
		return nil, fmt.Errorf("%w: failed to decode saved searches: %v", shared.ErrInvalidInput, err)
	}

	for _, s := range doc.Searches {
		if err := validate(s); err != nil {
			return nil, err
		}
	}
	return doc.Searches, nil
}

// LoadYAML reads a YAML saved searches file.
func LoadYAML(path string) ([]models.SavedSearch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open saved searches: %w", err)
	}
	defer f.Close()
	return ParseYAML(f)
}

// LoadFile reads a saved searches file, choosing the format by extension.
// Files ending in .yaml or .yml are YAML, anything else is the plain text format.
func LoadFile(path string) ([]models.SavedSearch, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open saved searches: %w", err)
	}
	defer f.Close()
	return ParseSavedFile(f)
}

// fromSavedFormat rewrites the text "=" keywords of a saved file query as substring matches.
func fromSavedFormat(query string) string {
	return keywordRe.ReplaceAllStringFunc(query, func(keyword string) string {
		group := keywordRe.FindStringSubmatch(keyword)
		if group[2] != "=" || !stringProps[strings.ToLower(group[1])] {
			return keyword
		}
		return group[1] + ":" + group[3]
	})
}

func validate(s models.SavedSearch) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if _, err := Compile(s.Query); err != nil {
		return fmt.Errorf("saved search %q: %w", s.Name, err)
	}
	return nil
}
