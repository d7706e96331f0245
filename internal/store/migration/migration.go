// Package migration discovers the versioned SQL files embedded by each store
// backend.
package migration

import (
	"cmp"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// File is a single migration named <version>_<description>.sql.
type File struct {
	Version int
	Name    string
	SQL     string // Up section only
}

// Load reads the .sql files in dir, ordered by version. Files whose names do
// not start with a numeric version are skipped.
func Load(fsys fs.FS, dir string) ([]File, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			log.Warn().Str("file", entry.Name()).Msg("Skipping migration file with invalid name format")
			continue
		}

		version, err := strconv.Atoi(prefix)
		if err != nil {
			log.Warn().Str("file", entry.Name()).Err(err).Msg("Skipping migration file with invalid version number")
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		files = append(files, File{
			Version: version,
			Name:    entry.Name(),
			SQL:     ExtractUp(string(content)),
		})
	}

	slices.SortStableFunc(files, func(a, b File) int {
		return cmp.Compare(a.Version, b.Version)
	})

	for i := 1; i < len(files); i++ {
		if files[i].Version == files[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", files[i].Version, files[i-1].Name, files[i].Name)
		}
	}

	return files, nil
}

// ExtractUp returns the SQL in the -- +migrate Up section, or all of content
// when it has no markers.
func ExtractUp(content string) string {
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		return content
	}
	downIdx := strings.Index(content, downMarker)
	if downIdx == -1 || downIdx < upIdx {
		return content[upIdx+len(upMarker):]
	}
	return content[upIdx+len(upMarker) : downIdx]
}
