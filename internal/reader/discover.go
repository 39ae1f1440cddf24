package reader

import (
	"fmt"
	"path/filepath"
	"sort"
)

// FileSet groups the discovered raw files by schema kind. Slices are
// sorted so every downstream fold runs in a deterministic order.
type FileSet struct {
	Locations []string
	Histos    []string
	Behavior  []string
}

// Discover globs a data directory for the three raw file kinds produced
// by the archive-extraction collaborator. An empty directory is a valid
// (empty) input set, not an error.
func Discover(dataDir string) (*FileSet, error) {
	fs := &FileSet{}

	patterns := []struct {
		glob string
		dest *[]string
	}{
		{"*-Locations.csv", &fs.Locations},
		{"*-Histos.csv", &fs.Histos},
		{"*-Behavior.csv", &fs.Behavior},
	}

	for _, p := range patterns {
		matches, err := filepath.Glob(filepath.Join(dataDir, p.glob))
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s for %s: %w", dataDir, p.glob, err)
		}
		sort.Strings(matches)
		*p.dest = matches
	}

	return fs, nil
}
