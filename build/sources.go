package build

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the source file extension.
const Ext = ".jack"

// Source is one compilation unit on disk.
type Source struct {
	Path string // absolute path of the .jack file
	Name string // file stem, which names the unit and its outputs

	// Dependency marks library classes compiled along with the project.
	// They are built but not linted.
	Dependency bool
}

// CollectSources expands paths into a sorted, duplicate-free list of
// sources. A path may name a .jack file, a directory (its .jack files) or
// a directory followed by "/..." (every .jack file below it).
func CollectSources(paths ...string) ([]Source, error) {
	seen := make(map[string]bool)
	var sources []Source

	for _, p := range paths {
		files, err := expandPath(p)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if seen[f] {
				continue
			}
			seen[f] = true
			sources = append(sources, Source{Path: f, Name: strings.TrimSuffix(filepath.Base(f), Ext)})
		}
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return sources, nil
}

// MarkDependencies flags every source as a dependency unit.
func MarkDependencies(sources []Source) []Source {
	for i := range sources {
		sources[i].Dependency = true
	}
	return sources
}

func expandPath(path string) ([]string, error) {
	recursive := false
	if strings.HasSuffix(path, "/...") {
		recursive = true
		path = strings.TrimSuffix(path, "/...")
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %q: %w", path, err)
	}

	var files []string
	switch {
	case !info.IsDir():
		if !strings.HasSuffix(path, Ext) {
			return nil, fmt.Errorf("%q is not a %s file", path, Ext)
		}
		files = append(files, path)

	case recursive:
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(p, Ext) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %q: %w", path, err)
		}

	default:
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), Ext) {
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
	}
	return files, nil
}
