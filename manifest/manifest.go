// Package manifest handles jack.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in a project directory.
const FileName = "jack.toml"

// Defaults applied after decoding.
const (
	DefaultSourceDir     = "src"
	DefaultOperatorOrder = "left-to-right"
	DefaultWorkers       = 4
	DefaultCachePath     = ".jackc/cache.db"
)

// Manifest represents a jack.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project" json:"project"`
	Source       Source                `toml:"source" json:"source"`
	Output       Output                `toml:"output" json:"output"`
	Compiler     Compiler              `toml:"compiler" json:"compiler"`
	Cache        Cache                 `toml:"cache" json:"cache"`
	Dependencies map[string]Dependency `toml:"dependencies" json:"dependencies,omitempty"`

	// Dir is the directory containing the jack.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version,omitempty"`
}

// Source configures source file locations.
type Source struct {
	Dirs []string `toml:"dirs" json:"dirs"`
}

// Output configures where compiled units go and which extra
// documents are written next to them.
type Output struct {
	Dir    string `toml:"dir" json:"dir,omitempty"`
	XML    bool   `toml:"xml" json:"xml"`
	Tokens bool   `toml:"tokens" json:"tokens"`
}

// Compiler holds code generation settings.
type Compiler struct {
	OperatorOrder string `toml:"operator-order" json:"operator-order"`
	Workers       int    `toml:"workers" json:"workers"`
}

// Cache configures the build cache. Enabled is a pointer so an absent
// key can default to true.
type Cache struct {
	Enabled *bool  `toml:"enabled" json:"enabled,omitempty"`
	Path    string `toml:"path" json:"path"`
}

// Dependency is a library of Jack classes compiled with the project.
type Dependency struct {
	Git  string `toml:"git" json:"git,omitempty"`
	Tag  string `toml:"tag" json:"tag,omitempty"`
	Path string `toml:"path" json:"path,omitempty"`
}

// Load parses a jack.toml file from the given directory, applies defaults
// and validates the result against the manifest schema.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()

	if err := Validate(&m); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{DefaultSourceDir}
	}
	if m.Compiler.OperatorOrder == "" {
		m.Compiler.OperatorOrder = DefaultOperatorOrder
	}
	if m.Compiler.Workers == 0 {
		m.Compiler.Workers = DefaultWorkers
	}
	if m.Cache.Enabled == nil {
		enabled := true
		m.Cache.Enabled = &enabled
	}
	if m.Cache.Path == "" {
		m.Cache.Path = DefaultCachePath
	}
}

// FindAndLoad walks up from startDir to find a jack.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.resolve(d))
	}
	return paths
}

// OutputDir returns the absolute output directory, or "" when units are
// written next to their sources.
func (m *Manifest) OutputDir() string {
	if m.Output.Dir == "" {
		return ""
	}
	return m.resolve(m.Output.Dir)
}

// CachePath returns the absolute path of the cache database, or "" when
// the cache is disabled.
func (m *Manifest) CachePath() string {
	if m.Cache.Enabled != nil && !*m.Cache.Enabled {
		return ""
	}
	return m.resolve(m.Cache.Path)
}

// DepsDir returns the path to the .jackc/deps directory.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".jackc", "deps")
}

// LockFilePath returns the path to .jackc/lock.toml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".jackc", "lock.toml")
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
