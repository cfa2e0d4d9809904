package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "Pong"
version = "1.0.0"

[source]
dirs = ["src", "lib"]

[output]
dir = "build"
xml = true
tokens = true

[compiler]
operator-order = "deferred"
workers = 8

[cache]
enabled = false
path = "tmp/cache.db"

[dependencies]
graphics = { path = "../graphics" }
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "Pong" {
		t.Errorf("project name = %q, want Pong", m.Project.Name)
	}
	if m.Project.Version != "1.0.0" {
		t.Errorf("project version = %q, want 1.0.0", m.Project.Version)
	}
	if len(m.Source.Dirs) != 2 {
		t.Errorf("source dirs count = %d, want 2", len(m.Source.Dirs))
	}
	if m.Output.Dir != "build" || !m.Output.XML || !m.Output.Tokens {
		t.Errorf("output = %+v, want build with xml and tokens", m.Output)
	}
	if m.Compiler.OperatorOrder != "deferred" {
		t.Errorf("operator order = %q, want deferred", m.Compiler.OperatorOrder)
	}
	if m.Compiler.Workers != 8 {
		t.Errorf("workers = %d, want 8", m.Compiler.Workers)
	}
	if m.CachePath() != "" {
		t.Errorf("CachePath() = %q, want empty when disabled", m.CachePath())
	}
	if dep, ok := m.Dependencies["graphics"]; !ok || dep.Path != "../graphics" {
		t.Errorf("graphics dep = %v, want path ../graphics", m.Dependencies["graphics"])
	}
	if want := filepath.Join(m.Dir, "build"); m.OutputDir() != want {
		t.Errorf("OutputDir() = %q, want %q", m.OutputDir(), want)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(m.Source.Dirs) != 1 || m.Source.Dirs[0] != DefaultSourceDir {
		t.Errorf("default source dirs = %v, want [src]", m.Source.Dirs)
	}
	if m.Compiler.OperatorOrder != DefaultOperatorOrder {
		t.Errorf("default operator order = %q, want %q", m.Compiler.OperatorOrder, DefaultOperatorOrder)
	}
	if m.Compiler.Workers != DefaultWorkers {
		t.Errorf("default workers = %d, want %d", m.Compiler.Workers, DefaultWorkers)
	}
	if want := filepath.Join(m.Dir, DefaultCachePath); m.CachePath() != want {
		t.Errorf("CachePath() = %q, want %q", m.CachePath(), want)
	}
	if m.OutputDir() != "" {
		t.Errorf("OutputDir() = %q, want empty", m.OutputDir())
	}
}

func TestLoadManifestInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[project\nname = 1", "parse error"},
		{"operator order", "[compiler]\noperator-order = \"right-to-left\"", "operator-order"},
		{"workers", "[compiler]\nworkers = 1000", "workers"},
		{"empty source dir", "[source]\ndirs = [\"\"]", "dirs"},
		{"dependency without source", "[dependencies]\nlib = { tag = \"v1\" }", "exactly one of git or path"},
		{"dependency with both", "[dependencies]\nlib = { git = \"https://example.com/lib\", path = \"../lib\" }", "exactly one of git or path"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tc.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no jack.toml exists")
	}
}

func TestSourceDirPaths(t *testing.T) {
	m := &Manifest{
		Dir: "/app",
		Source: Source{
			Dirs: []string{"src", "/shared/lib"},
		},
	}

	paths := m.SourceDirPaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if paths[0] != "/app/src" {
		t.Errorf("paths[0] = %q, want /app/src", paths[0])
	}
	if paths[1] != "/shared/lib" {
		t.Errorf("paths[1] = %q, want /shared/lib", paths[1])
	}
}

func TestLockFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "lock.toml")

	lf := &LockFile{
		Deps: []LockedDep{
			{Name: "graphics", Git: "https://example.com/graphics.git", Commit: "abc123", Tag: "v0.5.0"},
			{Name: "helper", Path: "../helper"},
		},
	}

	if err := WriteLock(lockPath, lf); err != nil {
		t.Fatalf("WriteLock failed: %v", err)
	}

	loaded, err := ReadLock(lockPath)
	if err != nil {
		t.Fatalf("ReadLock failed: %v", err)
	}

	if len(loaded.Deps) != 2 {
		t.Fatalf("expected 2 deps, got %d", len(loaded.Deps))
	}
	if loaded.Deps[0].Name != "graphics" {
		t.Errorf("dep[0].Name = %q, want graphics", loaded.Deps[0].Name)
	}
	if loaded.Deps[0].Commit != "abc123" {
		t.Errorf("dep[0].Commit = %q, want abc123", loaded.Deps[0].Commit)
	}

	found := loaded.FindLockedDep("helper")
	if found == nil || found.Path != "../helper" {
		t.Errorf("FindLockedDep(helper) = %v, want path ../helper", found)
	}

	if notFound := loaded.FindLockedDep("nonexistent"); notFound != nil {
		t.Errorf("FindLockedDep(nonexistent) = %v, want nil", notFound)
	}
}

func TestReadLockNotFound(t *testing.T) {
	lf, err := ReadLock("/nonexistent/path/lock.toml")
	if err != nil {
		t.Errorf("ReadLock should return nil,nil for missing file, got err: %v", err)
	}
	if lf != nil {
		t.Errorf("ReadLock should return nil for missing file, got %v", lf)
	}
	if lf.FindLockedDep("x") != nil {
		t.Error("FindLockedDep on nil lock file should return nil")
	}
}
