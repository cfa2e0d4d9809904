package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("jackc.manifest")

// ResolvedDep is a dependency that has been resolved to a local directory.
type ResolvedDep struct {
	Name      string    // dependency name
	LocalPath string    // local filesystem path
	Manifest  *Manifest // the dependency's own manifest (may be nil)
	Declared  Dependency
}

// SourceDirPaths returns the directories holding the dependency's classes:
// its manifest's source dirs, or its root when it has no manifest.
func (d ResolvedDep) SourceDirPaths() []string {
	if d.Manifest != nil {
		return d.Manifest.SourceDirPaths()
	}
	return []string{d.LocalPath}
}

// Resolver fetches and pins the dependencies of a project.
type Resolver struct {
	manifest *Manifest
	lock     *LockFile
}

// NewResolver creates a resolver for m.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve resolves all dependencies, including transitive ones, and
// returns them with every dependency ahead of its dependents. The lock
// file is rewritten afterwards.
func (r *Resolver) Resolve(ctx context.Context) ([]ResolvedDep, error) {
	if len(r.manifest.Dependencies) == 0 {
		return nil, nil
	}

	lock, err := ReadLock(r.manifest.LockFilePath())
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	r.lock = lock

	if err := os.MkdirAll(r.manifest.DepsDir(), 0755); err != nil {
		return nil, fmt.Errorf("creating deps dir: %w", err)
	}

	resolved := make(map[string]*ResolvedDep)
	order, err := r.resolveAll(ctx, r.manifest, resolved)
	if err != nil {
		return nil, err
	}

	if err := r.writeLock(ctx, resolved); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return order, nil
}

// resolveAll resolves the dependencies declared by owner. Paths are
// relative to the manifest that declares them.
func (r *Resolver) resolveAll(ctx context.Context, owner *Manifest, resolved map[string]*ResolvedDep) ([]ResolvedDep, error) {
	var order []ResolvedDep

	names := make([]string, 0, len(owner.Dependencies))
	for name := range owner.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue
		}

		rd, err := r.resolveOne(ctx, owner, name, owner.Dependencies[name])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		resolved[name] = rd

		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			transitive, err := r.resolveAll(ctx, rd.Manifest, resolved)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}
		order = append(order, *rd)
	}
	return order, nil
}

func (r *Resolver) resolveOne(ctx context.Context, owner *Manifest, name string, dep Dependency) (*ResolvedDep, error) {
	if dep.Path != "" {
		localPath, err := filepath.Abs(owner.resolve(dep.Path))
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
		}
		if _, err := os.Stat(localPath); err != nil {
			return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
		}
		return &ResolvedDep{Name: name, LocalPath: localPath, Manifest: loadOptional(localPath), Declared: dep}, nil
	}

	if dep.Git != "" {
		depDir := filepath.Join(r.manifest.DepsDir(), name)

		if _, err := os.Stat(depDir); os.IsNotExist(err) {
			log.Infof("cloning %s from %s", name, dep.Git)
			if err := gitClone(ctx, dep.Git, depDir); err != nil {
				return nil, err
			}
		} else if locked := r.lock.FindLockedDep(name); locked == nil || locked.Tag != dep.Tag {
			log.Infof("fetching %s", name)
			if err := gitFetch(ctx, depDir); err != nil {
				return nil, err
			}
		}

		if dep.Tag != "" {
			if err := gitCheckout(ctx, depDir, dep.Tag); err != nil {
				return nil, err
			}
		}
		return &ResolvedDep{Name: name, LocalPath: depDir, Manifest: loadOptional(depDir), Declared: dep}, nil
	}

	return nil, fmt.Errorf("dependency %q has no git or path specified", name)
}

// loadOptional loads the manifest in dir, or returns nil when there is
// none or it does not load.
func loadOptional(dir string) *Manifest {
	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		return nil
	}
	m, err := Load(dir)
	if err != nil {
		log.Warningf("ignoring manifest in %s: %s", dir, err)
		return nil
	}
	return m
}

// writeLock records the resolved dependencies in the lock file.
func (r *Resolver) writeLock(ctx context.Context, resolved map[string]*ResolvedDep) error {
	lf := &LockFile{}

	names := make([]string, 0, len(resolved))
	for name := range resolved {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rd := resolved[name]
		ld := LockedDep{Name: name}

		if dep := rd.Declared; dep.Git != "" {
			ld.Git = dep.Git
			ld.Tag = dep.Tag
			if commit, err := gitCurrentCommit(ctx, rd.LocalPath); err == nil {
				ld.Commit = commit
			}
		} else {
			ld.Path = rd.LocalPath
		}
		lf.Deps = append(lf.Deps, ld)
	}

	if err := os.MkdirAll(filepath.Dir(r.manifest.LockFilePath()), 0755); err != nil {
		return err
	}
	return WriteLock(r.manifest.LockFilePath(), lf)
}
