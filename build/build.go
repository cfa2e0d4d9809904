// Package build compiles a set of Jack sources into VM files. Units are
// compiled in parallel, each with its own lexer, parser, symbol table and
// generator, and a failing unit never stops its siblings.
package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/chazu/jackc/cache"
	"github.com/chazu/jackc/compiler"
	"github.com/chazu/jackc/compiler/hash"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("jackc.build")

// Options controls a build run.
type Options struct {
	OutDir  string // "" writes each output next to its source
	XML     bool   // also write Foo.xml
	Tokens  bool   // also write FooT.xml
	Order   compiler.OperatorOrder
	Workers int // <= 0 means GOMAXPROCS

	// Cache, when set, is consulted before generating code and filled
	// afterwards.
	Cache *cache.Store

	// BuildID tags cache entries written by this run. Generated when empty.
	BuildID string
}

// Result is the outcome of one unit.
type Result struct {
	Source   Source
	Unit     *compiler.Unit
	Warnings []compiler.Warning
	Cached   bool     // instructions came from the cache
	Outputs  []string // files written
	Err      error
}

// Failed reports whether any result carries an error.
func Failed(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// Run compiles sources. Per-unit failures are reported in the results;
// the returned error is only set when ctx is cancelled, in which case the
// units that had not started are left without a Unit or Err.
func Run(ctx context.Context, sources []Source, opts Options) ([]Result, error) {
	if opts.BuildID == "" {
		opts.BuildID = uuid.NewString()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log.Infof("build %s: %d units, %d workers, %s order", opts.BuildID, len(sources), workers, opts.Order)

	results := make([]Result, len(sources))
	parsed := make([]*parsedUnit, len(sources))
	for i, src := range sources {
		results[i].Source = src
	}
	markCollisions(results, opts.OutDir)

	// Parse every unit first so the linter knows all project classes.
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, src := range sources {
		if results[i].Err != nil {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			p, err := parseUnit(src)
			if err != nil {
				results[i].Err = err
				return nil
			}
			parsed[i] = p
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return results, err
	}

	var known []string
	for _, p := range parsed {
		if p != nil {
			known = append(known, p.class.Name)
		}
	}

	b := &builder{opts: opts, known: known}
	g = new(errgroup.Group)
	g.SetLimit(workers)
	for i := range sources {
		if parsed[i] == nil {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			b.finish(ctx, &results[i], parsed[i])
			return nil
		})
	}
	g.Wait()

	for _, r := range results {
		if r.Err != nil {
			log.Errorf("%s", r.Err)
		}
	}
	return results, ctx.Err()
}

// markCollisions fails every unit whose outputs would land on the same
// paths as another unit's.
func markCollisions(results []Result, outDir string) {
	byStem := make(map[string][]int)
	for i, r := range results {
		stem := outputStem(r.Source, outDir)
		byStem[stem] = append(byStem[stem], i)
	}
	for stem, idx := range byStem {
		if len(idx) < 2 {
			continue
		}
		for _, i := range idx {
			var others []string
			for _, j := range idx {
				if j != i {
					others = append(others, results[j].Source.Path)
				}
			}
			results[i].Err = &compiler.UnitError{
				Unit: results[i].Source.Name,
				Err:  fmt.Errorf("output %s.vm is also written by %s", stem, strings.Join(others, ", ")),
			}
		}
	}
}

// outputStem is the output path of a unit without its extension.
func outputStem(src Source, outDir string) string {
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(src.Path)
	}
	return filepath.Join(dir, src.Name)
}

type parsedUnit struct {
	tokens []compiler.Token
	class  *compiler.Class
}

func parseUnit(src Source) (*parsedUnit, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, &compiler.UnitError{Unit: src.Name, Err: err}
	}
	text := string(data)

	class, tokens, err := compiler.ParseStringTokens(text)
	if err != nil {
		return nil, &compiler.UnitError{Unit: src.Name, Err: err}
	}
	return &parsedUnit{tokens: tokens, class: class}, nil
}

type builder struct {
	opts  Options
	known []string
}

// finish generates (or fetches) the unit's code, lints it and writes
// the outputs.
func (b *builder) finish(ctx context.Context, r *Result, p *parsedUnit) {
	name := r.Source.Name

	code, cached, err := b.generate(ctx, p.class)
	if err != nil {
		r.Err = &compiler.UnitError{Unit: name, Err: err}
		return
	}
	r.Cached = cached
	r.Unit = &compiler.Unit{Name: name, Class: p.class, Instructions: code, Tokens: p.tokens}

	if !r.Source.Dependency {
		r.Warnings = compiler.Analyze(p.class, b.known...)
		if p.class.Name != name {
			r.Warnings = append(r.Warnings, compiler.Warning{
				Pos:     p.class.Tree.Pos(),
				Message: fmt.Sprintf("class %s declared in %s%s", p.class.Name, name, Ext),
			})
		}
		for _, w := range r.Warnings {
			log.Warningf("%s: %s", name, w)
		}
	}

	outputs, err := b.write(r)
	r.Outputs = outputs
	if err != nil {
		r.Err = &compiler.UnitError{Unit: name, Err: err}
	}
}

func (b *builder) generate(ctx context.Context, class *compiler.Class) ([]compiler.Instruction, bool, error) {
	var key string
	if b.opts.Cache != nil {
		key = hash.Key(class.Tree, b.opts.Order)
		entry, err := b.opts.Cache.Get(ctx, key)
		switch {
		case err == nil:
			log.Debugf("cache hit for %s (%s)", class.Name, key[:12])
			return entry.Instructions, true, nil
		case !errors.Is(err, cache.ErrNotFound):
			log.Warningf("cache lookup for %s: %s", class.Name, err)
		}
	}

	w := compiler.NewWriter()
	if err := compiler.NewGenerator(w, compiler.WithOperatorOrder(b.opts.Order)).GenerateClass(class); err != nil {
		return nil, false, err
	}
	code := w.Instructions()

	if b.opts.Cache != nil {
		entry := &cache.Entry{Key: key, Class: class.Name, Instructions: code, BuildID: b.opts.BuildID}
		if err := b.opts.Cache.Put(ctx, entry); err != nil {
			log.Warningf("cache store for %s: %s", class.Name, err)
		}
	}
	return code, false, nil
}

// write renders the unit's outputs and replaces each file atomically.
func (b *builder) write(r *Result) ([]string, error) {
	stem := outputStem(r.Source, b.opts.OutDir)
	if err := os.MkdirAll(filepath.Dir(stem), 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	type output struct {
		path   string
		render func(*bytes.Buffer) error
	}
	outs := []output{{
		path: stem + ".vm",
		render: func(buf *bytes.Buffer) error {
			_, err := r.Unit.WriteTo(buf)
			return err
		},
	}}
	if b.opts.XML {
		outs = append(outs, output{
			path:   stem + ".xml",
			render: func(buf *bytes.Buffer) error { return compiler.WriteXML(buf, r.Unit.Class.Tree) },
		})
	}
	if b.opts.Tokens {
		outs = append(outs, output{
			path:   stem + "T.xml",
			render: func(buf *bytes.Buffer) error { return compiler.WriteTokensXML(buf, r.Unit.Tokens) },
		})
	}

	var written []string
	for _, o := range outs {
		var buf bytes.Buffer
		if err := o.render(&buf); err != nil {
			return written, fmt.Errorf("rendering %s: %w", filepath.Base(o.path), err)
		}
		if err := writeFileAtomic(o.path, buf.Bytes()); err != nil {
			return written, err
		}
		written = append(written, o.path)
	}
	return written, nil
}

// writeFileAtomic writes data to a temporary file next to path and
// renames it into place, so readers never see a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
