package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chazu/jackc/cache"
	"github.com/chazu/jackc/compiler"
	"github.com/chazu/jackc/compiler/hash"
)

// Document is one source file known to a Project.
type Document struct {
	URI      string
	Source   string
	Class    *compiler.Class // nil when the last parse failed
	Err      error           // parse or code generation error
	Warnings []compiler.Warning

	// LastGood is the most recent successful parse, kept while the
	// document is mid-edit.
	LastGood *compiler.Class
}

// Project indexes the Jack classes a server has seen, keyed by document
// URI. It is not safe for concurrent use; a Worker owns it.
type Project struct {
	docs  map[string]*Document
	order compiler.OperatorOrder
	cache *cache.Store
}

// NewProject creates an empty project. store may be nil.
func NewProject(order compiler.OperatorOrder, store *cache.Store) *Project {
	return &Project{
		docs:  make(map[string]*Document),
		order: order,
		cache: store,
	}
}

// Update replaces the document at uri with src, parses it, generates
// its code to surface compile errors and lints it against every class
// the project knows.
func (p *Project) Update(uri, src string) *Document {
	doc := &Document{URI: uri, Source: src}
	class, err := compiler.ParseString(src)
	if err != nil {
		doc.Err = err
		if prev, ok := p.docs[uri]; ok {
			doc.LastGood = prev.LastGood
		}
	} else {
		doc.Class = class
		doc.LastGood = class
		// A class that parses can still fail code generation.
		_, doc.Err = generate(class, p.order)
	}
	p.docs[uri] = doc

	if doc.Class != nil {
		doc.Warnings = compiler.Analyze(doc.Class, p.KnownClasses()...)
		if stem := uriName(uri); stem != doc.Class.Name {
			doc.Warnings = append(doc.Warnings, compiler.Warning{
				Pos:     doc.Class.Tree.Pos(),
				Message: "class " + doc.Class.Name + " declared in " + stem + ".jack",
			})
		}
	}
	return doc
}

// Remove forgets the document at uri.
func (p *Project) Remove(uri string) {
	delete(p.docs, uri)
}

// Document returns the document at uri.
func (p *Project) Document(uri string) (*Document, bool) {
	doc, ok := p.docs[uri]
	return doc, ok
}

// KnownClasses returns the names of every successfully parsed class.
func (p *Project) KnownClasses() []string {
	var names []string
	for _, doc := range p.docs {
		if doc.Class != nil {
			names = append(names, doc.Class.Name)
		}
	}
	sort.Strings(names)
	return names
}

// FindClass returns the document declaring the named class.
func (p *Project) FindClass(name string) *Document {
	for _, doc := range p.docs {
		if doc.Class != nil && doc.Class.Name == name {
			return doc
		}
	}
	return nil
}

// LoadFiles reads .jack files into the project under file:// URIs.
func (p *Project) LoadFiles(paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		p.Update(fileURI(abs), string(data))
	}
	return nil
}

// Compiled is the outcome of Project.Compile.
type Compiled struct {
	Unit     *compiler.Unit
	Warnings []compiler.Warning
	Cached   bool
}

// Compile compiles a standalone source, consulting the cache when the
// project has one. Project classes count as known for the lint pass.
func (p *Project) Compile(ctx context.Context, name, src string, order compiler.OperatorOrder) (*Compiled, error) {
	class, tokens, err := compiler.ParseStringTokens(src)
	if err != nil {
		return nil, &compiler.UnitError{Unit: name, Err: err}
	}

	result := &Compiled{Warnings: compiler.Analyze(class, p.KnownClasses()...)}

	var key string
	if p.cache != nil {
		key = hash.Key(class.Tree, order)
		entry, err := p.cache.Get(ctx, key)
		if err == nil {
			result.Unit = &compiler.Unit{Name: name, Class: class, Instructions: entry.Instructions, Tokens: tokens}
			result.Cached = true
			return result, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			log.Warningf("cache lookup for %s: %s", name, err)
		}
	}

	code, err := generate(class, order)
	if err != nil {
		return nil, &compiler.UnitError{Unit: name, Err: err}
	}
	result.Unit = &compiler.Unit{Name: name, Class: class, Instructions: code, Tokens: tokens}

	if p.cache != nil {
		if err := p.cache.Put(ctx, &cache.Entry{Key: key, Class: class.Name, Instructions: result.Unit.Instructions}); err != nil {
			log.Warningf("cache store for %s: %s", name, err)
		}
	}
	return result, nil
}

// generate runs the code generator over class.
func generate(class *compiler.Class, order compiler.OperatorOrder) ([]compiler.Instruction, error) {
	w := compiler.NewWriter()
	if err := compiler.NewGenerator(w, compiler.WithOperatorOrder(order)).GenerateClass(class); err != nil {
		return nil, err
	}
	return w.Instructions(), nil
}

func fileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

// uriName returns the file stem of a document URI, used as the unit name.
func uriName(uri string) string {
	base := uri[strings.LastIndex(uri, "/")+1:]
	return strings.TrimSuffix(base, ".jack")
}
