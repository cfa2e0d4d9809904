// jackc compiles Jack classes into Hack VM code.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/jackc/build"
	"github.com/chazu/jackc/cache"
	"github.com/chazu/jackc/compiler"
	"github.com/chazu/jackc/manifest"
	"github.com/chazu/jackc/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options are the command-line settings. Flags the user did not set are
// filled from jack.toml when one is found.
type options struct {
	outDir    string
	xml       bool
	tokens    bool
	workers   int
	order     string
	cachePath string
	noCache   bool

	format  bool
	serve   bool
	port    int
	lsp     bool
	verbose int
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var o options
	fs := flag.NewFlagSet("jackc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.outDir, "o", "", "Output directory (default: next to each source)")
	fs.BoolVar(&o.xml, "xml", false, "Also write the parse tree as Foo.xml")
	fs.BoolVar(&o.tokens, "tokens", false, "Also write the token stream as FooT.xml")
	fs.IntVar(&o.workers, "j", 0, "Units compiled in parallel (default: GOMAXPROCS)")
	fs.StringVar(&o.order, "order", "", "Operator order: left-to-right or deferred")
	fs.StringVar(&o.cachePath, "cache", "", "Compilation cache database")
	fs.BoolVar(&o.noCache, "no-cache", false, "Disable the compilation cache")
	fs.BoolVar(&o.format, "fmt", false, "Print the given sources in canonical layout and exit")
	fs.BoolVar(&o.serve, "serve", false, "Start the compile service (Connect HTTP/JSON)")
	fs.IntVar(&o.port, "port", 4567, "Compile service port (used with -serve)")
	fs.BoolVar(&o.lsp, "lsp", false, "Start the language server on stdio")
	fs.IntVar(&o.verbose, "v", 0, "Log verbosity (0-5)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: jackc [options] [paths...]\n\n")
		fmt.Fprintf(stderr, "Compiles .jack files into .vm files. With no paths, the source\n")
		fmt.Fprintf(stderr, "directories of the nearest %s are compiled.\n\n", manifest.FileName)
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  jackc Square/                 # Compile Square/*.jack in place\n")
		fmt.Fprintf(stderr, "  jackc -o build ./...          # Compile recursively into build/\n")
		fmt.Fprintf(stderr, "  jackc -order deferred Main.jack\n")
		fmt.Fprintf(stderr, "  jackc -fmt Main.jack          # Print Main.jack reformatted\n")
		fmt.Fprintf(stderr, "\nServers:\n")
		fmt.Fprintf(stderr, "  jackc -serve -port 8080       # Compile service on :8080\n")
		fmt.Fprintf(stderr, "  jackc -lsp                    # Language server on stdio\n")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	commonlog.Configure(o.verbose, nil)

	if o.format {
		return formatFiles(fs.Args(), stdout, stderr)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	o = withManifest(o, m, set)

	order, err := compiler.ParseOperatorOrder(o.order)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	paths := fs.Args()
	if len(paths) == 0 && m != nil {
		paths = m.SourceDirPaths()
	}
	if len(paths) == 0 && !o.serve && !o.lsp {
		fs.Usage()
		return 2
	}

	var store *cache.Store
	if o.cachePath != "" && !o.noCache {
		store, err = cache.Open(o.cachePath)
		if err != nil {
			fmt.Fprintf(stderr, "Warning: cache disabled: %v\n", err)
		} else {
			defer store.Close()
		}
	}

	sources, err := collect(ctx, m, paths)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if o.serve || o.lsp {
		var files []string
		for _, s := range sources {
			files = append(files, s.Path)
		}
		srvOpts := []server.ServerOption{server.WithOperatorOrder(order), server.WithFiles(files...)}
		if store != nil {
			srvOpts = append(srvOpts, server.WithCache(store))
		}
		if o.lsp {
			if err := server.NewLSP(srvOpts...).Run(); err != nil {
				fmt.Fprintf(stderr, "Language server error: %v\n", err)
				return 1
			}
			return 0
		}
		srv := server.New(srvOpts...)
		defer srv.Stop()
		if err := srv.ListenAndServe(fmt.Sprintf(":%d", o.port)); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	}

	results, err := build.Run(ctx, sources, build.Options{
		OutDir:  o.outDir,
		XML:     o.xml,
		Tokens:  o.tokens,
		Order:   order,
		Workers: o.workers,
		Cache:   store,
	})
	return report(results, err, stdout, stderr)
}

// withManifest fills the options the user left unset from m.
func withManifest(o options, m *manifest.Manifest, set map[string]bool) options {
	if m == nil {
		return o
	}
	if !set["o"] {
		o.outDir = m.OutputDir()
	}
	if !set["xml"] {
		o.xml = m.Output.XML
	}
	if !set["tokens"] {
		o.tokens = m.Output.Tokens
	}
	if !set["j"] {
		o.workers = m.Compiler.Workers
	}
	if !set["order"] {
		o.order = m.Compiler.OperatorOrder
	}
	if !set["cache"] {
		o.cachePath = m.CachePath()
	}
	return o
}

// collect expands paths into sources and appends the classes of every
// resolved dependency of m.
func collect(ctx context.Context, m *manifest.Manifest, paths []string) ([]build.Source, error) {
	sources, err := build.CollectSources(paths...)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return sources, nil
	}

	deps, err := manifest.NewResolver(m).Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving dependencies: %w", err)
	}
	for _, dep := range deps {
		depSources, err := build.CollectSources(dep.SourceDirPaths()...)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", dep.Name, err)
		}
		sources = append(sources, build.MarkDependencies(depSources)...)
	}
	return sources, nil
}

// report prints per-unit errors and warnings and picks the exit code.
func report(results []build.Result, err error, stdout, stderr io.Writer) int {
	compiled, cached := 0, 0
	for _, r := range results {
		for _, w := range r.Warnings {
			fmt.Fprintf(stderr, "%s: %s\n", r.Source.Name, w)
		}
		switch {
		case r.Err != nil:
			fmt.Fprintf(stderr, "%s\n", r.Err)
		case r.Unit != nil:
			compiled++
			if r.Cached {
				cached++
			}
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "Interrupted: %v\n", err)
		return 1
	}
	if build.Failed(results) {
		return 1
	}
	fmt.Fprintf(stdout, "compiled %d units (%d cached)\n", compiled, cached)
	return 0
}

func formatFiles(paths []string, stdout, stderr io.Writer) int {
	if len(paths) == 0 {
		fmt.Fprintf(stderr, "Error: -fmt needs at least one file\n")
		return 2
	}
	status := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			status = 1
			continue
		}
		out, err := compiler.FormatSource(string(data))
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", filepath.Base(path), err)
			status = 1
			continue
		}
		io.WriteString(stdout, out)
	}
	return status
}
