// Package server exposes the compiler over the network: a Connect
// compile service for tools and a language server for editors.
package server

import (
	"net/http"

	"github.com/tliron/commonlog"

	"github.com/chazu/jackc/cache"
	"github.com/chazu/jackc/compiler"
)

var log = commonlog.GetLogger("jackc.server")

// Server is the compile service. It serves Connect (HTTP/JSON and
// binary protobuf) on a single mux.
type Server struct {
	worker *Worker
	mux    *http.ServeMux
}

// ServerOption configures a Server or LspServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	order compiler.OperatorOrder
	cache *cache.Store
	files []string
}

// WithOperatorOrder sets the operator order used when a request names none.
func WithOperatorOrder(order compiler.OperatorOrder) ServerOption {
	return func(c *serverConfig) { c.order = order }
}

// WithCache sets the cache consulted by Compile requests.
func WithCache(store *cache.Store) ServerOption {
	return func(c *serverConfig) { c.cache = store }
}

// WithFiles preloads project sources so their classes count as known.
func WithFiles(paths ...string) ServerOption {
	return func(c *serverConfig) { c.files = append(c.files, paths...) }
}

func newConfig(opts []ServerOption) *serverConfig {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// newProjectWorker builds the project described by cfg and starts its
// worker. Files that fail to load are logged and skipped.
func newProjectWorker(cfg *serverConfig) *Worker {
	project := NewProject(cfg.order, cfg.cache)
	for _, path := range cfg.files {
		if err := project.LoadFiles([]string{path}); err != nil {
			log.Warningf("loading %s: %s", path, err)
		}
	}
	return NewWorker(project)
}

// New creates a Server.
func New(opts ...ServerOption) *Server {
	cfg := newConfig(opts)

	s := &Server{
		worker: newProjectWorker(cfg),
		mux:    http.NewServeMux(),
	}

	compileSvc := NewCompileService(s.worker, cfg.order)
	path, handler := compileSvc.Handler()
	s.mux.Handle(path, handler)

	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	log.Noticef("jackc compile service listening on %s", addr)
	log.Noticef("  Connect (HTTP/JSON): http://%s%s", addr, CompileProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the server.
func (s *Server) Stop() {
	s.worker.Stop()
}
