// Package preview serves the published output tree over HTTP.
package preview

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"git.home.luguber.info/inful/mirage/internal/build"
	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
	"git.home.luguber.info/inful/mirage/internal/logfields"
)

// Server serves a static output directory.
type Server struct {
	root    string
	port    int
	logger  *slog.Logger
	adapter *ferrors.HTTPErrorAdapter
	srv     *http.Server
	ln      net.Listener
}

// New creates a preview server for root on port (0 picks a free port).
func New(root string, port int) *Server {
	logger := slog.Default()
	return &Server{
		root:    root,
		port:    port,
		logger:  logger,
		adapter: ferrors.NewHTTPErrorAdapter(logger),
	}
}

// Handler returns the server's routes wrapped in logging and recovery middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/", s.serveFile)
	return chain(s.logger, s.adapter, mux)
}

// activeRoot returns the output root, or its backup while a new tree is
// being promoted.
func (s *Server) activeRoot() string {
	if _, err := os.Stat(s.root); err == nil {
		return s.root
	}
	prev := build.PrevDir(s.root)
	if _, err := os.Stat(prev); err == nil {
		return prev
	}
	return s.root
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	http.ServeFile(w, r, ResolvePath(s.activeRoot(), r.URL.EscapedPath()))
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(s.port)))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryServer, "failed to bind preview server").
			WithContext("port", s.port).
			Fatal().
			Build()
	}
	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Preview server listening", logfields.Port(s.Port()), logfields.URL("http://localhost:"+strconv.Itoa(s.Port())))
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Preview server stopped", logfields.Error(err))
		}
	}()
	return nil
}

// Port returns the bound port once started, else the configured one.
func (s *Server) Port() int {
	if s.ln != nil {
		if addr, ok := s.ln.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return s.port
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
