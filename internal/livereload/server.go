package livereload

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/zishang520/socket.io/v2/socket"
)

// ReloadEvent is the socket.io event name browsers listen for.
const ReloadEvent = "reload"

// ClientPath serves the browser client loaded by every injected page.
const ClientPath = "/socket.io/socket.io.js"

const shutdownTimeout = 5 * time.Second

//go:embed client.js
var clientScript []byte

// Config configures the development server.
type Config struct {
	// Listen is the TCP address, e.g. "localhost:3000".
	Listen string
	// Root is the directory files are served from.
	Root string
	// StartPath is where "/" redirects to. Empty or "/" disables the redirect.
	StartPath string
}

// Server is the live-reload development server. It implements watch.Reloader.
type Server struct {
	cfg     Config
	logger  *slog.Logger
	io      *socket.Server
	handler http.Handler
	clients atomic.Int32

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
}

// New creates a server. Nothing listens until Listen or Run is called.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger.With("component", "livereload")}

	opts := socket.DefaultServerOptions()
	opts.SetServeClient(false)
	s.io = socket.NewServer(nil, opts)
	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		n := s.clients.Add(1)
		s.logger.Debug("Browser connected.", "sid", client.Id(), "clients", n)
		client.On("disconnect", func(...any) {
			n := s.clients.Add(-1)
			s.logger.Debug("Browser disconnected.", "sid", client.Id(), "clients", n)
		})
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc(ClientPath, s.clientHandler)
	mux.Handle("/socket.io/", s.io.ServeHandler(opts))
	mux.Handle("/", s.staticHandler())
	s.handler = mux
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) clientHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(clientScript))
}

// Clients returns the number of connected browsers.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// Listen binds the configured address and returns the actual one, which
// differs when the port was 0.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("dev server failed to listen on %s: %w", s.cfg.Listen, err)
	}
	s.listener = ln
	s.httpSrv = &http.Server{Handler: s.handler, ReadHeaderTimeout: 10 * time.Second}
	return ln.Addr(), nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	srv, ln := s.httpSrv, s.listener
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Dev server started.", "address", fmt.Sprintf("http://%s%s", addr, s.startPath()), "root", s.cfg.Root)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("dev server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down dev server...")
	s.io.Close(nil)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Dev server shutdown failed.", "error", err)
		return err
	}
	logger.Debug("Dev server shut down gracefully.")
	return nil
}

// Reload tells every connected browser to reload. paths are sent along
// relative to the server root when possible.
func (s *Server) Reload(ctx context.Context, paths []string) error {
	rel := make([]string, 0, len(paths))
	for _, p := range paths {
		if r, err := filepath.Rel(s.cfg.Root, p); err == nil && filepath.IsLocal(r) {
			p = filepath.ToSlash(r)
		}
		rel = append(rel, p)
	}
	ctxlog.FromContext(ctx).Info("Reloading browsers.", "clients", s.Clients(), "paths", rel)
	if err := s.io.Sockets().Emit(ReloadEvent, map[string]any{"paths": rel}); err != nil {
		return fmt.Errorf("broadcasting reload: %w", err)
	}
	return nil
}

func (s *Server) startPath() string {
	if s.cfg.StartPath == "" {
		return "/"
	}
	return s.cfg.StartPath
}
