// Package app assembles and runs the turns HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/louisbranch/roundtable/internal/advancer"
	"github.com/louisbranch/roundtable/internal/api"
	"github.com/louisbranch/roundtable/internal/storage/sqlite"
)

// Options configure the turns server.
type Options struct {
	// Port is the TCP port the HTTP listener binds to.
	Port int
	// DBPath locates the SQLite database file; parent directories are
	// created as needed.
	DBPath string
	// Secret is the shared deployment secret checked on mutating routes;
	// empty disables the check.
	Secret string
}

// Server hosts the turns service.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
}

// New creates a configured turns server listening on the provided port.
func New(opts Options) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", opts.Port, err)
	}
	store, err := openStore(opts.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	adv, err := advancer.New(advancer.Stores{
		SessionState: store,
		Entries:      store,
		Tallies:      store,
		Audit:        store,
	})
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("build advancer: %w", err)
	}

	handler, err := api.New(adv, opts.Secret)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("build handler: %w", err)
	}

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           otelhttp.NewHandler(handler, "turns"),
			ReadHeaderTimeout: 10 * time.Second,
		},
		store: store,
	}, nil
}

// Addr returns the listener address for the turns server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a turns server until the context ends.
func Run(ctx context.Context, opts Options) error {
	server, err := New(opts)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the turns server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	log.Printf("turns server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

func openStore(path string) (*sqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "turns.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open turns sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil {
		return
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close turns store: %v", err)
		}
	}
}
