package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"signbridge/internal/catalog"
	"signbridge/internal/config"
	"signbridge/internal/logging"
)

// Index is the clip catalog the server resolves against and rescans.
type Index interface {
	catalog.Lookuper
	Scan(ctx context.Context, dir string) (catalog.ScanResult, error)
	Count(ctx context.Context) (int, error)
	LastScan(ctx context.Context) (time.Time, error)
	Path() string
}

// Server hosts the conversion API, the status endpoint, and the overlay feed.
type Server struct {
	cfg      *config.Config
	index    Index
	resolver *catalog.Resolver
	overlay  http.Handler
	clients  interface{ ClientCount() int }
	limits   *limiterSet
	logger   *slog.Logger
	started  time.Time

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	cron     *cron.Cron
	listener net.Listener
	server   *http.Server
	scanMu   sync.Mutex
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithOverlay mounts the websocket feed at /ws. Handlers that also report a
// client count surface it in /api/status.
func WithOverlay(handler http.Handler) Option {
	return func(s *Server) {
		s.overlay = handler
		if counter, ok := handler.(interface{ ClientCount() int }); ok {
			s.clients = counter
		}
	}
}

// New builds a server over index. Nothing listens until Start.
func New(cfg *config.Config, index Index, opts ...Option) (*Server, error) {
	if cfg == nil || index == nil {
		return nil, errors.New("server requires config and catalog index")
	}
	lockPath := filepath.Join(cfg.Paths.LockDir, "signbridge-server.lock")
	s := &Server{
		cfg:      cfg,
		index:    index,
		resolver: catalog.NewResolver(index, cfg.Catalog.URLPrefix),
		limits:   newLimiterSet(cfg.Catalog.RateLimitPerSec, cfg.Catalog.RateLimitBurst),
		logger:   logging.NewNop(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "catalog-server")
	return s, nil
}

// Handler exposes the routes without binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/api/status", s.handleStatus)
	if s.overlay != nil {
		mux.Handle("/ws", s.overlay)
	}
	return mux
}

// Start takes the instance lock, indexes the clips directory, schedules
// rescans, and begins serving. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("server already running")
	}

	if err := s.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another signbridge server is already running (lock %s)", s.lockPath)
	}

	if _, err := s.Rescan(ctx); err != nil {
		logging.WarnWithContext(s.logger, "initial catalog scan failed", "catalog_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog.clips_dir"),
			logging.String(logging.FieldImpact, "conversions fall back to the previous index"),
		)
	}

	if schedule := strings.TrimSpace(s.cfg.Catalog.RescanSchedule); schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(schedule, func() { s.scheduledRescan(ctx) }); err != nil {
			_ = s.lock.Unlock()
			return fmt.Errorf("schedule rescan %q: %w", schedule, err)
		}
		c.Start()
		s.cron = c
	}

	listener, err := net.Listen("tcp", s.cfg.Catalog.APIBind)
	if err != nil {
		s.stopCronLocked()
		_ = s.lock.Unlock()
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	s.started = time.Now()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("catalog server listening",
		logging.String("address", listener.Addr().String()),
		logging.String("lock", s.lockPath),
	)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down, cancels scheduled rescans, and releases the lock.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.server = nil
	s.listener = nil
	s.stopCronLocked()
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release server lock", logging.Error(err))
	}
	s.logger.Info("catalog server stopped")
}

func (s *Server) stopCronLocked() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
}

// Rescan rebuilds the index from the clips directory. Concurrent calls run one at a time.
func (s *Server) Rescan(ctx context.Context) (catalog.ScanResult, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	res, err := s.index.Scan(ctx, s.cfg.Catalog.ClipsDir)
	if err != nil {
		return res, err
	}
	s.logger.Info("catalog scanned",
		logging.String("dir", res.Dir),
		logging.Int("clips", res.Clips),
		logging.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (s *Server) scheduledRescan(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.Rescan(ctx); err != nil {
		logging.WarnWithContext(s.logger, "scheduled catalog scan failed", "catalog_rescan_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "index keeps the previous contents"),
		)
	}
}
