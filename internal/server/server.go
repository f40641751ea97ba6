package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jpalmerr/opsboard/internal/history"
	"github.com/jpalmerr/opsboard/internal/sampler"
	"github.com/jpalmerr/opsboard/record"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "IT Operations"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// maxBodyBytes caps JSON request bodies.
	maxBodyBytes = 64 << 10
)

// SpeedRun is a running speed test as seen by the API.
type SpeedRun interface {
	Events() <-chan sampler.Event
	Wait() (sampler.Result, error)
}

// Backend is everything the API reads from and writes to.
type Backend interface {
	LastSpeedTest() (record.SpeedRecord, bool)
	StartSpeedTest(ctx context.Context) SpeedRun

	Backups() []record.BackupRecord
	LatestBackup() (record.BackupRecord, bool)
	AddBackup(date, clock string, status record.BackupStatus, summary string) (record.BackupRecord, error)
	DeleteBackup(timestamp time.Time) int

	LatestMonitoring() (record.MonitorSnapshot, bool)
	MonitoringHistory() []record.MonitorSnapshot
	Targets() []record.Target
	Sweep(ctx context.Context) record.MonitorSnapshot

	Subscribe() <-chan history.Change
	Unsubscribe(ch <-chan history.Change)

	Now() time.Time
}

// Server handles HTTP requests for the dashboard and API.
//
// Routes:
//   - GET /: the embedded dashboard
//   - /api/speedtest, /api/backups, /api/monitor: JSON API
//   - GET /api/events: Server-Sent Events stream of history changes
//   - GET /metrics: Prometheus metrics, when a handler is configured
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	backend    Backend
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	metrics    http.Handler
	logger     *slog.Logger

	// speedTesting guards against overlapping speed tests from the API
	speedTesting atomic.Bool
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - backend: data and actions behind the API
//   - port: TCP port to listen on
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - title: Dashboard title (defaults to "IT Operations" if empty)
//   - metrics: Prometheus handler mounted at /metrics (may be nil)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(backend Backend, port int, assets fs.FS, title string, metrics http.Handler, logger *slog.Logger) *Server {
	return &Server{
		backend: backend,
		port:    port,
		assets:  assets,
		title:   title,
		metrics: metrics,
		logger:  logger,
	}
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/speedtest", s.handleLastSpeedTest)
	mux.HandleFunc("POST /api/speedtest", s.handleRunSpeedTest)

	mux.HandleFunc("GET /api/backups", s.handleListBackups)
	mux.HandleFunc("POST /api/backups", s.handleAddBackup)
	mux.HandleFunc("GET /api/backups/latest", s.handleLatestBackup)
	mux.HandleFunc("GET /api/backups/stats", s.handleBackupStats)
	mux.HandleFunc("DELETE /api/backups/{timestamp}", s.handleDeleteBackup)

	mux.HandleFunc("GET /api/monitor", s.handleMonitor)
	mux.HandleFunc("GET /api/monitor/history", s.handleMonitorHistory)
	mux.HandleFunc("POST /api/monitor/sweep", s.handleSweep)

	mux.HandleFunc("GET /api/events", s.handleEvents)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	// serve dashboard assets
	if s.assets != nil {
		mux.HandleFunc("GET /", s.handleDashboard)
	}

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if s.assets == nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// read index.html from embedded assets
	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	safeTitle := html.EscapeString(title)
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, safeTitle)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// writeJSON encodes v with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
