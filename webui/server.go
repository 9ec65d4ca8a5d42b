// Package webui serves the Julia set form to browsers: a static page and a
// websocket per page load that carries field edits and generate triggers to a
// controller and pushes validation state and images back.
package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"juliaform/controller"
	"juliaform/db"
	"juliaform/metrics"
	"juliaform/params"
	"juliaform/webui/static"
)

// ServerConfig configures the Server.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Session         SessionConfig

	// Defaults pre-fills the form of every new session.
	Defaults params.Snapshot

	// History, when set, stores every issued request and serves /history.
	History History
}

// History is the render store sessions write to.
type History interface {
	Enqueue(r db.Render) bool
	RecentRenders(ctx context.Context, limit int) ([]db.Render, error)
}

// DefaultServerConfig returns a ServerConfig listening on addr.
func DefaultServerConfig(addr string) ServerConfig {
	return ServerConfig{
		Addr:            addr,
		ReadTimeout:     15 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Session:         DefaultSessionConfig(),
	}
}

// Server is the HTTP front end.
type Server struct {
	cfg        ServerConfig
	svc        controller.ImageService
	logger     *zap.Logger
	httpServer *http.Server
	stats      *metrics.Store

	mu       sync.Mutex
	sessions map[*Session]struct{}
	baseCtx  context.Context
	cancel   context.CancelFunc
}

// NewServer creates a Server; svc is shared by all sessions.
func NewServer(cfg ServerConfig, svc controller.ImageService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		logger:   logger.Named("webui"),
		stats:    metrics.NewStore(100, time.Now()),
		sessions: make(map[*Session]struct{}),
		baseCtx:  ctx,
		cancel:   cancel,
	}
	s.httpServer = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.Router(),
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
	}
	return s
}

// Router returns the route table:
//
//	GET /ws       websocket form session
//	GET /healthz  liveness, session count and generate counters
//	GET /history  stored requests, newest first (?limit=N)
//	GET /         the form page
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/ws", s.HandleSession).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)

	assets, err := fs.Sub(static.FS, "files")
	if err != nil {
		panic(fmt.Sprintf("webui: embedded assets: %v", err))
	}
	r.PathPrefix("/").Handler(http.FileServer(http.FS(assets))).Methods(http.MethodGet)
	return r
}

// HandleSession upgrades the request and serves one form session.
func (s *Server) HandleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	sess := newSession(conn, s.svc, s.cfg.Defaults, s.cfg.Session, s.stats, s.cfg.History, s.logger)
	n := s.track(sess)
	s.logger.Info("session opened", zap.String("session_id", sess.id), zap.String("remote", r.RemoteAddr), zap.Int("sessions", n))

	sess.run(s.baseCtx)
	s.untrack(sess)
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("webui server starting", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, cancels in-flight image requests and
// closes every open session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down webui server", zap.Int("sessions", s.SessionCount()))

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.cancel()
	s.mu.Lock()
	for sess := range s.sessions {
		sess.conn.Close()
	}
	s.mu.Unlock()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}
	return nil
}

func (s *Server) track(sess *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess] = struct{}{}
	return len(s.sessions)
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}

// Stats returns the generate attempt counters shared by all sessions.
func (s *Server) Stats() *metrics.Store { return s.stats }

type healthResponse struct {
	Status   string           `json:"status"`
	Sessions int              `json:"sessions"`
	Uptime   string           `json:"uptime"`
	Generate metrics.Summary  `json:"generate"`
	Recent   []metrics.Record `json:"recent"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sum := s.stats.Summary()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:   "ok",
		Sessions: s.SessionCount(),
		Uptime:   sum.Uptime.Round(time.Second).String(),
		Generate: sum,
		Recent:   s.stats.Recent(10),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		http.Error(w, "render history is disabled", http.StatusNotFound)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	renders, err := s.cfg.History.RecentRenders(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading render history failed", zap.Error(err))
		http.Error(w, "render history unavailable", http.StatusInternalServerError)
		return
	}
	if renders == nil {
		renders = []db.Render{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(renders)
}

// logRequests logs each request once it completes. The websocket route logs
// when the session ends.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("elapsed", time.Since(start)))
	})
}
