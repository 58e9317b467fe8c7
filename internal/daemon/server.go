package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"facephrase/internal/api"
	"facephrase/internal/config"
	"facephrase/internal/logging"
)

type apiServer struct {
	bind    string
	cfg     *config.Config
	logger  *slog.Logger
	daemon  *Daemon
	watcher *watcher

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "http"),
		daemon: d,
	}
	srv.watcher = newWatcher(d.service, cfg.Paths.AllowedOrigins, srv.logger)
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// routes builds the chi router. WriteTimeout is left unset on the server so
// websocket watches can outlive a single request deadline.
func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(cors(s.cfg.Paths.AllowedOrigins))

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/status", s.handleStatus)
		r.Get("/result", s.handleResult)
		r.Get("/health", s.handleHealth)
		r.Get("/jobs", s.handleJobs)
		r.Get("/jobs/{id}/watch", s.watcher.handle)
	})
	r.Handle(api.MediaURLPrefix+"*", http.StripPrefix(strings.TrimSuffix(api.MediaURLPrefix, "/"), mediaHandler(s.cfg)))
	return r
}

func (s *apiServer) start() error {
	if s.bind == "" {
		return errors.New("api listen: paths.api_bind is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "http_serve_failed", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "http_listen"),
	)
	return nil
}

func (s *apiServer) stop(ctx context.Context) {
	s.watcher.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("api server shutdown incomplete",
			logging.Error(err),
			logging.String(logging.FieldEventType, "http_shutdown_timeout"),
		)
	}
	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
