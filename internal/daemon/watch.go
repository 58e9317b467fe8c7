package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"facephrase/internal/api"
	"facephrase/internal/jobs"
	"facephrase/internal/logging"
	"facephrase/internal/services"
)

const (
	defaultWatchInterval = time.Second
	watchWriteTimeout    = 5 * time.Second
)

// WatchEvent is one status snapshot pushed to websocket watchers.
type WatchEvent struct {
	JobID string `json:"jobId"`
	api.StatusView
}

type statusReader interface {
	Status(ctx context.Context, id string) (api.StatusView, error)
}

// watcher streams status snapshots for a job until it reaches a terminal
// state. Snapshots are sent on change only.
type watcher struct {
	service  statusReader
	upgrader websocket.Upgrader
	interval time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWatcher(service statusReader, allowedOrigins []string, logger *slog.Logger) *watcher {
	return &watcher{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if originAllowed(allowedOrigins, origin) {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && strings.EqualFold(u.Host, r.Host)
			},
		},
		interval: defaultWatchInterval,
		logger:   logger,
		conns:    make(map[*websocket.Conn]struct{}),
	}
}

func (wt *watcher) handle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := services.WithJobID(r.Context(), id)
	logger := logging.WithContext(ctx, wt.logger)

	// Resolve the job before upgrading so unknown ids get a plain 404.
	first, err := wt.service.Status(ctx, id)
	if err != nil {
		status, message := http.StatusInternalServerError, "Internal server error"
		if errors.Is(err, services.ErrNotFound) {
			status, message = http.StatusNotFound, "Job not found"
		}
		http.Error(w, `{"error":"`+message+`"}`, status)
		return
	}

	conn, err := wt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	wt.track(conn)
	defer wt.untrack(conn)

	// The read pump only exists to notice the client going away.
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	logger.Debug("watch started", logging.String(logging.FieldEventType, "watch_start"))
	wt.stream(watchCtx, conn, id, first, logger)
}

func (wt *watcher) stream(ctx context.Context, conn *websocket.Conn, id string, view api.StatusView, logger *slog.Logger) {
	last := view
	if err := wt.send(conn, id, view); err != nil {
		return
	}
	ticker := time.NewTicker(wt.interval)
	defer ticker.Stop()

	for !isTerminal(last) {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		current, err := wt.service.Status(ctx, id)
		if err != nil {
			logger.Debug("watch status read failed", logging.Error(err))
			continue
		}
		if current.Status == last.Status && current.Progress == last.Progress {
			continue
		}
		if err := wt.send(conn, id, current); err != nil {
			return
		}
		last = current
	}

	deadline := time.Now().Add(watchWriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, last.Status), deadline)
}

func (wt *watcher) send(conn *websocket.Conn, id string, view api.StatusView) error {
	_ = conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
	return conn.WriteJSON(WatchEvent{JobID: id, StatusView: view})
}

func (wt *watcher) track(conn *websocket.Conn) {
	wt.mu.Lock()
	wt.conns[conn] = struct{}{}
	wt.mu.Unlock()
}

func (wt *watcher) untrack(conn *websocket.Conn) {
	wt.mu.Lock()
	delete(wt.conns, conn)
	wt.mu.Unlock()
	conn.Close()
}

// closeAll disconnects every watcher. Hijacked connections are not covered by
// http.Server.Shutdown.
func (wt *watcher) closeAll() {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	deadline := time.Now().Add(time.Second)
	for conn := range wt.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), deadline)
		conn.Close()
	}
}

func isTerminal(view api.StatusView) bool {
	return jobs.Status(view.Status).IsTerminal()
}
