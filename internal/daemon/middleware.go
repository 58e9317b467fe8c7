package daemon

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"facephrase/internal/config"
	"facephrase/internal/logging"
	"facephrase/internal/services"
)

// requestLogger carries chi's request id into the context as the correlation
// id and logs one line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			if rid := middleware.GetReqID(ctx); rid != "" {
				ctx = services.WithRequestID(ctx, rid)
				r = r.WithContext(ctx)
			}
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelDebug
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logging.WithContext(ctx, logger).Log(ctx, level, "http request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Int("bytes", ww.BytesWritten()),
				logging.Duration("elapsed", time.Since(start)),
			)
		})
	}
}

// cors allows the configured browser origins. A "*" entry allows any origin
// without credentials.
func cors(allowedOrigins []string) func(http.Handler) http.Handler {
	allow := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allow[strings.TrimRight(strings.TrimSpace(origin), "/")] = struct{}{}
	}
	_, wildcard := allow["*"]

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				_, ok := allow[origin]
				switch {
				case ok:
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				case wildcard:
					w.Header().Set("Access-Control-Allow-Origin", "*")
				}
				if ok || wildcard {
					w.Header().Add("Vary", "Origin")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
					w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
				}
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// originAllowed reports whether a websocket handshake origin is acceptable.
// Requests without an Origin header come from non-browser clients.
func originAllowed(allowedOrigins []string, origin string) bool {
	if origin == "" {
		return true
	}
	return slices.ContainsFunc(allowedOrigins, func(candidate string) bool {
		candidate = strings.TrimRight(strings.TrimSpace(candidate), "/")
		return candidate == "*" || candidate == origin
	})
}

// mediaHandler serves finished artifacts. Paths are resolved against data_dir
// so URLs match api.MediaURL, but only files inside outputs_dir are exposed.
func mediaHandler(cfg *config.Config) http.Handler {
	return http.FileServer(outputsFS{dataDir: cfg.Paths.DataDir, outputsDir: cfg.Paths.OutputsDir})
}

type outputsFS struct {
	dataDir    string
	outputsDir string
}

func (fs outputsFS) Open(name string) (http.File, error) {
	full := filepath.Join(fs.dataDir, filepath.FromSlash(path.Clean("/"+name)))
	rel, err := filepath.Rel(fs.outputsDir, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
