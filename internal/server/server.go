// Package server serves a built site for local preview.
package server

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-blog/internal/logging"
	"github.com/goliatone/go-blog/pkg/interfaces"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = time.Minute
	defaultShutdownTimeout = 10 * time.Second
	notFoundPage           = "404.html"
)

// Recorder exposes request metrics. Optional.
type Recorder interface {
	Handler() http.Handler
	ObserveRequest(code int)
}

// Config controls the preview server.
type Config struct {
	Addr            string
	BaseURL         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server serves the files of a built site.
type Server struct {
	cfg    Config
	http   *http.Server
	logger interfaces.Logger
}

// New returns a Server over site. A nil recorder disables /metrics.
func New(cfg Config, site fs.FS, recorder Recorder, logger interfaces.Logger) *Server {
	if logger == nil {
		logger = logging.NoOp()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewRouter(site, cfg.BaseURL, recorder),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.started", "addr", ln.Addr().String(), "baseurl", s.cfg.BaseURL)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// NewRouter serves site below baseURL, with /healthz and, when recorder is
// set, /metrics at the root.
func NewRouter(site fs.FS, baseURL string, recorder Recorder) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	if recorder != nil {
		mux.Use(observe(recorder))
		mux.Handle("/metrics", recorder.Handler())
	}
	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	files := &fileHandler{site: site, base: base}
	if base == "" {
		mux.NotFound(files.ServeHTTP)
		return mux
	}
	mux.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, base+"/", http.StatusFound)
	})
	mux.Handle(base, http.RedirectHandler(base+"/", http.StatusMovedPermanently))
	mux.Handle(base+"/*", files)
	mux.NotFound(files.notFound)
	return mux
}

func observe(recorder Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			recorder.ObserveRequest(status)
		})
	}
}

type fileHandler struct {
	site fs.FS
	base string
}

func (h *fileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(r.URL.Path, h.base)), "/")
	if name == "" {
		name = "index.html"
	}

	info, err := fs.Stat(h.site, name)
	switch {
	case err == nil && info.IsDir():
		if !strings.HasSuffix(r.URL.Path, "/") {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
			return
		}
		name = path.Join(name, "index.html")
		if _, err := fs.Stat(h.site, name); err != nil {
			h.notFound(w, r)
			return
		}
	case err != nil:
		if _, htmlErr := fs.Stat(h.site, name+".html"); htmlErr == nil {
			name += ".html"
			break
		}
		h.notFound(w, r)
		return
	}
	http.ServeFileFS(w, r, h.site, name)
}

func (h *fileHandler) notFound(w http.ResponseWriter, _ *http.Request) {
	data, err := fs.ReadFile(h.site, notFoundPage)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(data)
}
