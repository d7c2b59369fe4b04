// Package server exposes the codec over HTTP and pushes decode results of
// watched files to browsers over a websocket.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/conneroisu/mailblocks/internal/compact"
	"github.com/conneroisu/mailblocks/internal/config"
	mailerrors "github.com/conneroisu/mailblocks/internal/errors"
	"github.com/conneroisu/mailblocks/internal/logging"
	"github.com/conneroisu/mailblocks/internal/markup"
	"github.com/conneroisu/mailblocks/internal/registry"
	"github.com/conneroisu/mailblocks/internal/sanitize"
	"github.com/conneroisu/mailblocks/internal/version"
	"github.com/conneroisu/mailblocks/internal/watcher"
)

// maxBodySize bounds request bodies.
const maxBodySize = 5 << 20

// Server serves the codec API and the live document feed.
type Server struct {
	config    *config.Config
	registry  *registry.ComponentRegistry
	logger    logging.Logger
	errors    *mailerrors.ErrorHandler
	hub       *Hub
	sanitizer *sanitize.Sanitizer
	compactor *compact.Compactor
	watch     bool
	startedAt time.Time

	httpServer   *http.Server
	listener     net.Listener
	watcher      *watcher.Watcher
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// Option configures a Server.
type Option func(*Server)

// WithWatch enables the file watcher on the configured watch paths.
func WithWatch(enabled bool) Option {
	return func(s *Server) { s.watch = enabled }
}

// New creates a server. A nil registry means the built-in catalog and a nil
// logger discards output.
func New(cfg *config.Config, reg *registry.ComponentRegistry, logger logging.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, mailerrors.NewConfigError(mailerrors.ErrCodeConfigInvalid, "server needs a configuration")
	}
	if reg == nil {
		reg = registry.Default()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("server")

	s := &Server{
		config:    cfg,
		registry:  reg,
		logger:    logger,
		errors:    mailerrors.NewErrorHandler(logger),
		hub:       NewHub(logger),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Sanitize.Enabled {
		sanitizer, err := sanitize.New(cfg.Sanitize.Policy, reg, logger)
		if err != nil {
			return nil, err
		}
		s.sanitizer = sanitizer
	}
	if cfg.Minify.Enabled {
		s.compactor = compact.New(compact.Options{CSS: cfg.Minify.CSS, HTML: cfg.Minify.HTML}, reg, logger)
	}

	return s, nil
}

func (s *Server) encoder() *markup.Encoder {
	opts := []markup.Option{
		markup.WithRegistry(s.registry),
		markup.WithIndent(s.config.Codec.Indent),
	}
	var sanitizeContent, compactContent markup.ContentTransform
	if s.sanitizer != nil {
		sanitizeContent = s.sanitizer.Content
	}
	if s.compactor != nil {
		compactContent = s.compactor.Content
	}
	if t := markup.ChainTransforms(sanitizeContent, compactContent); t != nil {
		opts = append(opts, markup.WithContentTransform(t))
	}
	return markup.NewEncoder(opts...)
}

func (s *Server) decoder() *markup.Decoder {
	return markup.NewDecoder(
		markup.WithRegistry(s.registry),
		markup.WithRootType(s.config.Codec.RootType),
		markup.WithMaxDepth(s.config.Codec.MaxDepth),
		markup.WithMaxNodes(s.config.Codec.MaxNodes),
		markup.WithLogger(s.logger),
	)
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/components", s.handleComponents)
	mux.HandleFunc("POST /api/encode", s.handleEncode)
	mux.HandleFunc("POST /api/decode", s.handleDecode)
	mux.HandleFunc("POST /api/resolve", s.handleResolve)
	mux.HandleFunc("POST /api/preview", s.handlePreview)

	return chain(mux,
		s.withLogging,
		s.withCORS,
		withSecurityHeaders,
	)
}

// Start runs the server until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)
	go s.forwardRegistryEvents(ctx)

	if s.watch {
		if err := s.startWatcher(ctx); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return mailerrors.NewIOError(mailerrors.ErrCodeIO, "failed to listen", err).
			WithContext("addr", s.config.Server.Addr())
	}

	s.serverMutex.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Server listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Shutdown failed")
		}
	}()

	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Addr returns the listening address once Start has bound it.
func (s *Server) Addr() string {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the watcher, closes websocket clients and the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.serverMutex.RLock()
		server := s.httpServer
		fw := s.watcher
		s.serverMutex.RUnlock()

		if fw != nil {
			if err := fw.Close(); err != nil {
				s.logger.Warn(ctx, err, "Failed to stop file watcher")
			}
		}
		s.hub.CloseAll()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

func (s *Server) forwardRegistryEvents(ctx context.Context) {
	events := s.registry.Watch()
	defer s.registry.UnWatch(events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.hub.Broadcast(Message{
				Type:      MessageRegistryChanged,
				BlockType: event.BlockType,
				Change:    event.Type.String(),
				Timestamp: event.Timestamp,
			})
		}
	}
}

// originAllowed reports whether a browser origin may call the API. Requests
// without an Origin header come from non-browser clients.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// originPatterns converts the allowed origins to websocket host patterns.
func (s *Server) originPatterns() []string {
	patterns := make([]string, 0, len(s.config.Server.AllowedOrigins))
	for _, allowed := range s.config.Server.AllowedOrigins {
		if allowed == "*" {
			patterns = append(patterns, "*")
			continue
		}
		if u, err := url.Parse(allowed); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// chain applies middlewares so that the first one listed runs first.
func chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack hands the connection to the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijacking not supported")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug(r.Context(), "Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String())
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.originAllowed(r) {
			s.logger.Warn(r.Context(),
				mailerrors.NewValidationError(ErrCodeInvalidOrigin, "origin not allowed"),
				"Rejected request", "origin", r.Header.Get("Origin"), "path", r.URL.Path)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Server", version.GetBuildInfo().UserAgent())
		next.ServeHTTP(w, r)
	})
}
