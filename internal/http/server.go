package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/middleware/auth"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Config holds the server's transport settings.
type Config struct {
	Addr string
	// RequestTimeout bounds the context of every API request.
	RequestTimeout  time.Duration
	Auth            auth.Config
	RateLimit       ratelimit.Config
	BlockSuspicious bool
	// MaxUploadBytes bounds document uploads; zero means DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// DefaultMaxUploadBytes is the document upload limit when none is configured.
const DefaultMaxUploadBytes = 10 << 20

// Sizer is a cache reported on /metrics.
type Sizer interface {
	Size() int
}

// CircuitReporter exposes the event publisher's breaker on /metrics.
type CircuitReporter interface {
	CircuitState() (state int32, failures int64)
}

// Deps are the collaborators the handlers serve.
type Deps struct {
	Services *services.Services
	Store    ledger.Store
	Logger   *log.Logger
	// Caches are reported by name on /metrics.
	Caches map[string]Sizer
	// Broker is nil when no publisher is configured.
	Broker CircuitReporter
}

type Server struct {
	http.Server

	services *services.Services
	store    ledger.Store
	caches   map[string]Sizer
	broker   CircuitReporter

	maxUpload int64

	auth     *auth.Authenticator
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, d Deps) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              cfg.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		services: d.Services,
		store:    d.Store,
		caches:   d.Caches,
		broker:   d.Broker,
		auth:     auth.New(cfg.Auth),
		limiter:  ratelimit.NewLimiter(cfg.RateLimit),
		detector: security.NewDetector(cfg.BlockSuspicious),
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, d.Logger)
	s.maxUpload = cfg.MaxUploadBytes
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}

	api := http.NewServeMux()
	s.registerResources(api)
	s.registerActions(api)

	var apiHandler http.Handler = api
	if cfg.RequestTimeout > 0 {
		apiHandler = withTimeout(cfg.RequestTimeout, apiHandler)
	}
	apiHandler = s.auth.Middleware(writeError)(apiHandler)
	apiHandler = s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})(apiHandler)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle(apiPrefix+"/", apiHandler)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Not found").Write(w)
	})

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var root http.Handler = mux
	root = headers.Middleware(root)
	root = s.detector.Middleware(root)
	root = s.tracer.Middleware(root)
	root = trimTrailingSlash(root)
	s.Handler = root
	return s
}

// Shutdown stops background work and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// trimTrailingSlash lets /api/v1/debts/ and /api/v1/debts route alike.
func trimTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			r.URL.Path = strings.TrimRight(p, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
		}
		next.ServeHTTP(w, r)
	})
}

func withTimeout(d time.Duration, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
