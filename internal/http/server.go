package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/presentation"
	"fintrack/internal/services"
	appweb "fintrack/web"
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	http.Server
	templates  *template.Template
	dispatcher *services.Dispatcher
	logger     *log.Logger
	metrics    *metrics.Metrics

	dashboards *cache.DashboardCache
	cacheMgr   *cache.Manager
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	checks     []ReadinessCheck

	cacheTTL     time.Duration
	ratePerMin   int
	unsaved      atomic.Bool
	started      time.Time
	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l.WithComponent(log.ComponentHTTP) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Server) { s.cacheTTL = ttl }
}

func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.ratePerMin = perMinute }
}

func WithReadinessCheck(name string, check func(ctx context.Context) error) Option {
	return func(s *Server) { s.checks = append(s.checks, ReadinessCheck{Name: name, Check: check}) }
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, d *services.Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		logger:     log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP),
		cacheTTL:   30 * time.Second,
		started:    time.Now(),
	}
	for _, o := range opts {
		o(s)
	}

	s.dashboards = cache.NewDashboardCache(16, s.cacheTTL, s.metrics)
	s.cacheMgr = cache.NewManager()
	s.cacheMgr.Register(s.dashboards)
	s.cacheMgr.StartCleanup(5 * time.Minute)

	s.limiter = ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: s.ratePerMin})
	s.detector = security.NewDetector()
	s.tracer = trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	s.route(mux, "GET /{$}", "index", s.handleIndex)
	s.route(mux, "GET /healthz", "healthz", s.handleHealth)
	s.route(mux, "GET /readyz", "readyz", s.handleReady)
	s.route(mux, "POST /entries", "entries", s.handleAddEntry)
	s.route(mux, "POST /budget", "budget", s.handleSetBudget)
	s.route(mux, "POST /clear", "clear", s.handleClear)
	s.route(mux, "GET /ui/summary", "summary", s.handleSummary)
	s.route(mux, "GET /api/report", "report", s.handleReport)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit, http.MethodPost)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

// route registers a handler and records its request count and latency
// under a fixed label.
func (s *Server) route(mux *http.ServeMux, pattern, label string, h http.HandlerFunc) {
	if s.metrics == nil {
		mux.HandleFunc(pattern, h)
		return
	}
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.HTTPRequests.WithLabelValues(label, r.Method, strconv.Itoa(rec.status)).Inc()
		s.metrics.HTTPDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	})
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	if s.metrics != nil {
		s.metrics.RateLimited.Inc()
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").Write(w)
}

// dashboard returns the current dashboard, rendered at most once per revision.
func (s *Server) dashboard(ctx context.Context) presentation.Dashboard {
	rev := s.dispatcher.Ledger().Revision()
	d := s.dashboards.Get(rev, func() presentation.Dashboard {
		out, err := s.dispatcher.Dispatch(ctx, services.Command{Action: services.ActionRefresh})
		if err != nil {
			s.logger.ErrorContext(ctx, "Refresh failed", log.FieldError, err.Error())
			return presentation.Empty()
		}
		return out.Dashboard
	})
	if s.unsaved.Load() {
		d.Warning = services.UnsavedWarning
	}
	return d
}

// Shutdown stops background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheMgr.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// ListenAndServe treats a graceful shutdown as success.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening", "addr", s.Addr)
	if err := s.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}
