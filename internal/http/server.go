package http

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"financas/internal/attachments"
	applog "financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/services"
	"financas/internal/state"
)

// attachmentMaxAge is a year: attachment names are never reused.
const attachmentMaxAge = 365 * 24 * 60 * 60

// Deps are the collaborators the API serves.
type Deps struct {
	Transactions *services.TransactionService
	Boxes        *services.BoxService
	Settings     *services.SettingsService
	Dashboard    *services.DashboardService
	// State is optional. When set, paid toggles are applied optimistically
	// and /api/state and /api/events are served.
	State *state.Store
	Files attachments.Store
	// AttachmentsDir enables GET /attachments/{name}.
	AttachmentsDir string
	Clock          services.Clock
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
	// Ready backs /readyz; nil means always ready.
	Ready func(ctx context.Context) error

	Logger             *applog.Logger
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server
	deps     Deps
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	clientIP *security.ClientIPResolver

	shutdownOnce sync.Once
}

func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	resolver := security.NewClientIPResolver()
	for _, cidr := range deps.TrustedProxies {
		if err := resolver.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, applog.FieldError, err)
		}
	}

	s := &Server{
		deps:     deps,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		clientIP: resolver,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.limiter.Middleware(resolver.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, resolver.ClientIP(r), applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(handler)
	handler = trace.NewMiddleware(logger, resolver.ClientIP).Middleware(handler)
	handler = applog.Middleware(logger)(handler)
	handler = otelhttp.NewHandler(handler, "financas",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/metrics" }),
	)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	if s.deps.Metrics != nil {
		mux.Handle("/metrics", s.deps.Metrics)
	}

	mux.Handle("/api/transactions", methods{
		http.MethodGet:  s.handleListTransactions,
		http.MethodPost: s.handleCreateTransaction,
	})
	mux.Handle("/api/transactions/{id}", methods{
		http.MethodPut:    s.handleUpdateTransaction,
		http.MethodDelete: s.handleDeleteTransaction,
	})
	mux.Handle("/api/transactions/{id}/paid", methods{http.MethodPost: s.handleTogglePaid})
	mux.Handle("/api/transactions/clone", methods{http.MethodPost: s.handleCloneMonth})
	mux.Handle("/api/transactions/import", methods{http.MethodPost: s.handleImport})

	mux.Handle("/api/boxes", methods{
		http.MethodGet:  s.handleListBoxes,
		http.MethodPost: s.handleCreateBox,
	})
	mux.Handle("/api/boxes/{id}", methods{
		http.MethodPut:    s.handleUpdateBox,
		http.MethodDelete: s.handleDeleteBox,
	})
	mux.Handle("/api/boxes/balances", methods{http.MethodGet: s.handleBoxBalances})

	mux.Handle("/api/settings", methods{
		http.MethodGet: s.handleGetSettings,
		http.MethodPut: s.handleSaveSettings,
	})
	mux.Handle("/api/settings/projection", methods{http.MethodPatch: s.handleUpdateProjection})

	mux.Handle("/api/dashboard/summary", methods{http.MethodGet: s.handleSummary})
	mux.Handle("/api/dashboard/bills", methods{http.MethodGet: s.handleBills})
	mux.Handle("/api/dashboard/budget", methods{http.MethodGet: s.handleBudget})
	mux.Handle("/api/dashboard/monthly", methods{http.MethodGet: s.handleMonthly})
	mux.Handle("/api/projection", methods{http.MethodGet: s.handleProjection})

	mux.Handle("/api/attachments", methods{http.MethodPost: s.handleUploadAttachment})
	if s.deps.AttachmentsDir != "" {
		mux.Handle("/attachments/{name}", security.CacheControl(attachmentMaxAge)(methods{
			http.MethodGet: s.handleServeAttachment,
		}))
	}

	if s.deps.State != nil {
		mux.Handle("/api/state", methods{http.MethodGet: s.handleState})
		mux.Handle("/api/events", methods{http.MethodGet: s.handleEvents})
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// fail logs unexpected errors and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFrom(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, op, applog.FieldPath, r.URL.Path, applog.FieldError, err)
	}
	resp.Write(w)
}

func (s *Server) attachmentPath(name string) string {
	return filepath.Join(s.deps.AttachmentsDir, name)
}

func (s *Server) refreshState() {
	if s.deps.State != nil {
		s.deps.State.Refresh()
	}
}
