package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"nestegg/internal/aggregate"
	"nestegg/internal/auth"
	"nestegg/internal/cache"
	"nestegg/internal/core"
	applog "nestegg/internal/log"
	"nestegg/internal/middleware/ratelimit"
	"nestegg/internal/middleware/security"
	"nestegg/internal/middleware/trace"
	"nestegg/internal/services"
)

// AccountAPI is the write and lookup surface the handlers need.
type AccountAPI interface {
	ListConnections(ctx context.Context, userID string) ([]core.Connection, error)
	CreateConnection(ctx context.Context, userID string, c core.Connection) (core.Connection, error)
	ListAccounts(ctx context.Context, userID, connectionID string) ([]core.Account, error)
	GetAccount(ctx context.Context, userID, id string) (core.Account, error)
	CreateAccount(ctx context.Context, userID string, a core.Account) (core.Account, error)
	DeleteAccount(ctx context.Context, userID, id string) error
	ListBalances(ctx context.Context, userID, accountID string, since time.Time) ([]core.BalancePoint, error)
	LatestBalance(ctx context.Context, userID, accountID string) (*core.BalancePoint, error)
	RecordBalance(ctx context.Context, userID, accountID string, b core.BalancePoint) (core.BalancePoint, error)
	ListTransactions(ctx context.Context, userID, accountID string) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, userID, accountID string, t core.Transaction) (core.Transaction, error)
}

// OverviewAPI serves the derived dashboard views.
type OverviewAPI interface {
	Overview(ctx context.Context, userID string) (*services.Overview, error)
	Chart(ctx context.Context, userID string, opts aggregate.ChartOptions) ([]aggregate.ChartRow, error)
	History(ctx context.Context, userID string) ([]core.Account, error)
	Since() time.Time
}

// Check is a readiness probe for one dependency.
type Check func(ctx context.Context) error

// Deps are the collaborators of the server. Checks and CacheStats are optional.
type Deps struct {
	Accounts           AccountAPI
	Overview           OverviewAPI
	Sessions           *auth.Sessions
	Logger             *applog.Logger
	RateLimitPerMinute int
	TrustedProxies     []string
	Checks             map[string]Check
	CacheStats         func() cache.Stats
}

type Server struct {
	http.Server
	accounts   AccountAPI
	overview   OverviewAPI
	sessions   *auth.Sessions
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	checks     map[string]Check
	cacheStats func() cache.Stats
	started    time.Time
	now        func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Accounts == nil || deps.Overview == nil || deps.Sessions == nil {
		return nil, fmt.Errorf("http server requires accounts, overview and sessions")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	detector, err := security.NewDetector(deps.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	s := &Server{
		accounts:   deps.Accounts,
		overview:   deps.Overview,
		sessions:   deps.Sessions,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector:   detector,
		tracer:     trace.NewMiddleware(logger, detector.ExtractClientIP),
		checks:     deps.Checks,
		cacheStats: deps.CacheStats,
		started:    time.Now(),
		now:        func() time.Time { return time.Now().UTC() },
	}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/session", s.handleSession)
	api.HandleFunc("GET /api/connections", s.handleListConnections)
	api.HandleFunc("POST /api/connections", s.handleCreateConnection)
	api.HandleFunc("GET /api/accounts", s.handleListAccounts)
	api.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	api.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	api.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	api.HandleFunc("GET /api/accounts/{id}/balances", s.handleListBalances)
	api.HandleFunc("GET /api/accounts/{id}/balances/latest", s.handleLatestBalance)
	api.HandleFunc("POST /api/accounts/{id}/balances", s.handleRecordBalance)
	api.HandleFunc("GET /api/accounts/{id}/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/accounts/{id}/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/overview", s.handleOverview)
	api.HandleFunc("GET /api/overview/chart", s.handleChart)
	api.HandleFunc("GET /api/export/balances.xlsx", s.handleExportXLSX)

	requireSession := s.sessions.Middleware(func(w http.ResponseWriter, r *http.Request, err error) {
		ServiceError(err).Write(w)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("/api/", requireSession(api))

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	}

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
