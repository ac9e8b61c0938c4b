package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	applog "cashbook/internal/log"
	"cashbook/internal/middleware/ratelimit"
	"cashbook/internal/middleware/security"
	"cashbook/internal/middleware/trace"
	"cashbook/internal/services"
)

// Config holds the listener and middleware settings of the API server.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	TrustedProxies     []string
}

// Services are the business operations the handlers call into.
type Services struct {
	Auth         *services.AuthService
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Reminders    *services.ReminderService
	Budgets      *services.BudgetService
	Dashboard    *services.DashboardService
	Scheduler    *services.NotificationScheduler
	Admin        *services.AdminService
	Export       *services.ExportService

	// Ready reports whether backing stores are reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc      Services
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config, svc Services, logger *applog.Logger) (*Server, error) {
	detector, err := security.NewDetector(cfg.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	httpLogger := logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		svc:      svc,
		logger:   httpLogger,
		detector: detector,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerWindow: cfg.RateLimitPerMinute,
			Window:            time.Minute,
		}),
		tracer: trace.NewMiddleware(httpLogger, detector.ExtractClientIP),
		now:    func() time.Time { return time.Now().UTC() },
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(h)
	h = detector.Middleware(func(w http.ResponseWriter, r *http.Request) {
		BadRequestError("bad request").Write(w)
	})(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	auth := s.svc.Auth
	user := func(h http.HandlerFunc) http.HandlerFunc { return requireAuth(auth, h) }
	admin := func(h http.HandlerFunc) http.HandlerFunc { return requireAdmin(auth, h) }

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", user(s.handleLogout))
	mux.HandleFunc("GET /api/auth/me", user(s.handleMe))
	mux.HandleFunc("PUT /api/auth/password", user(s.handleChangePassword))

	mux.HandleFunc("POST /api/devices", user(s.handleRegisterDevice))
	mux.HandleFunc("DELETE /api/devices/{token}", user(s.handleUnregisterDevice))

	mux.HandleFunc("GET /api/categories", user(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", user(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", user(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", user(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/transactions", user(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", user(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", user(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", user(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", user(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/reminders", user(s.handleListReminders))
	mux.HandleFunc("POST /api/reminders", user(s.handleCreateReminder))
	mux.HandleFunc("GET /api/reminders/{id}", user(s.handleGetReminder))
	mux.HandleFunc("PUT /api/reminders/{id}", user(s.handleUpdateReminder))
	mux.HandleFunc("DELETE /api/reminders/{id}", user(s.handleDeleteReminder))
	mux.HandleFunc("POST /api/reminders/{id}/complete", user(s.handleCompleteReminder))

	mux.HandleFunc("GET /api/budgets", user(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", user(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets/status", user(s.handleBudgetStatus))
	mux.HandleFunc("PUT /api/budgets/{id}", user(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", user(s.handleDeleteBudget))

	mux.HandleFunc("GET /api/dashboard", user(s.handleMonthDashboard))
	mux.HandleFunc("GET /api/dashboard/year", user(s.handleYearDashboard))
	mux.HandleFunc("GET /api/notifications", user(s.handleListNotifications))
	mux.HandleFunc("GET /api/export", user(s.handleExport))

	mux.HandleFunc("GET /api/admin/users", admin(s.handleListUsers))
	mux.HandleFunc("PUT /api/admin/users/{id}/role", admin(s.handleSetRole))
	mux.HandleFunc("PUT /api/admin/users/{id}/disabled", admin(s.handleSetDisabled))
	mux.HandleFunc("GET /api/admin/invites", admin(s.handleListInvites))
	mux.HandleFunc("POST /api/admin/invites", admin(s.handleCreateInvite))
	mux.HandleFunc("DELETE /api/admin/invites/{code}", admin(s.handleRevokeInvite))
	mux.HandleFunc("GET /api/admin/settings", admin(s.handleGetSettings))
	mux.HandleFunc("PUT /api/admin/settings", admin(s.handleUpdateSettings))
	mux.HandleFunc("GET /api/admin/stats", admin(s.handleStats))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

type readiness struct {
	Status    string                    `json:"status"`
	Error     string                    `json:"error,omitempty"`
	Requests  trace.Metrics             `json:"requests"`
	RateLimit ratelimit.Metrics         `json:"rate_limit"`
	Security  security.DetectionMetrics `json:"security"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	body := readiness{
		Status:    "ready",
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
		Security:  s.detector.GetMetrics(),
	}
	status := http.StatusOK
	if s.svc.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.svc.Ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			body.Status = "unavailable"
			body.Error = "storage unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	NewJSONResponse().Status(status).Body(body).Write(w)
}
