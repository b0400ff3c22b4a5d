package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/readyluo/lasercalcpro-sub004/internal/audit"
	"github.com/readyluo/lasercalcpro-sub004/internal/handler"
	"github.com/readyluo/lasercalcpro-sub004/internal/metrics"
	"github.com/readyluo/lasercalcpro-sub004/internal/model"
	"github.com/readyluo/lasercalcpro-sub004/internal/openapi"
	"github.com/readyluo/lasercalcpro-sub004/internal/server/middleware"
	"github.com/readyluo/lasercalcpro-sub004/internal/service"
	"github.com/readyluo/lasercalcpro-sub004/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	Production      bool  // marks the session cookie Secure
	LoginRateLimit  int   // login attempts per IP per minute, 0 disables
	MaxBodySize     int64 // bytes
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		LoginRateLimit:  10,
		MaxBodySize:     1 << 20, // 1MB
	}
}

// Server is the admin API server. It owns the Chi router and the services
// behind it.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	creds      *service.CredentialService
	tokens     *service.TokenService
	audit      *audit.Recorder
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, creds *service.CredentialService, tokens *service.TokenService, rec *audit.Recorder, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		store:  st,
		creds:  creds,
		tokens: tokens,
		audit:  rec,
		logger: logger,
	}
	s.setupRouter()
	return s
}

// corsOptions allows the listed origins. Credentials (the session cookie)
// are only allowed when every origin is explicit.
func corsOptions(origins []string) cors.Options {
	credentials := true
	for _, o := range origins {
		if o == "*" {
			credentials = false
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}
}

// setupRouter builds the route table. RemoteAddr is left as the socket
// address so the login limiter cannot be steered by forwarding headers;
// ClientIP reads those headers for audit metadata only.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(corsOptions(s.cfg.CORSOrigins)))
	}
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}

	// --- Health checks and metrics (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/openapi.json", s.handleOpenAPI)

	sessionHandler := handler.NewSessionHandler(s.creds, s.tokens, s.audit, s.cfg.Production, s.logger)
	adminHandler := handler.NewAdminHandler(s.creds, s.audit, s.logger)
	roleHandler := handler.NewRoleHandler(s.store, s.audit, s.logger)
	auditHandler := handler.NewAuditHandler(s.audit, s.logger)
	settingsHandler := handler.NewSettingsHandler(s.store, s.audit, s.logger)

	perm := func(module, action string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(s.store, module, action)
	}

	// --- Admin API ---
	r.Route("/api/admin", func(r chi.Router) {
		// Session endpoints are unauthenticated (login) or self-authenticated (logout)
		if s.cfg.LoginRateLimit > 0 {
			r.With(middleware.RateLimit(s.cfg.LoginRateLimit)).Post("/login", sessionHandler.Login)
		} else {
			r.Post("/login", sessionHandler.Login)
		}
		r.Post("/logout", sessionHandler.Logout)
		r.Post("/session/refresh", sessionHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.tokens))

			r.Get("/me", sessionHandler.Me)

			// Account management is reserved to the admin role tag
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(model.RoleAdmin))
				r.Get("/users", adminHandler.List)
				r.Post("/users", adminHandler.Create)
				r.Put("/users/{id}", adminHandler.Update)
				r.Delete("/users/{id}", adminHandler.Delete)
				r.Put("/users/{id}/password", adminHandler.ChangePassword)
			})

			// Roles are governed by the users module of the matrix
			r.With(perm(model.ModuleUsers, model.ActionView)).Get("/roles", roleHandler.List)
			r.With(perm(model.ModuleUsers, model.ActionCreate)).Post("/roles", roleHandler.Create)
			r.With(perm(model.ModuleUsers, model.ActionView)).Get("/roles/{id}", roleHandler.Get)
			r.With(perm(model.ModuleUsers, model.ActionEdit)).Put("/roles/{id}", roleHandler.Update)
			r.With(perm(model.ModuleUsers, model.ActionDelete)).Delete("/roles/{id}", roleHandler.Delete)

			r.With(perm(model.ModuleSettings, model.ActionView)).Get("/audit-logs", auditHandler.List)
			r.With(perm(model.ModuleSettings, model.ActionExport)).Get("/audit-logs/export", auditHandler.Export)
			r.With(perm(model.ModuleSettings, model.ActionView)).Get("/audit-logs/{id}", auditHandler.Get)

			r.With(perm(model.ModuleSettings, model.ActionView)).Get("/settings", settingsHandler.List)
			r.With(perm(model.ModuleSettings, model.ActionEdit)).Put("/settings", settingsHandler.Update)
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store is
// reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{"store": "ok"}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// handleOpenAPI serves the admin API document with the request's host as
// the server URL.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	doc := openapi.Generate(scheme+"://"+r.Host, s.cfg.Version)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(doc)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr, "production", s.cfg.Production)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
