package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/storelane/auth-engine/internal/domain"
	"github.com/storelane/auth-engine/internal/http/handler"
	"github.com/storelane/auth-engine/internal/http/middleware"
	"github.com/storelane/auth-engine/internal/http/response"
	"github.com/storelane/auth-engine/internal/security"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	SessionHandler   *handler.SessionHandler
	JWTManager       *security.JWTManager
	AuthRateLimitRPM int
	APIRateLimitRPM  int
	AuthRateLimiter  func(http.Handler) http.Handler
	APIRateLimiter   func(http.Handler) http.Handler
	ReadinessCheck   func(ctx context.Context) error
	EnableOTelHTTP   bool
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.BodyLimit(1 << 20))

	apiLimiter := dep.APIRateLimiter
	if apiLimiter == nil {
		apiLimiter = middleware.NewRateLimiter(
			middleware.NewLocalFixedWindowLimiter(), dep.APIRateLimitRPM, time.Minute, middleware.FailOpen, "api",
		).Middleware()
	}
	authLimiter := dep.AuthRateLimiter
	if authLimiter == nil {
		authLimiter = middleware.NewRateLimiter(
			middleware.NewLocalFixedWindowLimiter(), dep.AuthRateLimitRPM, time.Minute, middleware.FailClosed, "auth",
		).Middleware()
	}
	r.Use(apiLimiter)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.ReadinessCheck != nil {
			if err := dep.ReadinessCheck(r.Context()); err != nil {
				response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", nil)
				return
			}
		}
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
	})

	auth := middleware.Auth(dep.JWTManager)

	r.Route("/auth/customer", func(r chi.Router) {
		r.With(authLimiter).Post("/register", dep.AuthHandler.Register)
		r.With(authLimiter).Post("/login", dep.AuthHandler.Login(domain.RealmCustomer))
		r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh(domain.RealmCustomer))
		r.Post("/logout", dep.AuthHandler.Logout(domain.RealmCustomer))
		r.With(auth, middleware.RequireRealm(domain.RealmCustomer), authLimiter).
			Post("/password", dep.AuthHandler.ChangePassword(domain.RealmCustomer))
	})
	r.Route("/auth/employee", func(r chi.Router) {
		r.With(authLimiter).Post("/login", dep.AuthHandler.Login(domain.RealmEmployee))
		r.With(authLimiter).Post("/refresh", dep.AuthHandler.Refresh(domain.RealmEmployee))
		r.Post("/logout", dep.AuthHandler.Logout(domain.RealmEmployee))
		r.With(auth, middleware.RequireRealm(domain.RealmEmployee), authLimiter).
			Post("/password", dep.AuthHandler.ChangePassword(domain.RealmEmployee))
	})

	sessionRoutes := func(realm domain.Realm) func(chi.Router) {
		return func(r chi.Router) {
			r.Use(auth, middleware.RequireRealm(realm))
			r.Get("/", dep.SessionHandler.List)
			r.Delete("/", dep.SessionHandler.RevokeAll)
			r.Delete("/{sessionID}", dep.SessionHandler.Revoke)
		}
	}
	r.Route("/customer/sessions", sessionRoutes(domain.RealmCustomer))
	r.Route("/employee/sessions", sessionRoutes(domain.RealmEmployee))

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
