// Package server provides HTTP server setup for the respond service.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/common/middleware"
	"github.com/threatlens/threatlens-stack/respond/internal/auth"
	"github.com/threatlens/threatlens-stack/respond/internal/handlers"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
	"github.com/threatlens/threatlens-stack/respond/internal/ratelimit"
)

// Deps are the collaborators the router wires together.
type Deps struct {
	Handler *handlers.Handler
	Auth    *auth.Middleware
	Limiter ratelimit.RateLimiter
	Logger  *logging.Logger
}

// NewRouter constructs a ServeMux with respond API routes registered.
func NewRouter(d Deps) http.Handler {
	h := d.Handler
	limiter := d.Limiter
	if limiter == nil {
		limiter = &ratelimit.NoOpRateLimiter{}
	}

	mux := http.NewServeMux()

	// Health check endpoints
	mux.HandleFunc("GET /healthz", h.HealthCheck)
	mux.HandleFunc("GET /readyz", h.ReadyCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	protected := func(fn http.HandlerFunc) http.Handler {
		return d.Auth.RequireAuth(fn)
	}
	submit := func(fn http.HandlerFunc) http.Handler {
		return d.Auth.RequireAuth(rateLimit(limiter, d.Logger, fn))
	}
	admin := func(fn http.HandlerFunc) http.Handler {
		return d.Auth.RequireAuth(auth.RequireRole(models.RoleAdmin, fn))
	}

	// Identity
	mux.HandleFunc("POST /api/v1/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.Handle("POST /api/v1/auth/refresh", protected(h.Refresh))
	mux.Handle("GET /api/v1/auth/me", protected(h.Me))
	mux.Handle("GET /api/v1/auth/profile", protected(h.Me))
	mux.Handle("PUT /api/v1/auth/profile", protected(h.UpdateProfile))
	mux.Handle("PUT /api/v1/auth/password", protected(h.ChangePassword))

	// Account administration
	mux.Handle("GET /api/v1/users", admin(h.ListUsers))
	mux.Handle("PUT /api/v1/users/{id}", admin(h.UpdateUser))
	mux.Handle("DELETE /api/v1/users/{id}", admin(h.DeleteUser))

	// Source records
	for _, kind := range models.AlertTypes {
		base := "/api/v1/" + string(kind)
		mux.Handle("GET "+base, protected(h.ListSources(kind)))
		mux.Handle("GET "+base+"/statistics", protected(h.SourceStatistics(kind)))
		mux.Handle("GET "+base+"/{id}", protected(h.GetSource(kind)))
		mux.Handle("DELETE "+base+"/{id}", protected(h.DeleteSource(kind)))
	}
	mux.Handle("POST /api/v1/network/submit", submit(h.SubmitNetwork))
	mux.Handle("POST /api/v1/email/submit", submit(h.SubmitEmail))

	// Alerts. Every route, deletion included, is scoped to the caller's own
	// alerts; the admin role does not widen it.
	mux.Handle("GET /api/v1/alerts", protected(h.ListAlerts))
	mux.Handle("GET /api/v1/alerts/statistics", protected(h.AlertStatistics))
	mux.Handle("GET /api/v1/alerts/{id}", protected(h.GetAlert))
	mux.Handle("PUT /api/v1/alerts/{id}/status", protected(h.UpdateAlertStatus))
	mux.Handle("POST /api/v1/alerts/{id}/notes", protected(h.AddNote))
	mux.Handle("POST /api/v1/alerts/{id}/actions", protected(h.AddAction))
	mux.Handle("DELETE /api/v1/alerts/{id}", protected(h.DeleteAlert))

	return middleware.RequestID(accessLog(d.Logger, mux))
}
