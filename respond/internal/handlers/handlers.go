// Package handlers provides HTTP request handlers for the respond service.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/threatlens/threatlens-stack/common/httputil"
	"github.com/threatlens/threatlens-stack/common/logging"
	"github.com/threatlens/threatlens-stack/respond/internal/auth"
	"github.com/threatlens/threatlens-stack/respond/internal/repository"
	"github.com/threatlens/threatlens-stack/respond/internal/service"
)

// readyTimeout bounds the dependency checks behind /readyz.
const readyTimeout = 3 * time.Second

// Handler provides HTTP handlers for the respond service
type Handler struct {
	svc    *service.Service
	logger *logging.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(svc *service.Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// =============================================================================
// Helper Methods
// =============================================================================

// requireUser returns the caller's id. RequireAuth guarantees one on
// protected routes; a missing id is answered with 401.
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return "", false
	}
	return userID, true
}

// decode reads a JSON body into dst, answering 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

// writeServiceError maps service and repository errors onto HTTP statuses.
// Unknown errors become a generic 500 and are logged with their cause.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrAlertNotFound):
		httputil.WriteError(w, http.StatusNotFound, "not_found", "alert not found")
	case errors.Is(err, repository.ErrSourceNotFound):
		httputil.WriteError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.Is(err, repository.ErrUserNotFound):
		httputil.WriteError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, repository.ErrEmailTaken):
		httputil.WriteError(w, http.StatusConflict, "conflict", "email already registered")
	case errors.Is(err, service.ErrSelfManagement):
		httputil.WriteError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrValidation):
		httputil.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
	case errors.Is(err, service.ErrMissingOwner):
		httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			logging.Method(r.Method),
			logging.Path(r.URL.Path),
			logging.Error(err),
		)
		httputil.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// =============================================================================
// Health Check Handlers
// =============================================================================

// HealthCheck handles GET /healthz
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "respond",
	})
}

// ReadyCheck handles GET /readyz. The database must answer; the prediction
// service is reported but does not gate readiness, since submissions degrade
// to pending records without it.
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := http.StatusOK
	body := map[string]string{
		"status":   "ready",
		"service":  "respond",
		"database": "ok",
	}

	if err := h.svc.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "not_ready"
		body["database"] = "unavailable"
		h.logger.WarnContext(ctx, "readiness check: database unavailable", logging.Error(err))
	}

	if mlStatus, err := h.svc.PredictionHealth(ctx); err != nil {
		body["prediction"] = "unavailable"
	} else {
		body["prediction"] = mlStatus
	}

	httputil.WriteJSON(w, status, body)
}
