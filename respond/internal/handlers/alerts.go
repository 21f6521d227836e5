package handlers

import (
	"net/http"

	"github.com/threatlens/threatlens-stack/common/httputil"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

// ListAlerts handles GET /api/v1/alerts
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := models.AlertFilter{
		Status:    models.Status(q.Get("status")),
		Severity:  models.Severity(q.Get("severity")),
		AlertType: models.AlertType(q.Get("alert_type")),
	}
	p := httputil.ParsePagination(r, 0)

	resp, err := h.svc.ListAlerts(r.Context(), userID, filter, p.Page, p.Limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// AlertStatistics handles GET /api/v1/alerts/statistics
func (h *Handler) AlertStatistics(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.AlertStatistics(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stats)
}

// GetAlert handles GET /api/v1/alerts/{id}
func (h *Handler) GetAlert(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	detail, err := h.svc.GetAlert(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, detail)
}

// UpdateAlertStatus handles PUT /api/v1/alerts/{id}/status
func (h *Handler) UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	alert, err := h.svc.UpdateAlertStatus(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, alert)
}

// AddNote handles POST /api/v1/alerts/{id}/notes
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req models.AddNoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	alert, err := h.svc.AddNote(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, alert)
}

// AddAction handles POST /api/v1/alerts/{id}/actions
func (h *Handler) AddAction(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req models.AddActionRequest
	if !h.decode(w, r, &req) {
		return
	}

	alert, err := h.svc.AddAction(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, alert)
}

// DeleteAlert handles DELETE /api/v1/alerts/{id}
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteAlert(r.Context(), userID, r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "alert deleted"})
}
