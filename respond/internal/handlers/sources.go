package handlers

import (
	"net/http"

	"github.com/threatlens/threatlens-stack/common/httputil"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

// SubmitNetwork handles POST /api/v1/network/submit. A prediction failure
// still answers 201 with prediction_error set.
func (h *Handler) SubmitNetwork(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req models.SubmitNetworkRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.svc.SubmitNetworkTraffic(r.Context(), userID, &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// SubmitEmail handles POST /api/v1/email/submit
func (h *Handler) SubmitEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req models.SubmitEmailRequest
	if !h.decode(w, r, &req) {
		return
	}

	resp, err := h.svc.SubmitEmailCommunication(r.Context(), userID, &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// ListSources returns the handler for GET /api/v1/{network|email}. The
// anomaly_only=true query parameter restricts the page to anomalies.
func (h *Handler) ListSources(kind models.AlertType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.requireUser(w, r)
		if !ok {
			return
		}

		p := httputil.ParsePagination(r, 0)
		filter := models.SourceFilter{AnomalyOnly: r.URL.Query().Get("anomaly_only") == "true"}

		resp, err := h.svc.ListSources(r.Context(), userID, kind, filter, p.Page, p.Limit)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// SourceStatistics returns the handler for GET /api/v1/{network|email}/statistics.
func (h *Handler) SourceStatistics(kind models.AlertType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.requireUser(w, r)
		if !ok {
			return
		}

		stats, err := h.svc.SourceStatistics(r.Context(), userID, kind)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, stats)
	}
}

// GetSource returns the handler for GET /api/v1/{network|email}/{id}.
func (h *Handler) GetSource(kind models.AlertType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.requireUser(w, r)
		if !ok {
			return
		}

		rec, err := h.svc.GetSource(r.Context(), userID, models.SourceRef{Kind: kind, ID: r.PathValue("id")})
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, rec)
	}
}

// DeleteSource returns the handler for DELETE /api/v1/{network|email}/{id}.
func (h *Handler) DeleteSource(kind models.AlertType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.requireUser(w, r)
		if !ok {
			return
		}

		ref := models.SourceRef{Kind: kind, ID: r.PathValue("id")}
		if err := h.svc.DeleteSource(r.Context(), userID, ref); err != nil {
			h.writeServiceError(w, r, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "record deleted"})
	}
}
