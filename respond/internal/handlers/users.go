package handlers

import (
	"net/http"

	"github.com/threatlens/threatlens-stack/common/httputil"
	"github.com/threatlens/threatlens-stack/respond/internal/models"
)

// ListUsers handles GET /api/v1/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUser(w, r); !ok {
		return
	}

	p := httputil.ParsePagination(r, 0)

	resp, err := h.svc.ListUsers(r.Context(), p.Page, p.Limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// UpdateUser handles PUT /api/v1/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req models.UserUpdate
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.svc.UpdateUser(r.Context(), adminID, r.PathValue("id"), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/v1/users/{id}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	adminID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteUser(r.Context(), adminID, r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
