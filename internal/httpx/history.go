package httpx

import (
	"encoding/json"
	"net/http"
)

// handleHistory implements GET /api/clipboard/history: the retained clip
// metadata in arrival order, without payloads.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user, err := userID(r)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	cb, err := h.Service.FindByUser(ctx, user)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	history := h.Service.History(cb)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(history)
}
