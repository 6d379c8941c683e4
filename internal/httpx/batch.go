package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/zyncapp/zyncd/internal/domain"
)

// batchEntry is the JSON shape of one hydrated clip in a batch response.
// Payload is base64-encoded by encoding/json.
type batchEntry struct {
	Timestamp   int64           `json:"timestamp"`
	Hash        domain.ClipHash `json:"hash"`
	Encryption  json.RawMessage `json:"encryption,omitempty"`
	PayloadType string          `json:"payload-type"`
	Payload     []byte          `json:"payload"`
}

// handleBatch implements GET /api/clipboard/batch?ts=a,b,c. The batch is
// strict: if any requested timestamp is absent the whole call returns 404.
func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
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
	raw := r.URL.Query().Get("ts")
	if raw == "" {
		h.writeError(ctx, w, http.StatusBadRequest, "missing ts parameter")
		return
	}
	parts := strings.Split(raw, ",")
	timestamps := make([]int64, 0, len(parts))
	for _, p := range parts {
		ts, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || ts <= 0 {
			h.writeError(ctx, w, http.StatusBadRequest, "invalid timestamp")
			return
		}
		timestamps = append(timestamps, ts)
	}
	cb, err := h.Service.FindByUser(ctx, user)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	entries, err := h.Service.ByTimestamps(ctx, cb, timestamps)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	out := make([]batchEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, batchEntry{
			Timestamp:   e.Timestamp,
			Hash:        e.Hash,
			Encryption:  e.Encryption,
			PayloadType: e.PayloadType,
			Payload:     e.Payload,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}
