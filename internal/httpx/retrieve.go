package httpx

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/zyncapp/zyncd/internal/app"
)

// handleLatest implements GET /api/clipboard: the most recently admitted
// clip, hydrated with its payload.
func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
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
	entry, err := h.Service.Latest(ctx, cb)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeEntry(w, entry)
}

// handleByTimestamp implements GET /api/clipboard/{timestamp}.
func (h *Handler) handleByTimestamp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		h.writeError(ctx, w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	const prefix = "/api/clipboard/"
	if len(r.URL.Path) <= len(prefix) || r.URL.Path[:len(prefix)] != prefix {
		h.writeError(ctx, w, http.StatusNotFound, "not found")
		return
	}
	ts, err := strconv.ParseInt(r.URL.Path[len(prefix):], 10, 64)
	if err != nil || ts <= 0 {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid timestamp")
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
	entry, err := h.Service.ByTimestamp(ctx, cb, ts)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeEntry(w, entry)
}

// writeEntry streams a hydrated clip: metadata in headers, payload as body.
func (h *Handler) writeEntry(w http.ResponseWriter, entry *app.Entry) {
	w.Header().Set(HeaderTimestamp, strconv.FormatInt(entry.Timestamp, 10))
	w.Header().Set(HeaderCRC32, strconv.FormatUint(uint64(entry.Hash.CRC32), 10))
	if entry.PayloadType != "" {
		w.Header().Set(HeaderPayloadType, entry.PayloadType)
	}
	if len(entry.Encryption) > 0 {
		w.Header().Set(HeaderEncryption, base64.RawURLEncoding.EncodeToString(entry.Encryption))
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(entry.Payload)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(entry.Payload)
}
