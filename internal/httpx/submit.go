package httpx

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/zyncapp/zyncd/internal/domain"
)

// handleSubmit implements POST /api/clipboard. Clip metadata travels in
// headers; the request body is the opaque encrypted payload.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := userID(r)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	clHeader := r.Header.Get("Content-Length")
	if clHeader == "" {
		h.writeError(ctx, w, http.StatusLengthRequired, "content length required")
		return
	}
	cl, err := strconv.ParseInt(clHeader, 10, 64)
	if err != nil || cl <= 0 {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid content length")
		return
	}
	if h.MaxBody > 0 && cl > h.MaxBody {
		h.writeError(ctx, w, http.StatusRequestEntityTooLarge, "size exceeded")
		return
	}
	meta, ok := h.clipMetaFromHeaders(w, r)
	if !ok {
		return
	}
	body := http.MaxBytesReader(w, r.Body, cl)
	defer body.Close()
	payload, err := io.ReadAll(body)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "read body")
		return
	}
	_, duplicate, svcErr := h.Service.Submit(ctx, user, meta, payload)
	if svcErr != nil {
		h.mapServiceError(ctx, w, svcErr)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Timestamp int64 `json:"timestamp"`
		Duplicate bool  `json:"duplicate"`
	}{Timestamp: meta.Timestamp, Duplicate: duplicate})
}

// clipMetaFromHeaders parses and validates the clip metadata headers. On
// failure it writes the error response and returns ok=false.
func (h *Handler) clipMetaFromHeaders(w http.ResponseWriter, r *http.Request) (domain.ClipMeta, bool) {
	ctx := r.Context()
	tsStr := r.Header.Get(HeaderTimestamp)
	crcStr := r.Header.Get(HeaderCRC32)
	if tsStr == "" || crcStr == "" {
		h.writeError(ctx, w, http.StatusBadRequest, "missing required headers")
		return domain.ClipMeta{}, false
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil || ts <= 0 {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid timestamp")
		return domain.ClipMeta{}, false
	}
	crc, err := strconv.ParseUint(crcStr, 10, 32)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid crc32")
		return domain.ClipMeta{}, false
	}
	meta := domain.ClipMeta{
		Timestamp:   ts,
		Hash:        domain.ClipHash{CRC32: uint32(crc)},
		PayloadType: r.Header.Get(HeaderPayloadType),
	}
	if encB64 := r.Header.Get(HeaderEncryption); encB64 != "" {
		enc, err := base64.RawURLEncoding.DecodeString(encB64)
		if err != nil || !json.Valid(enc) {
			h.writeError(ctx, w, http.StatusBadRequest, "invalid encryption metadata")
			return domain.ClipMeta{}, false
		}
		meta.Encryption = enc
	}
	return meta, true
}
