// Package httpx contains the HTTP delivery layer (net/http handlers) for the
// clipboard sync service. It maps HTTP requests to the application service
// while enforcing identity and size validation, security headers, and error
// translation. Handlers are split across files (submit.go, retrieve.go,
// history.go, batch.go, health.go, errors.go).
package httpx

import (
	"context"
	"net/http"

	"github.com/zyncapp/zyncd/internal/app"
	"github.com/zyncapp/zyncd/internal/domain"
)

// Metadata headers carried alongside clip payloads.
const (
	HeaderUser        = "X-Zync-User"
	HeaderTimestamp   = "X-Zync-Timestamp"
	HeaderCRC32       = "X-Zync-Crc32"
	HeaderPayloadType = "X-Zync-Payload-Type"
	HeaderEncryption  = "X-Zync-Encryption" // base64url-encoded JSON
)

// ServicePort abstracts the subset of app.Service used by the HTTP layer.
// It is satisfied by *app.Service in production and mocked in tests.
type ServicePort interface {
	FindByUser(ctx context.Context, userID string) (*domain.Clipboard, error)
	Submit(ctx context.Context, userID string, meta domain.ClipMeta, payload []byte) (*domain.Clipboard, bool, error)
	History(cb *domain.Clipboard) []domain.ClipMeta
	Latest(ctx context.Context, cb *domain.Clipboard) (*app.Entry, error)
	ByTimestamp(ctx context.Context, cb *domain.Clipboard, timestamp int64) (*app.Entry, error)
	ByTimestamps(ctx context.Context, cb *domain.Clipboard, timestamps []int64) ([]app.Entry, error)
}

// Handler wires HTTP endpoints to the application service.
// It is safe for concurrent use. Zero-value is not valid; construct via New.
type Handler struct {
	Service   ServicePort
	MaxBody   int64                       // maximum accepted payload size
	Readiness func(context.Context) error // optional readiness probe
	Metrics   http.HandlerFunc            // optional metrics snapshot endpoint
}

// New returns a configured Handler.
// svc: application service port implementation.
// maxBody: maximum allowed request body size (0 disables the extra check).
// readiness: optional probe function for /readyz (nil => always ready).
func New(svc ServicePort, maxBody int64, readiness func(context.Context) error) *Handler {
	return &Handler{Service: svc, MaxBody: maxBody, Readiness: readiness}
}

// Router constructs and returns an http.Handler with all routes mounted and
// the correlation-ID and security-header middleware applied.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/clipboard", h.handleClipboard)
	mux.HandleFunc("/api/clipboard/history", h.handleHistory)
	mux.HandleFunc("/api/clipboard/batch", h.handleBatch)
	mux.HandleFunc("/api/clipboard/", h.handleByTimestamp) // expect /api/clipboard/{timestamp}
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/readyz", h.handleReady)
	if h.Metrics != nil {
		mux.Handle("/metricsz", h.Metrics)
	}
	return CorrelationIDMiddleware(h.secureHeaders(mux))
}

// handleClipboard dispatches the bare collection route by method: POST
// submits a new clip, GET returns the latest one.
func (h *Handler) handleClipboard(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r)
	case http.MethodGet:
		h.handleLatest(w, r)
	default:
		h.writeError(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// secureHeaders middleware adds standard security & cache control headers.
// Clipboard payloads are sensitive; nothing served here may be cached.
func (h *Handler) secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(w, r)
	})
}

// userID extracts and validates the caller identity header. Authentication
// itself is out of scope; an upstream proxy is expected to have verified the
// identity this header carries.
func userID(r *http.Request) (string, error) {
	id := r.Header.Get(HeaderUser)
	if id == "" || len(id) > 128 {
		return "", domain.ErrInvalidUserID
	}
	for _, c := range id {
		if c < 0x20 || c == 0x7f {
			return "", domain.ErrInvalidUserID
		}
	}
	return id, nil
}
