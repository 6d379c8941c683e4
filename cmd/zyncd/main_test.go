package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zyncapp/zyncd/internal/app"
	"github.com/zyncapp/zyncd/internal/config"
	"github.com/zyncapp/zyncd/internal/httpx"
	"github.com/zyncapp/zyncd/internal/metrics"
	"github.com/zyncapp/zyncd/internal/store/filesystem"
	"github.com/zyncapp/zyncd/internal/store/sqlite"
)

// TestEnsureDataDir verifies directory and blob subdirectory creation.
func TestEnsureDataDir(t *testing.T) {
	tmp := t.TempDir()
	data := filepath.Join(tmp, "data-root")
	gotData, gotBlob := ensureDataDir(data)
	if gotData != data {
		t.Fatalf("data dir mismatch got %s want %s", gotData, data)
	}
	if gotBlob != filepath.Join(data, "blobs") {
		t.Fatalf("blob dir mismatch got %s", gotBlob)
	}
	if _, err := os.Stat(gotBlob); err != nil {
		t.Fatalf("blob dir stat: %v", err)
	}
}

// buildTestStack wires a real SQLite record store and filesystem blob store
// into the full HTTP handler, mirroring run().
func buildTestStack(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	db, err := sql.Open("sqlite3", filepath.Join(dir, "zyncd.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	records, err := sqlite.New(db)
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	blobDir := filepath.Join(dir, "blobs")
	if err := os.MkdirAll(blobDir, 0o700); err != nil {
		t.Fatalf("mkdir blobs: %v", err)
	}
	blobs, err := filesystem.New(blobDir)
	if err != nil {
		t.Fatalf("filesystem.New: %v", err)
	}
	svc := &app.Service{Records: records, Blobs: blobs}
	cfg := config.DefaultAppConfig
	cfg.DataDir = dir
	mgr := metrics.New(db, metrics.Config{})
	return buildHandler(&cfg, svc, db, blobDir, mgr)
}

func TestEndToEndSubmitAndFetch(t *testing.T) {
	h := buildTestStack(t)

	// Submit one clip.
	body := []byte("encrypted-clip-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/clipboard", bytes.NewReader(body))
	req.Header.Set(httpx.HeaderUser, "alice")
	req.Header.Set(httpx.HeaderTimestamp, "1700000000")
	req.Header.Set(httpx.HeaderCRC32, "123456")
	req.Header.Set(httpx.HeaderPayloadType, "text/plain")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Fetch it back as latest.
	req = httptest.NewRequest(http.MethodGet, "/api/clipboard", nil)
	req.Header.Set(httpx.HeaderUser, "alice")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("latest status=%d", rr.Code)
	}
	got, _ := io.ReadAll(rr.Body)
	if string(got) != string(body) {
		t.Fatalf("payload mismatch: %q", got)
	}
	if rr.Header().Get(httpx.HeaderTimestamp) != "1700000000" {
		t.Fatalf("timestamp header: %q", rr.Header().Get(httpx.HeaderTimestamp))
	}

	// History shows exactly one entry.
	req = httptest.NewRequest(http.MethodGet, "/api/clipboard/history", nil)
	req.Header.Set(httpx.HeaderUser, "alice")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("history status=%d", rr.Code)
	}
	var history []json.RawMessage
	if err := json.Unmarshal(rr.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history len=%d", len(history))
	}
}

func TestEndToEndUnknownUser(t *testing.T) {
	h := buildTestStack(t)
	req := httptest.NewRequest(http.MethodGet, "/api/clipboard", nil)
	req.Header.Set(httpx.HeaderUser, "nobody")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rr.Code)
	}
}
