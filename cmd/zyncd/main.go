// Package main provides the zyncd binary entry point: the clipboard sync
// service. It loads configuration from environment variables, wires the
// record store, blob store, metrics manager and reconciler, and starts the
// HTTP server.
//
// The application flow:
//  1. Load and validate configuration.
//  2. Prepare the data directory and open the SQLite database.
//  3. Construct the configured blob backend (filesystem or s3).
//  4. Start the metrics manager and orphan-blob reconciler.
//  5. Start the HTTP server and block until shutdown.
//
// It exits the process with a distinct non-zero status per failure class.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/zyncapp/zyncd/internal/app"
	"github.com/zyncapp/zyncd/internal/config"
	"github.com/zyncapp/zyncd/internal/httpx"
	"github.com/zyncapp/zyncd/internal/metrics"
	"github.com/zyncapp/zyncd/internal/reconciler"
	"github.com/zyncapp/zyncd/internal/store/filesystem"
	"github.com/zyncapp/zyncd/internal/store/s3"
	"github.com/zyncapp/zyncd/internal/store/sqlite"
)

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "err", err)
		os.Exit(2)
	}
	return cfg
}

func ensureDataDir(dir string) (string, string) {
	if st, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if mkErr := os.MkdirAll(dir, 0o700); mkErr != nil {
				slog.Error("failed to create data directory", "dir", dir, "err", mkErr)
				os.Exit(3)
			}
		} else {
			slog.Error("stat data directory", "dir", dir, "err", err)
			os.Exit(3)
		}
	} else if !st.IsDir() {
		slog.Error("data path not directory", "dir", dir)
		os.Exit(3)
	}
	blobDir := filepath.Join(dir, "blobs")
	if err := os.MkdirAll(blobDir, 0o700); err != nil {
		slog.Error("create blobs dir", "err", err)
		os.Exit(5)
	}
	return dir, blobDir
}

func openDatabase(dataDir string) (*sql.DB, *sqlite.Store) {
	dbPath := filepath.Join(dataDir, "zyncd.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		slog.Error("open sqlite driver", "err", err)
		os.Exit(4)
	}
	records, err := sqlite.New(db)
	if err != nil {
		slog.Error("init sqlite schema", "err", err)
		os.Exit(4)
	}
	return db, records
}

func newBlobStore(ctx context.Context, cfg *config.Config, blobDir string) app.BlobStore {
	switch cfg.BlobBackend {
	case "s3":
		blobs, err := s3.New(ctx, s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			slog.Error("init s3 blob storage", "err", err)
			os.Exit(5)
		}
		return blobs
	default:
		blobs, err := filesystem.New(blobDir)
		if err != nil {
			slog.Error("init blob storage", "err", err)
			os.Exit(5)
		}
		return blobs
	}
}

func buildHandler(cfg *config.Config, svc *app.Service, db *sql.DB, blobDir string, mgr *metrics.Manager) http.Handler {
	readiness := func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		if cfg.BlobBackend == "filesystem" {
			if _, err := os.ReadDir(blobDir); err != nil {
				return err
			}
		}
		return nil
	}
	h := httpx.New(svc, cfg.MaxBytes, readiness)
	h.Metrics = metrics.Handler(mgr, cfg.MetricsToken)
	return h.Router()
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{Addr: cfg.Addr, Handler: handler, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}
}

func run() error {
	cfg := loadConfig()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dataDir, blobDir := ensureDataDir(cfg.DataDir)
	db, records := openDatabase(dataDir)
	defer db.Close()
	blobs := newBlobStore(ctx, cfg, blobDir)

	mgr := metrics.New(db, metrics.Config{FlushInterval: cfg.MetricsFlushInterval})
	if err := mgr.InitSchema(ctx); err != nil {
		slog.Error("init metrics schema", "err", err)
		os.Exit(4)
	}
	mgr.Start(ctx)
	defer mgr.Stop(context.Background())

	svc := &app.Service{Records: records, Blobs: blobs, Metrics: mgr}

	rec := reconciler.New(svc, reconciler.Config{Interval: cfg.ReconcileInterval, Observer: mgr})
	rec.Start(ctx)
	defer rec.Stop()

	srv := newServer(cfg, buildHandler(cfg, svc, db, blobDir, mgr))
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	slog.Info("starting server", "addr", cfg.Addr, "blob_backend", cfg.BlobBackend, "pid", os.Getpid())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
