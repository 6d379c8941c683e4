// Package reconciler implements background cleanup of orphaned clipboard
// blobs. Metadata and blob writes are not transactional with each other, so
// a crash between the two can leave blobs no record references; this loop
// removes them. It runs independently from the request path to keep
// lifecycle concerns isolated.
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Cleaner abstracts the single store operation the reconciler requires. The
// application service satisfies it: one pass diffs blob storage against
// record-referenced paths and deletes orphans best-effort.
type Cleaner interface {
	// Reconcile removes unreferenced blobs and returns how many were deleted.
	Reconcile(ctx context.Context) (int, error)
}

// Observer receives per-cycle orphan counts; the metrics manager satisfies
// it. Nil disables observation.
type Observer interface {
	Observe(name string, value int64)
}

// SummaryOrphansPerCycle names the per-cycle orphan count summary.
const SummaryOrphansPerCycle = "reconciler_orphans_per_cycle"

// Config holds tunables for the Reconciler.
type Config struct {
	Interval time.Duration // how often a cycle begins
	Logger   *slog.Logger  // optional logger (defaults to slog.Default())
	Observer Observer      // optional per-cycle metrics sink
}

// Metrics accumulates counters (in-memory) for operational insight.
type Metrics struct {
	mu                  sync.Mutex
	Cycles              uint64
	OrphansDeleted      uint64
	CycleLastDurationMS int64
}

// MetricsView is a read-only snapshot safe to copy.
type MetricsView struct {
	Cycles              uint64
	OrphansDeleted      uint64
	CycleLastDurationMS int64
}

func (m *Metrics) addOrphans(n int) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.OrphansDeleted += uint64(n)
	m.mu.Unlock()
}

func (m *Metrics) recordCycle(d time.Duration) {
	m.mu.Lock()
	m.Cycles++
	m.CycleLastDurationMS = d.Milliseconds()
	m.mu.Unlock()
}

// Reconciler encapsulates the background cleanup loop.
type Reconciler struct {
	cleaner Cleaner
	cfg     Config
	metrics *Metrics

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs but does not start a Reconciler.
func New(cleaner Cleaner, cfg Config) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Reconciler{
		cleaner: cleaner,
		cfg:     cfg,
		metrics: &Metrics{},
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start launches the reconciler loop in a new goroutine.
func (r *Reconciler) Start(ctx context.Context) {
	if r.ticker != nil {
		return
	} // already started
	r.ticker = time.NewTicker(r.cfg.Interval)
	go r.loop(ctx)
}

// Stop signals the loop to exit and waits for completion.
func (r *Reconciler) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

// MetricsSnapshot returns a copy of current metrics.
func (r *Reconciler) MetricsSnapshot() MetricsView {
	r.metrics.mu.Lock()
	defer r.metrics.mu.Unlock()
	return MetricsView{
		Cycles:              r.metrics.Cycles,
		OrphansDeleted:      r.metrics.OrphansDeleted,
		CycleLastDurationMS: r.metrics.CycleLastDurationMS,
	}
}

func (r *Reconciler) loop(ctx context.Context) {
	log := r.cfg.Logger.With("domain", "reconciler")
	defer func() {
		if r.ticker != nil {
			r.ticker.Stop()
		}
		close(r.doneCh)
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info("reconciler stop", "reason", "context_cancel")
			return
		case <-r.stopCh:
			log.Info("reconciler stop", "reason", "stop_signal")
			return
		case <-r.ticker.C:
			r.runCycle(ctx)
		}
	}
}

// runCycle performs one orphan cleanup cycle.
func (r *Reconciler) runCycle(ctx context.Context) {
	start := time.Now()
	log := r.cfg.Logger.With("domain", "reconciler", "action", "cycle")
	removed, err := r.cleaner.Reconcile(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("reconcile", "error", err)
	}
	r.metrics.addOrphans(removed)
	r.metrics.recordCycle(time.Since(start))
	if r.cfg.Observer != nil {
		r.cfg.Observer.Observe(SummaryOrphansPerCycle, int64(removed))
	}
	log.Info("cycle complete", "orphans_deleted", removed, "ms", time.Since(start).Milliseconds())
}
