package media

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/metrics"
)

// ReaperConfig controls the concurrency characteristics of the reaper.
type ReaperConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// Reaper deletes media that is no longer referenced, off the request path.
type Reaper struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan reapJob
	wg     sync.WaitGroup
}

type reapJob struct {
	kind      Kind
	reference string
}

// ErrReaperClosed is returned by Enqueue after Shutdown.
var ErrReaperClosed = errors.New("media reaper closed")

// NewReaper starts a worker pool that deletes queued references from store.
func NewReaper(store Store, cfg ReaperConfig, logger *slog.Logger) *Reaper {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Reaper{
		store:   store,
		logger:  logger,
		timeout: cfg.Timeout,
		jobs:    make(chan reapJob, cfg.QueueSize),
	}

	r.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go r.worker()
	}

	return r
}

// Enqueue schedules deletion of reference. Empty references are ignored.
func (r *Reaper) Enqueue(ctx context.Context, kind Kind, reference string) error {
	if strings.TrimSpace(reference) == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrReaperClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r.jobs <- reapJob{kind: kind, reference: reference}:
		metrics.MediaReaperQueue.Inc()
		return nil
	}
}

// Shutdown stops accepting work and waits for queued deletions to finish.
func (r *Reaper) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.jobs)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *Reaper) worker() {
	defer r.wg.Done()

	for job := range r.jobs {
		metrics.MediaReaperQueue.Dec()
		r.handleJob(job)
	}
}

func (r *Reaper) handleJob(job reapJob) {
	if r.store == nil {
		r.logger.Error("media reaper missing store", "reference", job.reference)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.Delete(ctx, job.kind, job.reference); err != nil {
		r.logger.Error("media deletion failed", "kind", job.kind, "reference", job.reference, "error", err)
		return
	}
	r.logger.Debug("media deleted", "kind", job.kind, "reference", job.reference)
}
