package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/vidtube/backend/internal/metrics"
)

// BreakerConfig controls when the breaker trips and how long it stays open.
type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerStore guards a Store with a circuit breaker so a failing object
// store is reported as unavailable without waiting on every request.
type BreakerStore struct {
	next    Store
	uploads *gobreaker.CircuitBreaker[Asset]
	deletes *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerStore wraps next with separate breakers for uploads and deletes.
func NewBreakerStore(next Store, cfg BreakerConfig, logger *slog.Logger) *BreakerStore {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	settings := func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:    name,
			Timeout: cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.MaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("media breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}
	}

	return &BreakerStore{
		next:    next,
		uploads: gobreaker.NewCircuitBreaker[Asset](settings("media-upload")),
		deletes: gobreaker.NewCircuitBreaker[struct{}](settings("media-delete")),
	}
}

// Upload forwards to the wrapped store unless the upload breaker is open.
func (b *BreakerStore) Upload(ctx context.Context, kind Kind, file File) (Asset, error) {
	asset, err := b.uploads.Execute(func() (Asset, error) {
		return b.next.Upload(ctx, kind, file)
	})
	record("upload", kind, err)
	if err != nil {
		return Asset{}, unavailable(err)
	}
	return asset, nil
}

// Delete forwards to the wrapped store unless the delete breaker is open.
func (b *BreakerStore) Delete(ctx context.Context, kind Kind, reference string) error {
	_, err := b.deletes.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Delete(ctx, kind, reference)
	})
	record("delete", kind, err)
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func record(op string, kind Kind, err error) {
	result := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	metrics.MediaOperations.WithLabelValues(op, string(kind), result).Inc()
}
