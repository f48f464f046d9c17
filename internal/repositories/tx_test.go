package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestRetrySerializableRerunsLostRaces(t *testing.T) {
	calls := 0
	err := retrySerializable(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts got %d", calls)
	}
}

func TestRetrySerializableStopsOnOtherErrors(t *testing.T) {
	calls := 0
	unique := &pgconn.PgError{Code: "23505"}
	err := retrySerializable(context.Background(), func() error {
		calls++
		return unique
	})
	if !errors.Is(err, unique) || calls != 1 {
		t.Fatalf("expected one attempt returning the error, got %d %v", calls, err)
	}

	calls = 0
	err = retrySerializable(context.Background(), func() error {
		calls++
		return &pgconn.PgError{Code: "40P01"}
	})
	if !isSerializationFailure(err) || calls != txMaxAttempts {
		t.Fatalf("expected %d attempts, got %d %v", txMaxAttempts, calls, err)
	}
}

func TestRetrySerializableHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	err := retrySerializable(ctx, func() error {
		cancel()
		return &pgconn.PgError{Code: "40001"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}
}

func TestTxBackoff(t *testing.T) {
	cases := map[int]time.Duration{0: 0, 1: txBaseBackoff, 2: 2 * txBaseBackoff, 10: txMaxBackoff, 70: txMaxBackoff}
	for retry, want := range cases {
		if got := txBackoff(retry); got != want {
			t.Errorf("txBackoff(%d) = %s want %s", retry, got, want)
		}
	}
}
