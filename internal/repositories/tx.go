package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidtube/backend/internal/db"
)

const (
	txMaxAttempts = 5
	txBaseBackoff = 10 * time.Millisecond
	txMaxBackoff  = 250 * time.Millisecond
)

// inSerializableTx runs fn in a SERIALIZABLE transaction on its own
// connection. Attempts that lose a serialization race are rerun, so fn must
// only derive its results from what it reads inside the transaction.
func inSerializableTx(ctx context.Context, pool db.Pool, fn func(pgx.Tx) error) error {
	return retrySerializable(ctx, func() error {
		conn, err := pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire connection: %w", err)
		}
		defer conn.Release()

		return pgx.BeginTxFunc(ctx, conn, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
	})
}

func retrySerializable(ctx context.Context, attempt func() error) error {
	var err error
	for n := 0; n < txMaxAttempts; n++ {
		if n > 0 {
			timer := time.NewTimer(txBackoff(n))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err = attempt(); !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

// txBackoff doubles from the base delay per retry, up to the cap.
func txBackoff(retry int) time.Duration {
	if retry <= 0 {
		return 0
	}
	backoff := txBaseBackoff << (retry - 1)
	if backoff <= 0 || backoff > txMaxBackoff {
		return txMaxBackoff
	}
	return backoff
}
