package app

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/example/sitetrack/internal/errs"
	"github.com/example/sitetrack/internal/ports/secondary"
)

const txRetryMaxElapsed = 5 * time.Second

func newTxBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 20 * time.Millisecond
	bo.MaxInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = txRetryMaxElapsed
	return bo
}

// withinTx runs fn in a transaction and retries the whole transaction while
// the store reports transient errors. fn must not have effects outside the
// transaction; it may run more than once.
func withinTx(ctx context.Context, tx secondary.Transactor, fn func(ctx context.Context) error) error {
	return backoff.Retry(func() error {
		err := tx.WithinTx(ctx, fn)
		if err != nil && errs.IsRetryable(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(newTxBackoff(), ctx))
}
