package orders

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/angelmondragon/buildmart-backend/pkg/errors"
)

const conflictBackoffBase = 20 * time.Millisecond

// RetryOnConflict re-runs fn while it fails with CONCURRENCY_CONFLICT, at most
// retries extra times. Any other error, including dependency failures, is
// returned immediately.
func RetryOnConflict(ctx context.Context, retries uint64, fn func(ctx context.Context) error) error {
	backoff := retry.NewExponential(conflictBackoffBase)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(retries, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if pkgerrors.IsCode(err, pkgerrors.CodeConcurrencyConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}
