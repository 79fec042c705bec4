// Package retry runs an operation again when it fails with a transient error.
//
// A failure is transient when errors.IsRetryable reports true: no response
// was received, the server answered 5xx, or it answered 429. Everything else
// is returned to the caller at once, and the returned error is always the
// operation's original error so callers can still classify it.
//
// Attempts are strictly sequential. The delay before retry n is
// InitialDelay * 2^(n-1) unless a different BackoffStrategy is supplied.
// Cancelling the context aborts a pending backoff sleep; the operation
// should close over the same context so an in-flight request aborts too.
//
//	locations, err := retry.RunWithResult(ctx, func() ([]models.Location, error) {
//		return svc.List(ctx, filter)
//	}, &retry.Options{
//		MaxRetries:   3,
//		InitialDelay: 500 * time.Millisecond,
//		OnRetry: func(attempt int, err error) {
//			ui.PrintWarning("retrying", errors.UserFriendlyMessage(err))
//		},
//	})
//
// Operations must be idempotent. The executor has no knowledge of side
// effects and re-invokes the operation blindly.
package retry
