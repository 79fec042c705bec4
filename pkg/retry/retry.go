package retry

import (
	"context"
	"errors"
	"time"

	errs "butterfliy/pkg/errors"
	"butterfliy/pkg/logger"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt
	DefaultMaxRetries = 2
	// DefaultInitialDelay is the sleep before the first retry
	DefaultInitialDelay = time.Second
)

// Operation is a unit of work that may be invoked more than once.
// It must be idempotent: the executor re-invokes it blindly.
type Operation func() error

// OperationWithResult is an Operation that yields a value
type OperationWithResult[T any] func() (T, error)

// Options configures a retry run
type Options struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// InitialDelay is the delay before the first retry; later delays double
	InitialDelay time.Duration
	// OnRetry is called with the 1-based retry number and the error just
	// before each backoff sleep. It is not called after the final attempt.
	OnRetry func(attempt int, err error)
	// Backoff overrides the doubling schedule derived from InitialDelay
	Backoff BackoffStrategy
	// RetryIf decides whether an error is transient
	RetryIf func(error) bool
	Logger  logger.Logger
}

// DefaultOptions returns two retries starting at one second
func DefaultOptions() *Options {
	return &Options{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		RetryIf:      errs.IsRetryable,
		Logger:       logger.GetLogger(),
	}
}

// BackoffOptions returns the longer schedule used for background refreshes:
// three retries starting at one second.
func BackoffOptions() *Options {
	opts := DefaultOptions()
	opts.MaxRetries = 3
	return opts
}

// normalized fills zero values so Run never has to nil-check
func (o *Options) normalized() Options {
	var n Options
	if o == nil {
		n = *DefaultOptions()
	} else {
		n = *o
	}

	if n.MaxRetries < 0 {
		n.MaxRetries = 0
	}
	if n.InitialDelay <= 0 {
		n.InitialDelay = DefaultInitialDelay
	}
	if n.Backoff == nil {
		n.Backoff = NewExponentialBackoff(n.InitialDelay)
	}
	if n.RetryIf == nil {
		n.RetryIf = errs.IsRetryable
	}
	if n.Logger == nil {
		n.Logger = logger.NewNopLogger()
	}
	return n
}

// Run invokes op until it succeeds, fails with a non-retryable error, or
// the retry budget is spent. The error returned is the operation's own
// error, unchanged. If ctx ends first, Run stops without another attempt and
// returns ctx.Err() joined with the last operation error.
func Run(ctx context.Context, op Operation, opts *Options) error {
	o := opts.normalized()

	var lastErr error
	for attempt := 0; attempt <= o.MaxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return cancelled(ctxErr, lastErr)
		}

		err := op()
		if err == nil {
			if attempt > 0 {
				o.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt + 1,
				})
			}
			return nil
		}
		lastErr = err

		if !o.RetryIf(err) {
			o.Logger.DebugWithFields("error is not retryable", map[string]interface{}{
				"error": err.Error(),
				"class": string(errs.Classify(err).Class()),
			})
			return err
		}

		if attempt == o.MaxRetries {
			if o.MaxRetries > 0 {
				o.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt + 1,
					"last_error": err.Error(),
				})
			}
			return err
		}

		if o.OnRetry != nil {
			o.OnRetry(attempt+1, err)
		}

		delay := o.Backoff.NextDelay(attempt + 1)
		o.Logger.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":     attempt + 1,
			"max_retries": o.MaxRetries,
			"delay_ms":    delay.Milliseconds(),
			"error":       err.Error(),
		})

		if waitErr := Wait(ctx, delay); waitErr != nil {
			o.Logger.WarnWithFields("retry cancelled", map[string]interface{}{
				"attempt": attempt + 1,
				"reason":  waitErr.Error(),
			})
			return cancelled(waitErr, err)
		}
	}

	return lastErr
}

func cancelled(ctxErr, lastErr error) error {
	if lastErr == nil {
		return ctxErr
	}
	return errors.Join(ctxErr, lastErr)
}

// RunWithResult is Run for operations that return a value
func RunWithResult[T any](ctx context.Context, op OperationWithResult[T], opts *Options) (T, error) {
	var result T

	err := Run(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, opts)
	if err != nil {
		var zero T
		return zero, err
	}

	return result, nil
}

// ChainOnRetry combines several OnRetry callbacks; nil entries are skipped
func ChainOnRetry(fns ...func(attempt int, err error)) func(attempt int, err error) {
	var active []func(int, error)
	for _, fn := range fns {
		if fn != nil {
			active = append(active, fn)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(attempt int, err error) {
		for _, fn := range active {
			fn(attempt, err)
		}
	}
}

// Executor is a reusable retry configuration
type Executor struct {
	opts Options
}

// NewExecutor creates an executor; nil uses DefaultOptions
func NewExecutor(opts *Options) *Executor {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Executor{opts: *opts}
}

// Run executes op with the executor's options
func (e *Executor) Run(ctx context.Context, op Operation) error {
	return Run(ctx, op, e.Options())
}

// Options returns a copy of the executor's options
func (e *Executor) Options() *Options {
	opts := e.opts
	return &opts
}

// WithMaxRetries returns a new executor with updated max retries
func (e *Executor) WithMaxRetries(maxRetries int) *Executor {
	opts := e.opts
	opts.MaxRetries = maxRetries
	return &Executor{opts: opts}
}

// WithInitialDelay returns a new executor with an updated initial delay.
// An explicit Backoff is dropped so the new delay takes effect.
func (e *Executor) WithInitialDelay(delay time.Duration) *Executor {
	opts := e.opts
	opts.InitialDelay = delay
	opts.Backoff = nil
	return &Executor{opts: opts}
}

// WithBackoff returns a new executor with an explicit backoff strategy
func (e *Executor) WithBackoff(backoff BackoffStrategy) *Executor {
	opts := e.opts
	opts.Backoff = backoff
	return &Executor{opts: opts}
}

// WithOnRetry returns a new executor with an updated retry callback
func (e *Executor) WithOnRetry(fn func(attempt int, err error)) *Executor {
	opts := e.opts
	opts.OnRetry = fn
	return &Executor{opts: opts}
}

// WithLogger returns a new executor with an updated logger
func (e *Executor) WithLogger(l logger.Logger) *Executor {
	opts := e.opts
	opts.Logger = l
	return &Executor{opts: opts}
}
