// Package resilience wraps outbound model calls with fortify retry and
// circuit breaking. File operations never go through here.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// ErrPermanent marks an error that must not be retried.
var ErrPermanent = errors.New("permanent failure")

type permanentError struct{ err error }

func (e permanentError) Error() string        { return e.err.Error() }
func (e permanentError) Unwrap() error        { return e.err }
func (e permanentError) Is(target error) bool { return target == ErrPermanent }

// Permanent wraps err so the retrier gives up immediately. The original
// error stays reachable through errors.As.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Config configures a Caller.
type Config struct {
	// MaxAttempts includes the first try.
	MaxAttempts int

	// InitialDelay is the wait before the first retry; later waits grow by Multiplier.
	InitialDelay time.Duration
	Multiplier   float64

	// BreakerThreshold is the number of consecutive failures that opens the circuit.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open before probing again.
	BreakerTimeout time.Duration
}

// DefaultConfig returns three attempts with exponential backoff and a breaker
// that opens after five consecutive failures.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      3,
		InitialDelay:     500 * time.Millisecond,
		Multiplier:       2.0,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// Caller runs a function behind a circuit breaker with retries inside it.
type Caller[T any] struct {
	breaker circuitbreaker.CircuitBreaker[T]
	retry   retry.Retry[T]
}

// New builds a Caller. Zero fields in cfg fall back to DefaultConfig.
func New[T any](cfg Config) *Caller[T] {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = def.BreakerThreshold
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	threshold := uint32(cfg.BreakerThreshold) // #nosec G115 -- positive, checked above

	return &Caller[T]{
		breaker: circuitbreaker.New[T](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    cfg.BreakerTimeout,
			Timeout:     cfg.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
		retry: retry.New[T](retry.Config{
			MaxAttempts:        cfg.MaxAttempts,
			InitialDelay:       cfg.InitialDelay,
			BackoffPolicy:      retry.BackoffExponential,
			Multiplier:         cfg.Multiplier,
			NonRetryableErrors: []error{ErrPermanent, context.Canceled, context.DeadlineExceeded},
		}),
	}
}

// Do runs fn. A whole retry sequence counts as one call for the breaker.
func (c *Caller[T]) Do(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	return c.breaker.Execute(ctx, func(ctx context.Context) (T, error) {
		return c.retry.Do(ctx, fn)
	})
}

// State reports the breaker state for logs and health output.
func (c *Caller[T]) State() string {
	return c.breaker.State().String()
}
