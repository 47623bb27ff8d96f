package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"

	"github.com/warp/drmaa-store/drmaa"
)

// RetryPolicy bounds the retries of a write that hits lock contention.
// Each attempt already waits up to the lock timeout inside SQLite; the
// policy governs the pause between attempts and when to give up.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// MaxElapsedTime stops retrying once exceeded. Zero never stops.
	MaxElapsedTime time.Duration
	// MaxAttempts caps the total attempts. Zero means no cap.
	MaxAttempts uint64
}

// DefaultRetryPolicy backs off exponentially from 100ms to 2s and gives up
// after 10 minutes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  10 * time.Minute,
	}
}

// UnboundedRetryPolicy retries every second until the write lands or the
// context ends.
func UnboundedRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Second,
		MaxInterval:     time.Second,
		Multiplier:      1.0,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	if p.InitialInterval <= 0 {
		p.InitialInterval = DefaultRetryPolicy().InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.InitialInterval),
		backoff.WithMaxInterval(p.MaxInterval),
		backoff.WithMultiplier(p.Multiplier),
		backoff.WithMaxElapsedTime(p.MaxElapsedTime),
		backoff.WithRandomizationFactor(0.1),
	)
	var b backoff.BackOff = exp
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, p.MaxAttempts-1)
	}
	return backoff.WithContext(b, ctx)
}

// retryTransient re-runs fn while it fails with lock contention. Any other
// error ends the loop at once. When the policy gives up, the returned error
// wraps ErrRetriesExhausted and every attempt's error.
func (s *Store) retryTransient(ctx context.Context, op string, fn func() error) error {
	var (
		attempts int
		failures *multierror.Error
	)
	operation := func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if !drmaa.IsTransient(err) {
			return backoff.Permanent(err)
		}
		failures = multierror.Append(failures, err)
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.log.Warn("store busy, retrying", "op", op, "attempt", attempts, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(operation, s.opts.retry.backOff(ctx), notify)
	switch {
	case err == nil:
		if attempts > 1 {
			s.log.Info("write landed after retries", "op", op, "attempts", attempts)
		}
		return nil
	case !drmaa.IsTransient(err):
		return err
	default:
		s.log.Error("giving up on write", "op", op, "attempts", attempts)
		return fmt.Errorf("%s: %w after %d attempts: %w", op, drmaa.ErrRetriesExhausted, attempts, failures.ErrorOrNil())
	}
}
