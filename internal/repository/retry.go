package repository

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/guildtools/ticketbot/internal/observability"
	apperrors "github.com/guildtools/ticketbot/pkg/util"
)

// RetryPolicy bounds how store operations are retried on transient
// connectivity failure: exponential backoff from BaseDelay, capped at
// MaxDelay, for at most MaxAttempts attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 4
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 2 * time.Second
	}
	return p
}

// Delay returns the backoff before the given retry (attempt starts at 1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Retryer wraps store operations with the retry policy. Shared by all
// repositories so the policy is configured once and testable on its own.
type Retryer struct {
	policy  RetryPolicy
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewRetryer builds a Retryer; a nil logger disables retry logging, a
// nil metrics disables retry counters.
func NewRetryer(policy RetryPolicy, logger *zap.Logger, metrics *observability.Metrics) *Retryer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retryer{policy: policy.withDefaults(), logger: logger, metrics: metrics}
}

// Do runs fn, retrying transient failures per the policy. A
// non-transient failure surfaces immediately; exhausting all attempts
// yields a STORE_UNAVAILABLE error wrapping the last failure.
func (r *Retryer) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Delay(attempt)
		r.metrics.RecordOp(observability.OpStoreRetry)
		r.logger.Warn("transient store failure, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	r.logger.Error("store retries exhausted", zap.String("op", op), zap.Error(lastErr))
	return apperrors.NewStoreUnavailable(lastErr)
}

// IsTransient classifies an error as worth retrying. Connection-class
// and resource-class postgres errors and network failures qualify;
// constraint violations, missing rows and context cancellation do not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			case "08", "53", "57":
				return true
			}
		}
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
