package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/admission-core/internal/observability"
	"github.com/spec-kit/admission-core/internal/store"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
	Policy     Policy
}

// WindowStatus is a read-only view of one window, reported without consuming
// quota.
type WindowStatus struct {
	Used      int64
	Remaining int64
	OldestAt  *time.Time
}

// Limiter implements sliding-window admission control against the shared
// counter store. One window lives per (policy, client) key; recorded
// timestamps age out lazily on each check, never by a background sweep.
//
// The purge/count/insert sequence is not atomic: two concurrent requests can
// both pass the count check before either inserts, over-admitting by at most
// the number of in-flight requests. See DESIGN.md.
//
// When the store is unreachable the limiter fails open and admits with full
// quota, so an infrastructure outage never blocks legitimate traffic.
type Limiter struct {
	store     store.CounterStore
	logger    *zap.Logger
	metrics   *observability.Metrics
	opTimeout time.Duration
	now       func() time.Time
}

// NewLimiter builds a limiter over the given store.
func NewLimiter(counterStore store.CounterStore, logger *zap.Logger, metrics *observability.Metrics, opTimeout time.Duration) *Limiter {
	if opTimeout <= 0 {
		opTimeout = 2 * time.Second
	}
	return &Limiter{
		store:     counterStore,
		logger:    logger,
		metrics:   metrics,
		opTimeout: opTimeout,
		now:       time.Now,
	}
}

// SetClock overrides the time source for tests.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

func windowKey(policy Policy, clientID string) string {
	return fmt.Sprintf("ratelimit:%s:%s", policy.Name, clientID)
}

// Check admits or rejects one request for the (policy, clientID) pair.
func (l *Limiter) Check(ctx context.Context, policy Policy, clientID string) Decision {
	return l.check(ctx, policy, clientID)
}

// CheckForUser applies the identical algorithm keyed by user id, for stricter
// per-account limits layered on top of per-IP limits.
func (l *Limiter) CheckForUser(ctx context.Context, userID int64, policy Policy) Decision {
	return l.check(ctx, policy, fmt.Sprintf("user:%d", userID))
}

func (l *Limiter) check(ctx context.Context, policy Policy, clientID string) Decision {
	key := windowKey(policy, clientID)
	now := l.now()
	windowStart := now.Add(-policy.Window)

	ctx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	if err := l.store.ZRemRangeByScore(ctx, key, 0, float64(windowStart.UnixMilli())); err != nil {
		return l.failOpen(policy, key, err)
	}

	count, err := l.store.ZCard(ctx, key)
	if err != nil {
		return l.failOpen(policy, key, err)
	}

	if count >= policy.MaxRequests {
		retryAfter := policy.Window
		if oldest, err := l.store.ZRangeWithScores(ctx, key, 0, 0); err == nil && len(oldest) == 1 {
			oldestAt := time.UnixMilli(int64(oldest[0].Score))
			retryAfter = oldestAt.Add(policy.Window).Sub(now)
		}
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		l.metrics.RecordRateLimitDrop(policy.Name)
		l.logger.Info("rate limit exceeded",
			zap.String("policy", policy.Name),
			zap.String("key", key),
			zap.Duration("retry_after", retryAfter),
		)
		return Decision{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    now.Add(retryAfter),
			RetryAfter: retryAfter,
			Policy:     policy,
		}
	}

	member := fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString())
	if err := l.store.ZAdd(ctx, key, float64(now.UnixMilli()), member); err != nil {
		return l.failOpen(policy, key, err)
	}
	// Housekeeping so abandoned keys vanish on their own.
	if err := l.store.Expire(ctx, key, policy.Window); err != nil {
		l.logger.Warn("rate limit expire failed", zap.String("key", key), zap.Error(err))
	}

	return Decision{
		Allowed:   true,
		Remaining: policy.MaxRequests - count - 1,
		ResetAt:   now.Add(policy.Window),
		Policy:    policy,
	}
}

// Status performs the purge and count without inserting an entry, for
// introspection that does not consume quota.
func (l *Limiter) Status(ctx context.Context, policy Policy, clientID string) (WindowStatus, error) {
	key := windowKey(policy, clientID)
	now := l.now()
	windowStart := now.Add(-policy.Window)

	ctx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	if err := l.store.ZRemRangeByScore(ctx, key, 0, float64(windowStart.UnixMilli())); err != nil {
		return WindowStatus{}, err
	}
	count, err := l.store.ZCard(ctx, key)
	if err != nil {
		return WindowStatus{}, err
	}

	status := WindowStatus{Used: count, Remaining: policy.MaxRequests - count}
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if count > 0 {
		if oldest, err := l.store.ZRangeWithScores(ctx, key, 0, 0); err == nil && len(oldest) == 1 {
			oldestAt := time.UnixMilli(int64(oldest[0].Score))
			status.OldestAt = &oldestAt
		}
	}
	return status, nil
}

func (l *Limiter) failOpen(policy Policy, key string, err error) Decision {
	l.logger.Warn("rate limit store unavailable, admitting",
		zap.String("policy", policy.Name),
		zap.String("key", key),
		zap.Error(err),
	)
	now := l.now()
	return Decision{
		Allowed:   true,
		Remaining: policy.MaxRequests,
		ResetAt:   now.Add(policy.Window),
		Policy:    policy,
	}
}
