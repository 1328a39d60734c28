package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/admission-core/internal/observability"
	"github.com/spec-kit/admission-core/internal/store"
)

var testPolicy = Policy{Name: "test", MaxRequests: 3, Window: time.Minute}

func newTestLimiter(t *testing.T) (*Limiter, *store.MemoryStore, *time.Time) {
	t.Helper()
	memory := store.NewMemoryStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	memory.SetClock(clock)

	limiter := NewLimiter(memory, zap.NewNop(), observability.NewMetrics(), time.Second)
	limiter.SetClock(clock)
	return limiter, memory, &now
}

func TestLimiter_AdmitsUpToMaxThenRejects(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision := limiter.Check(ctx, testPolicy, "1.2.3.4")
		require.True(t, decision.Allowed, "request %d", i)
		assert.Equal(t, int64(3-i-1), decision.Remaining)
	}

	decision := limiter.Check(ctx, testPolicy, "1.2.3.4")
	require.False(t, decision.Allowed)
	assert.Equal(t, int64(0), decision.Remaining)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestLimiter_WindowSlides(t *testing.T) {
	limiter, _, now := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Check(ctx, testPolicy, "client").Allowed)
	}
	require.False(t, limiter.Check(ctx, testPolicy, "client").Allowed)

	*now = now.Add(61 * time.Second)
	decision := limiter.Check(ctx, testPolicy, "client")
	require.True(t, decision.Allowed)
	assert.Equal(t, int64(2), decision.Remaining)
}

func TestLimiter_RemainingNeverNegative(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	previous := testPolicy.MaxRequests
	for i := 0; i < 10; i++ {
		decision := limiter.Check(ctx, testPolicy, "burst")
		assert.GreaterOrEqual(t, decision.Remaining, int64(0))
		assert.LessOrEqual(t, decision.Remaining, previous)
		previous = decision.Remaining
	}
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Check(ctx, testPolicy, "a").Allowed)
	}
	require.False(t, limiter.Check(ctx, testPolicy, "a").Allowed)
	require.True(t, limiter.Check(ctx, testPolicy, "b").Allowed)
	require.True(t, limiter.CheckForUser(ctx, 42, testPolicy).Allowed)
}

func TestLimiter_StatusDoesNotConsumeQuota(t *testing.T) {
	limiter, _, _ := newTestLimiter(t)
	ctx := context.Background()

	require.True(t, limiter.Check(ctx, testPolicy, "ip").Allowed)

	for i := 0; i < 5; i++ {
		status, err := limiter.Status(ctx, testPolicy, "ip")
		require.NoError(t, err)
		assert.Equal(t, int64(1), status.Used)
		assert.Equal(t, int64(2), status.Remaining)
		require.NotNil(t, status.OldestAt)
	}
}

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (failingStore) Get(context.Context, string) (string, bool, error) { return "", false, errStoreDown }
func (failingStore) Set(context.Context, string, string, time.Duration) error {
	return errStoreDown
}
func (failingStore) Delete(context.Context, ...string) error     { return errStoreDown }
func (failingStore) Incr(context.Context, string) (int64, error) { return 0, errStoreDown }
func (failingStore) ZAdd(context.Context, string, float64, string) error {
	return errStoreDown
}
func (failingStore) ZRemRangeByScore(context.Context, string, float64, float64) error {
	return errStoreDown
}
func (failingStore) ZCard(context.Context, string) (int64, error) { return 0, errStoreDown }
func (failingStore) ZRangeWithScores(context.Context, string, int64, int64) ([]store.ScoredMember, error) {
	return nil, errStoreDown
}
func (failingStore) Expire(context.Context, string, time.Duration) error { return errStoreDown }

func TestLimiter_FailsOpenWhenStoreUnavailable(t *testing.T) {
	limiter := NewLimiter(failingStore{}, zap.NewNop(), observability.NewMetrics(), time.Second)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		decision := limiter.Check(ctx, testPolicy, "anyone")
		require.True(t, decision.Allowed)
		assert.Equal(t, testPolicy.MaxRequests, decision.Remaining)
	}

	_, err := limiter.Status(ctx, testPolicy, "anyone")
	require.Error(t, err)
}
