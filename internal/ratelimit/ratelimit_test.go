package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type failingStore struct{}

func (failingStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return 0, errors.New("store down")
}

func TestAdmit_FixedWindow(t *testing.T) {
	store := NewLocalStore()
	current := time.Unix(1700000000, 0)
	store.now = func() time.Time { return current }

	limiter := NewLimiter(store, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Admit(ctx, "1.2.3.4", "access", 5, time.Second), "call %d should be admitted", i+1)
	}
	assert.False(t, limiter.Admit(ctx, "1.2.3.4", "access", 5, time.Second), "6th call should be rejected")

	// Window elapses, counter resets.
	current = current.Add(1001 * time.Millisecond)
	assert.True(t, limiter.Admit(ctx, "1.2.3.4", "access", 5, time.Second))
}

func TestAdmit_KeysAreIsolated(t *testing.T) {
	store := NewLocalStore()
	limiter := NewLimiter(store, zap.NewNop())
	ctx := context.Background()

	assert.True(t, limiter.Admit(ctx, "1.2.3.4", "login", 1, time.Minute))
	assert.False(t, limiter.Admit(ctx, "1.2.3.4", "login", 1, time.Minute))

	// Different client, same route.
	assert.True(t, limiter.Admit(ctx, "5.6.7.8", "login", 1, time.Minute))
	// Same client, different route.
	assert.True(t, limiter.Admit(ctx, "1.2.3.4", "access", 1, time.Minute))
}

func TestAdmit_FailsOpenOnStoreError(t *testing.T) {
	limiter := NewLimiter(failingStore{}, zap.NewNop())

	assert.True(t, limiter.Admit(context.Background(), "1.2.3.4", "access", 1, time.Second))
}
