package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_BurstThenDeny(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(), "burst request %d should pass", i)
	}
	assert.False(t, l.Allow(), "bucket should be empty after burst")
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l := New(Config{RequestsPerSecond: 100, Burst: 1})

	require.True(t, l.Allow())
	require.False(t, l.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.Allow(), "tokens should refill at the configured rate")
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 1})
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_OneLimiterPerKey(t *testing.T) {
	m := NewManager(Config{RequestsPerSecond: 1, Burst: 1})

	prod := m.GetLimiter("delta_api:https://api.delta.exchange")
	test := m.GetLimiter("delta_api:https://testnet-api.delta.exchange")

	assert.NotSame(t, prod, test)
	assert.Same(t, prod, m.GetLimiter("delta_api:https://api.delta.exchange"))

	// Draining one deployment's bucket leaves the other untouched.
	require.True(t, prod.Allow())
	require.False(t, prod.Allow())
	assert.True(t, test.Allow())
}
