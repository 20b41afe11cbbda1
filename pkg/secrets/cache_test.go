package secrets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCreds struct {
	Key    string
	Secret string
}

func TestCache_PutGet(t *testing.T) {
	c := NewCache[testCreds](time.Minute)

	c.Put("acme|delta", testCreds{Key: "k", Secret: "s"})

	got, ok := c.Get("acme|delta")
	require.True(t, ok)
	assert.Equal(t, "k", got.Key)
}

func TestCache_MissReturnsZero(t *testing.T) {
	c := NewCache[testCreds](time.Minute)

	got, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, got.Key)
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache[testCreds](10 * time.Millisecond)

	c.Put("acme|delta", testCreds{Key: "k"})
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("acme|delta")
	assert.False(t, ok)
}

func TestCache_Bust(t *testing.T) {
	c := NewCache[testCreds](time.Minute)

	c.Put("acme|delta", testCreds{Key: "k"})
	c.Bust("acme|delta")

	_, ok := c.Get("acme|delta")
	assert.False(t, ok)
}

func TestCache_CleanerRemovesExpired(t *testing.T) {
	c := NewCache[testCreds](5 * time.Millisecond)
	c.Put("acme|delta", testCreds{Key: "k"})

	stop := make(chan struct{})
	go c.StartCleaner(5*time.Millisecond, stop)
	time.Sleep(30 * time.Millisecond)
	close(stop)

	_, ok := c.Get("acme|delta")
	assert.False(t, ok)
}
