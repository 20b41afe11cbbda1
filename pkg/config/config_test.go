package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "delta-adapter", cfg.ServiceName)
	assert.Equal(t, "delta", cfg.Venue)
	assert.Equal(t, 9020, cfg.Port)
	assert.Equal(t, "wss://socket.delta.exchange", cfg.DeltaStreamURL)
	assert.Equal(t, "1m", cfg.DeltaStreamInterval)
	assert.Equal(t, 5, cfg.DeltaMaxReconnects)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Zero(t, cfg.GatewaySlots)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DELTA_PORT", "9999")
	t.Setenv("ENV", "uat")
	t.Setenv("DELTA_STREAM_SYMBOL", "BTCUSD")
	t.Setenv("GATEWAY_SLOTS", "8")
	t.Setenv("CACHE_TTL", "30m")

	cfg := Load()

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "uat", cfg.Env)
	assert.Equal(t, "BTCUSD", cfg.DeltaStreamSymbol)
	assert.Equal(t, 8, cfg.GatewaySlots)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
}

func TestGetEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	t.Setenv("SOME_DUR", "not-a-duration")
	t.Setenv("SOME_BOOL", "not-a-bool")

	assert.Equal(t, 7, GetEnvInt("SOME_INT", 7))
	assert.Equal(t, time.Second, GetEnvDuration("SOME_DUR", time.Second))
	assert.True(t, GetEnvBool("SOME_BOOL", true))
}
