package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/pkg/model"
)

func modelTrade() model.Trade {
	return model.Trade{
		ClientID:     "acme",
		Symbol:       "BTCUSD",
		Side:         "buy",
		Quantity:     2,
		Price:        "64250.5",
		OrderType:    "limit",
		VenueOrderID: "12345",
		Status:       "open",
	}
}

func newTestStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := NewHybrid(mr.Addr(), 0, "", "", PGPoolConfig{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSetGetJSON_RoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	in := map[string]float64{"USDT": 1000.5, "BTC": 0.25}
	require.NoError(t, st.SetJSON(ctx, "balances:acme", in, time.Minute))

	var out map[string]float64
	require.NoError(t, st.GetJSON(ctx, "balances:acme", &out))
	assert.Equal(t, in, out)
}

func TestGetJSON_MissReportsCacheMiss(t *testing.T) {
	st := newTestStore(t)

	var out map[string]any
	err := st.GetJSON(context.Background(), "nope", &out)

	require.Error(t, err)
	assert.True(t, IsCacheMiss(err))
}

func TestHealthCheck_RedisOnly(t *testing.T) {
	st := newTestStore(t)
	assert.NoError(t, st.HealthCheck(context.Background()))
}

func TestNewHybrid_FailsWithoutRedis(t *testing.T) {
	_, err := NewHybrid("127.0.0.1:1", 0, "", "", PGPoolConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewHybrid_AuthenticatesAgainstRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("hunter2")

	_, err := NewHybrid(mr.Addr(), 0, "", "", PGPoolConfig{}, zap.NewNop())
	assert.Error(t, err, "missing password must fail the initial ping")

	st, err := NewHybrid(mr.Addr(), 0, "hunter2", "", PGPoolConfig{}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	assert.NoError(t, st.HealthCheck(context.Background()))
}

func TestTrades_WithoutPostgres(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Without Postgres trade persistence degrades to a no-op write...
	id, err := st.RecordTrade(ctx, modelTrade())
	assert.NoError(t, err)
	assert.Zero(t, id)

	// ...while reads surface the missing backend.
	_, err = st.ListTrades(ctx, "acme", 10)
	assert.Error(t, err)
}
