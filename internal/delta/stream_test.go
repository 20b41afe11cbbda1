package delta

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStream() *Stream {
	return NewStream(zap.NewNop(), "wss://venue.test", "BTCUSD", "1m", 5)
}

func TestStream_HandleMessageBuffersCandles(t *testing.T) {
	s := newTestStream()

	s.handleMessage([]byte(`{"type":"v2/candles_1m","payload":[
		{"timestamp":1700000000,"open":"64000","high":"64100","low":"63900","close":"64050","volume":"12.5"},
		{"timestamp":1700000060,"open":64050,"high":64200,"low":64000,"close":64150,"volume":3}
	]}`))

	candles := s.Candles()
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1700000000), candles[0].Timestamp)
	assert.Equal(t, 64000.0, candles[0].Open)
	assert.Equal(t, 12.5, candles[0].Volume)
	assert.Equal(t, "BTCUSD", candles[0].Symbol)
}

func TestStream_ReplacesCandleWithSameTimestamp(t *testing.T) {
	s := newTestStream()

	s.handleMessage([]byte(`{"type":"v2/candles_1m","payload":[{"timestamp":1700000000,"close":"64050"}]}`))
	s.handleMessage([]byte(`{"type":"v2/candles_1m","payload":[{"timestamp":1700000000,"close":"64075"}]}`))

	candles := s.Candles()
	require.Len(t, candles, 1)
	assert.Equal(t, 64075.0, candles[0].Close)
}

func TestStream_IgnoresNonCandleFrames(t *testing.T) {
	s := newTestStream()

	s.handleMessage([]byte(`{"type":"subscriptions","payload":[]}`))
	s.handleMessage([]byte(`{"type":"v2/ticker","payload":[{"timestamp":1}]}`))
	s.handleMessage([]byte(`not json`))

	assert.Empty(t, s.Candles())
}

func TestStream_TrimsBufferToCap(t *testing.T) {
	s := newTestStream()

	for i := 0; i < streamBufferCap+10; i++ {
		s.handleMessage([]byte(fmt.Sprintf(
			`{"type":"v2/candles_1m","payload":[{"timestamp":%d,"close":"1"}]}`, i)))
	}

	candles := s.Candles()
	require.Len(t, candles, streamBufferCap)
	// Oldest bars are dropped first.
	assert.Equal(t, int64(10), candles[0].Timestamp)
}
