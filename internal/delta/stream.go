package delta

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// streamBufferCap bounds the in-memory candle history per stream.
	streamBufferCap = 1000
	// streamReconnectWait is the pause between reconnect attempts.
	streamReconnectWait = 5 * time.Second
)

// Candle is one OHLCV bar from the venue's websocket feed.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Symbol    string  `json:"symbol"`
}

// streamMessage is the venue's websocket frame.
type streamMessage struct {
	Type    string            `json:"type"`
	Payload []json.RawMessage `json:"payload"`
}

// rawCandle matches the candle payload entries.
type rawCandle struct {
	Timestamp int64       `json:"timestamp"`
	Open      json.Number `json:"open"`
	High      json.Number `json:"high"`
	Low       json.Number `json:"low"`
	Close     json.Number `json:"close"`
	Volume    json.Number `json:"volume"`
}

// Stream maintains a websocket subscription to the venue's candle channel for
// one symbol, keeping a bounded, deduplicated in-memory buffer. It reconnects
// on failure up to maxReconnects times per Run.
type Stream struct {
	logger        *zap.Logger
	url           string
	symbol        string
	interval      string
	maxReconnects int

	mu      sync.RWMutex
	candles []Candle

	dial func(ctx context.Context, url string) (*websocket.Conn, error)
}

// NewStream creates a candle stream for symbol at the given interval.
func NewStream(logger *zap.Logger, url, symbol, interval string, maxReconnects int) *Stream {
	if interval == "" {
		interval = "1m"
	}
	if maxReconnects <= 0 {
		maxReconnects = 5
	}
	return &Stream{
		logger:        logger,
		url:           url,
		symbol:        symbol,
		interval:      interval,
		maxReconnects: maxReconnects,
		dial: func(ctx context.Context, url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return conn, err
		},
	}
}

// Run connects and consumes the feed until ctx is done or the reconnect
// budget is exhausted. Intended to run on its own goroutine.
func (s *Stream) Run(ctx context.Context) error {
	reconnects := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.consume(ctx); err != nil {
			reconnects++
			s.logger.Warn("delta.stream.disconnected",
				zap.String("symbol", s.symbol),
				zap.Int("reconnect", reconnects),
				zap.Error(err))
			if reconnects > s.maxReconnects {
				return fmt.Errorf("stream for %s: reconnect budget exhausted: %w", s.symbol, err)
			}
			select {
			case <-time.After(streamReconnectWait):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		return nil
	}
}

// consume runs one websocket session: subscribe, then read until error/ctx end.
func (s *Stream) consume(ctx context.Context) error {
	conn, err := s.dial(ctx, s.url)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer func() { _ = conn.Close() }()

	sub := map[string]any{
		"type": "subscribe",
		"payload": map[string]any{
			"channels": []map[string]any{
				{
					"name":    "v2/candles_" + s.interval,
					"symbols": []string{s.symbol},
				},
			},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	s.logger.Info("delta.stream.subscribed",
		zap.String("symbol", s.symbol),
		zap.String("interval", s.interval))

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close() // unblocks ReadMessage
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handleMessage(data)
	}
}

// handleMessage parses one frame, ignoring everything but candle payloads.
func (s *Stream) handleMessage(data []byte) {
	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("delta.stream.bad_frame", zap.Error(err))
		return
	}

	switch msg.Type {
	case "subscriptions":
		s.logger.Debug("delta.stream.subscription_ack")
		return
	case "v2/candles", "v2/candles_" + s.interval:
	default:
		return
	}

	for _, raw := range msg.Payload {
		var rc rawCandle
		if err := json.Unmarshal(raw, &rc); err != nil {
			continue
		}
		s.append(Candle{
			Timestamp: rc.Timestamp,
			Open:      numOrZero(rc.Open),
			High:      numOrZero(rc.High),
			Low:       numOrZero(rc.Low),
			Close:     numOrZero(rc.Close),
			Volume:    numOrZero(rc.Volume),
			Symbol:    s.symbol,
		})
	}
}

// append inserts a candle, replacing any bar with the same timestamp and
// trimming the buffer to streamBufferCap.
func (s *Stream) append(c Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := len(s.candles) - 1; i >= 0; i-- {
		if s.candles[i].Timestamp == c.Timestamp {
			s.candles[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		s.candles = append(s.candles, c)
	}
	if len(s.candles) > streamBufferCap {
		s.candles = s.candles[len(s.candles)-streamBufferCap:]
	}
}

// Candles returns a copy of the buffered candle history, oldest first.
func (s *Stream) Candles() []Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Symbol returns the subscribed symbol.
func (s *Stream) Symbol() string {
	return s.symbol
}
