package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/pkg/model"
)

// Store defines the contract for caching venue data and persisting the local
// trade history.
type Store interface {
	RecordTrade(ctx context.Context, t model.Trade) (int64, error)
	ListTrades(ctx context.Context, clientID string, limit int) ([]model.Trade, error)
	UpdateTradeStatus(ctx context.Context, venueOrderID, status string) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore is a Redis-first cache with Postgres-backed trade history.
type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

// PGPoolConfig carries pgx pool tuning knobs.
type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis+Postgres store. pgURL may be empty, in which case
// trade history persistence is disabled and only the cache works.
func NewHybrid(redisAddr string, redisDB int, redisPass, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		DB:       redisDB,
		Password: redisPass,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger}, nil
}

// RecordTrade inserts a trade row and returns its id.
func (s *HybridStore) RecordTrade(ctx context.Context, t model.Trade) (int64, error) {
	if s.PG == nil {
		return 0, nil
	}
	var id int64
	err := s.PG.QueryRow(ctx, `
		INSERT INTO activity.trades (
			client_id, symbol, side, quantity, price,
			order_type, venue_order_id, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id;
	`, t.ClientID, t.Symbol, t.Side, t.Quantity, t.Price,
		t.OrderType, t.VenueOrderID, t.Status).Scan(&id)
	if err != nil {
		s.logger.Error("store.pg.insert_trade_failed", zap.Error(err))
		return 0, err
	}
	return id, nil
}

// ListTrades returns the most recent trades for a client, newest first.
func (s *HybridStore) ListTrades(ctx context.Context, clientID string, limit int) ([]model.Trade, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.PG.Query(ctx, `
		SELECT id, client_id, symbol, side, quantity, price,
		       order_type, venue_order_id, status, created_at
		FROM activity.trades
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Symbol, &t.Side, &t.Quantity,
			&t.Price, &t.OrderType, &t.VenueOrderID, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// UpdateTradeStatus sets the status of the trade carrying venueOrderID.
func (s *HybridStore) UpdateTradeStatus(ctx context.Context, venueOrderID, status string) error {
	if s.PG == nil {
		return nil
	}
	_, err := s.PG.Exec(ctx, `
		UPDATE activity.trades
		SET status = $2
		WHERE venue_order_id = $1;
	`, venueOrderID, status)
	if err != nil {
		s.logger.Error("store.pg.update_status_failed",
			zap.String("venue_order_id", venueOrderID),
			zap.Error(err))
	}
	return err
}

// SetJSON caches a JSON value in Redis with TTL.
func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

// GetJSON reads a cached JSON value from Redis. Returns redis.Nil on miss.
func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// IsCacheMiss reports whether err is a cache miss from GetJSON.
func IsCacheMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

// HealthCheck pings both backends.
func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

// Close releases both backends.
func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
