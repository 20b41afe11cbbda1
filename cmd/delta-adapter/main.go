package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/tradedeck/delta-adapter/internal/api"
	"github.com/tradedeck/delta-adapter/internal/async"
	"github.com/tradedeck/delta-adapter/internal/delta"
	"github.com/tradedeck/delta-adapter/internal/publisher"
	"github.com/tradedeck/delta-adapter/internal/rate"
	internalsecrets "github.com/tradedeck/delta-adapter/internal/secrets"
	"github.com/tradedeck/delta-adapter/internal/store"
	"github.com/tradedeck/delta-adapter/pkg/config"
	"github.com/tradedeck/delta-adapter/pkg/logger"
	"github.com/tradedeck/delta-adapter/pkg/secrets"
	"github.com/tradedeck/delta-adapter/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [delta-adapter]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- AWS Secrets Manager provider ---
	awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
	if err != nil {
		logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
	}

	// --- Per-client credential resolver (secrets cached in-memory) ---
	credsCache := secrets.NewCache[delta.Credentials](cfg.CacheTTL)
	stopCleaner := make(chan struct{})
	go credsCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

	resolver := internalsecrets.NewDeltaResolver(
		logg.Desugar(),
		cfg.Env,
		awsProvider,
		credsCache,
	)

	// --- Discover configured clients ---
	clients, err := resolver.DiscoverClients(ctx)
	if err != nil {
		logg.Warnw("failed to discover clients from AWS Secrets Manager", "error", err)
	} else {
		logg.Infow("discovered Delta clients", "count", len(clients), "clients", clients)
	}

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Publisher ---
	pub, err := publisher.New(nc, "evt.delta", "delta-adapter")
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: cfg.RateRequestsPerSecond,
		Burst:             cfg.RateBurst,
		Cooldown:          cfg.RateCooldown,
	})

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPass, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Blocking-call gateway ---
	gw := async.NewGateway(cfg.GatewaySlots, logg.Desugar())

	// --- Per-client adapter registry (store doubles as the catalog cache) ---
	registry := delta.NewRegistry(logg.Desugar(), resolver, gw, rateMgr, st)

	// --- Candle stream (optional) ---
	var stream *delta.Stream
	if cfg.DeltaStreamSymbol != "" {
		stream = delta.NewStream(
			logg.Desugar(),
			cfg.DeltaStreamURL,
			cfg.DeltaStreamSymbol,
			cfg.DeltaStreamInterval,
			cfg.DeltaMaxReconnects,
		)
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				logg.Warnw("candle stream stopped", "error", err)
			}
		}()
	} else {
		logg.Warn("DELTA_STREAM_SYMBOL not configured; candle stream disabled")
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	exchangeHandler := api.NewExchangeHandler(
		logg.Desugar(),
		api.RegistryLookup{Registry: registry},
		st,
		pub,
		stream,
	)

	api.RegisterRoutes(app, nc, st, exchangeHandler)

	// Start HTTP server
	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// --- Main process stays alive until interrupted ---
	logg.Infow("[delta-adapter] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"discovered_clients", len(clients))

	<-ctx.Done()
	logg.Info("shutting down [delta-adapter]...")

	close(stopCleaner)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
