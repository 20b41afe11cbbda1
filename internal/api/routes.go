package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradedeck/delta-adapter/internal/store"
)

func RegisterRoutes(app *fiber.App, nc *nats.Conn, st store.Store,
	exchangeHandler *ExchangeHandler,
) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"nats":  "ok",
			"store": "ok",
		}
		status := "ok"
		code := fiber.StatusOK

		if nc == nil || !nc.IsConnected() {
			checks["nats"] = "disconnected"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		} else if err := nc.FlushTimeout(1 * time.Second); err != nil {
			checks["nats"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := st.HealthCheck(healthCtx); err != nil {
			checks["store"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// API routes
	v1 := app.Group("/api/v1")
	v1.Get("/connection/test", exchangeHandler.TestConnection)
	v1.Get("/account", exchangeHandler.GetAccount)
	v1.Get("/balances", exchangeHandler.GetBalance)
	v1.Get("/balances/:assetId", exchangeHandler.GetBalance)
	v1.Get("/products", exchangeHandler.GetProducts)
	v1.Get("/tickers/:symbol", exchangeHandler.GetTicker)
	v1.Post("/orders", exchangeHandler.PlaceOrder)
	v1.Get("/orders", exchangeHandler.GetOrders)
	v1.Get("/orders/:orderId", exchangeHandler.GetOrder)
	v1.Delete("/orders/:orderId", exchangeHandler.CancelOrder)
	v1.Get("/positions", exchangeHandler.GetPositions)
	v1.Get("/fills", exchangeHandler.GetFills)
	v1.Get("/history", exchangeHandler.GetHistory)
	v1.Get("/candles", exchangeHandler.GetCandles)
}
