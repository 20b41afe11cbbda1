package api

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/internal/async"
	"github.com/tradedeck/delta-adapter/internal/delta"
	"github.com/tradedeck/delta-adapter/internal/publisher"
	"github.com/tradedeck/delta-adapter/internal/store"
	"github.com/tradedeck/delta-adapter/pkg/model"
)

// clientHeader carries the caller's client identity; credentials are resolved
// from it server-side, never taken from the request.
const clientHeader = "X-Client-Id"

// Exchange is the adapter contract the handlers await on. Every operation
// yields a normalized envelope; handlers forward it largely verbatim.
type Exchange interface {
	TestConnection(ctx context.Context) *async.Future[delta.Result]
	GetBalance(ctx context.Context, assetID string) *async.Future[delta.Result]
	GetProducts(ctx context.Context) *async.Future[delta.Result]
	PlaceOrder(ctx context.Context, productID int, side string, quantity float64, price, orderType string) *async.Future[delta.Result]
	CancelOrder(ctx context.Context, orderID int64, productID int) *async.Future[delta.Result]
	GetOrders(ctx context.Context, productID, state string) *async.Future[delta.Result]
	GetOrder(ctx context.Context, orderID int64) *async.Future[delta.Result]
	GetPositions(ctx context.Context, productID string) *async.Future[delta.Result]
	GetFills(ctx context.Context, productIDs string, startTime, endTime int64) *async.Future[delta.Result]
	GetTicker(ctx context.Context, symbol string) *async.Future[delta.Result]
	GetAccountInfo(ctx context.Context) *async.Future[delta.Result]
}

// ExchangeLookup resolves the per-client Exchange instance.
type ExchangeLookup interface {
	Lookup(ctx context.Context, clientID string) (Exchange, error)
}

// RegistryLookup adapts a *delta.Registry to the ExchangeLookup interface.
type RegistryLookup struct {
	Registry *delta.Registry
}

func (r RegistryLookup) Lookup(ctx context.Context, clientID string) (Exchange, error) {
	return r.Registry.Get(ctx, clientID)
}

// ExchangeHandler serves the venue proxy endpoints.
type ExchangeHandler struct {
	logger   *zap.Logger
	exchange ExchangeLookup
	store    store.Store
	pub      *publisher.Publisher
	stream   *delta.Stream // optional candle stream; nil when not configured
}

// NewExchangeHandler creates the handler. pub and stream may be nil.
func NewExchangeHandler(logger *zap.Logger, exchange ExchangeLookup, st store.Store, pub *publisher.Publisher, stream *delta.Stream) *ExchangeHandler {
	return &ExchangeHandler{
		logger:   logger,
		exchange: exchange,
		store:    st,
		pub:      pub,
		stream:   stream,
	}
}

// resolve extracts the client id and looks up its adapter.
func (h *ExchangeHandler) resolve(c *fiber.Ctx) (Exchange, string, error) {
	clientID := c.Get(clientHeader)
	if clientID == "" {
		return nil, "", fmt.Errorf("missing %s header", clientHeader)
	}
	ex, err := h.exchange.Lookup(c.Context(), clientID)
	if err != nil {
		return nil, clientID, err
	}
	return ex, clientID, nil
}

// await drives a dispatched operation to completion on the request context.
// A request deadline expiry still produces a normalized failure envelope.
func await(c *fiber.Ctx, fut *async.Future[delta.Result]) delta.Result {
	res, err := fut.Wait(c.Context())
	if err != nil {
		return delta.Fail(err.Error())
	}
	return res
}

// forward writes the normalized envelope with a status derived from its tag.
func forward(c *fiber.Ctx, res delta.Result, successStatus int) error {
	if !res.Success {
		return c.Status(fiber.StatusBadRequest).JSON(res)
	}
	return c.Status(successStatus).JSON(res)
}

// TestConnection handles GET /api/v1/connection/test.
func (h *ExchangeHandler) TestConnection(c *fiber.Ctx) error {
	ex, clientID, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}

	res := await(c, ex.TestConnection(c.Context()))
	if !res.Success {
		h.logger.Warn("api.test_connection.failed",
			zap.String("client", clientID),
			zap.String("message", res.Message()))
	}
	if h.pub != nil {
		if err := h.pub.PublishConnectionTested(c.Context(), clientID, res.Success); err != nil {
			h.logger.Warn("api.connection_event_failed",
				zap.String("client", clientID),
				zap.Error(err))
		}
	}
	return forward(c, res, fiber.StatusOK)
}

// GetAccount handles GET /api/v1/account.
func (h *ExchangeHandler) GetAccount(c *fiber.Ctx) error {
	ex, _, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}
	return forward(c, await(c, ex.GetAccountInfo(c.Context())), fiber.StatusOK)
}

// GetBalance handles GET /api/v1/balances/:assetId?.
func (h *ExchangeHandler) GetBalance(c *fiber.Ctx) error {
	ex, _, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}
	assetID := c.Params("assetId")
	return forward(c, await(c, ex.GetBalance(c.Context(), assetID)), fiber.StatusOK)
}

// GetProducts handles GET /api/v1/products.
func (h *ExchangeHandler) GetProducts(c *fiber.Ctx) error {
	ex, _, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}
	return forward(c, await(c, ex.GetProducts(c.Context())), fiber.StatusOK)
}

// GetTicker handles GET /api/v1/tickers/:symbol.
func (h *ExchangeHandler) GetTicker(c *fiber.Ctx) error {
	ex, _, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}
	symbol := c.Params("symbol")
	if symbol == "" {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail("symbol is required"))
	}
	return forward(c, await(c, ex.GetTicker(c.Context(), symbol)), fiber.StatusOK)
}

// PlaceOrder handles POST /api/v1/orders. On venue success the trade is
// recorded locally and an order.placed event is published; both are
// best-effort and never mask the venue outcome.
func (h *ExchangeHandler) PlaceOrder(c *fiber.Ctx) error {
	ex, clientID, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}

	var req PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}

	res := await(c, ex.PlaceOrder(c.Context(), req.ProductID, req.Side, req.Quantity, req.Price, req.OrderType))
	if !res.Success {
		h.logger.Warn("api.place_order.failed",
			zap.String("client", clientID),
			zap.Int("product_id", req.ProductID),
			zap.String("message", res.Message()))
		return forward(c, res, fiber.StatusCreated)
	}

	trade := model.Trade{
		ClientID:     clientID,
		Symbol:       req.Symbol,
		Side:         req.Side,
		Quantity:     req.Quantity,
		Price:        req.Price,
		OrderType:    req.OrderType,
		VenueOrderID: orderIDFromResult(res),
		Status:       orderStatusFromResult(res),
	}
	if h.store != nil {
		if _, err := h.store.RecordTrade(c.Context(), trade); err != nil {
			h.logger.Warn("api.trade_record_failed",
				zap.String("client", clientID),
				zap.Error(err))
		}
	}
	if h.pub != nil {
		if err := h.pub.PublishOrderPlaced(c.Context(), clientID, trade); err != nil {
			h.logger.Warn("api.order_event_failed",
				zap.String("client", clientID),
				zap.Error(err))
		}
	}

	return forward(c, res, fiber.StatusCreated)
}

// CancelOrder handles DELETE /api/v1/orders/:orderId.
func (h *ExchangeHandler) CancelOrder(c *fiber.Ctx) error {
	ex, clientID, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}

	orderID, _ := c.ParamsInt("orderId")
	req := CancelOrderRequest{
		OrderID:   int64(orderID),
		ProductID: c.QueryInt("product_id"),
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}

	res := await(c, ex.CancelOrder(c.Context(), req.OrderID, req.ProductID))
	if res.Success {
		venueOrderID := fmt.Sprintf("%d", req.OrderID)
		if h.store != nil {
			if err := h.store.UpdateTradeStatus(c.Context(), venueOrderID, "cancelled"); err != nil {
				h.logger.Warn("api.trade_status_update_failed",
					zap.String("client", clientID),
					zap.Error(err))
			}
		}
		if h.pub != nil {
			if err := h.pub.PublishOrderCancelled(c.Context(), clientID, venueOrderID); err != nil {
				h.logger.Warn("api.order_event_failed",
					zap.String("client", clientID),
					zap.Error(err))
			}
		}
	}
	return forward(c, res, fiber.StatusOK)
}

// GetOrders handles GET /api/v1/orders.
func (h *ExchangeHandler) GetOrders(c *fiber.Ctx) error {
	ex, _, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}
	productID := c.Query("product_id")
	state := c.Query("state")
	return forward(c, await(c, ex.GetOrders(c.Context(), productID, state)), fiber.StatusOK)
}

// GetOrder handles GET /api/v1/orders/:orderId.
func (h *ExchangeHandler) GetOrder(c *fiber.Ctx) error {
	ex, _, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}
	orderIDInt, _ := c.ParamsInt("orderId")
	orderID := int64(orderIDInt)
	if orderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail("order id is required"))
	}
	return forward(c, await(c, ex.GetOrder(c.Context(), orderID)), fiber.StatusOK)
}

// GetPositions handles GET /api/v1/positions.
func (h *ExchangeHandler) GetPositions(c *fiber.Ctx) error {
	ex, _, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}
	productID := c.Query("product_id")
	return forward(c, await(c, ex.GetPositions(c.Context(), productID)), fiber.StatusOK)
}

// GetFills handles GET /api/v1/fills.
func (h *ExchangeHandler) GetFills(c *fiber.Ctx) error {
	ex, _, err := h.resolve(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail(err.Error()))
	}
	productIDs := c.Query("product_ids")
	startTime := int64(c.QueryInt("start_time"))
	endTime := int64(c.QueryInt("end_time"))
	return forward(c, await(c, ex.GetFills(c.Context(), productIDs, startTime, endTime)), fiber.StatusOK)
}

// GetHistory handles GET /api/v1/history: the locally recorded trade log.
func (h *ExchangeHandler) GetHistory(c *fiber.Ctx) error {
	clientID := c.Get(clientHeader)
	if clientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(delta.Fail("missing " + clientHeader + " header"))
	}

	trades, err := h.store.ListTrades(c.Context(), clientID, c.QueryInt("limit", 50))
	if err != nil {
		h.logger.Error("api.history_failed",
			zap.String("client", clientID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(delta.Fail(err.Error()))
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	return c.Status(fiber.StatusOK).JSON(delta.Ok(trades))
}

// GetCandles handles GET /api/v1/candles: the buffered websocket candle feed.
func (h *ExchangeHandler) GetCandles(c *fiber.Ctx) error {
	if h.stream == nil {
		return c.Status(fiber.StatusNotFound).JSON(delta.Fail("candle stream not configured"))
	}
	return c.Status(fiber.StatusOK).JSON(delta.Ok(map[string]any{
		"symbol":  h.stream.Symbol(),
		"candles": h.stream.Candles(),
	}))
}

// orderIDFromResult pulls the venue order id out of a success payload.
func orderIDFromResult(res delta.Result) string {
	m, ok := res.Result.(map[string]any)
	if !ok {
		return ""
	}
	switch id := m["id"].(type) {
	case float64:
		return fmt.Sprintf("%.0f", id)
	case string:
		return id
	default:
		return ""
	}
}

// orderStatusFromResult pulls the order state, defaulting to "open".
func orderStatusFromResult(res delta.Result) string {
	if m, ok := res.Result.(map[string]any); ok {
		if st, ok := m["state"].(string); ok && st != "" {
			return st
		}
	}
	return "open"
}
