package delta

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/internal/async"
	"github.com/tradedeck/delta-adapter/internal/metrics"
)

const (
	// DefaultAssetID is the venue's primary settlement asset.
	DefaultAssetID = "1"
	// DefaultOrderType is used when a caller omits the order type.
	DefaultOrderType = "limit"
	// DefaultOrderState is used when a caller omits the order state filter.
	DefaultOrderState = "open"
	// productCacheTTL bounds staleness of the cached symbol → product id map.
	productCacheTTL = 5 * time.Minute
)

// Cache is the optional catalog cache consulted during symbol resolution.
// Satisfied by the service store; a nil cache disables caching entirely.
type Cache interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
}

// Adapter presents one uniform contract over the venue: every operation
// returns a Result, never an error — transport failures, venue-reported
// failures and shape inconsistencies are all converted to Failure values at
// this boundary. Nothing is retried here; retry policy belongs to the caller.
//
// Each operation has an async entry returning a Future (the blocking venue
// call is hosted on the gateway's worker pool) and a Sync entry for callers
// that cannot await. Both share one core implementation.
type Adapter struct {
	creds  Credentials
	client *Client
	gw     *async.Gateway
	cache  Cache
	logger *zap.Logger

	// connected is a best-effort flag updated by TestConnection. It is
	// advisory only: concurrent writers may race and no operation gates
	// behavior on it.
	connected bool
}

// NewAdapter builds an adapter bound to one credential set for its lifetime.
// cache may be nil.
func NewAdapter(creds Credentials, client *Client, gw *async.Gateway, cache Cache, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		creds:  creds,
		client: client,
		gw:     gw,
		cache:  cache,
		logger: logger,
	}
}

// Credentials returns the credential set this adapter was constructed with.
func (a *Adapter) Credentials() Credentials {
	return a.creds
}

// Connected reports the advisory connection flag (display only).
func (a *Adapter) Connected() bool {
	return a.connected
}

//
// ────────────────────────────────────────────────
//   Async entry points (gateway-dispatched)
// ────────────────────────────────────────────────
//

func (a *Adapter) TestConnection(ctx context.Context) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "test_connection", a.testConnection)
}

func (a *Adapter) GetBalance(ctx context.Context, assetID string) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "get_balance", func(ctx context.Context) Result {
		return a.getBalance(ctx, assetID)
	})
}

func (a *Adapter) GetProducts(ctx context.Context) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "get_products", a.getProducts)
}

func (a *Adapter) PlaceOrder(ctx context.Context, productID int, side string, quantity float64, price, orderType string) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "place_order", func(ctx context.Context) Result {
		return a.placeOrder(ctx, productID, side, quantity, price, orderType)
	})
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID int64, productID int) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "cancel_order", func(ctx context.Context) Result {
		return a.cancelOrder(ctx, orderID, productID)
	})
}

func (a *Adapter) GetOrders(ctx context.Context, productID, state string) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "get_orders", func(ctx context.Context) Result {
		return a.getOrders(ctx, productID, state)
	})
}

func (a *Adapter) GetOrder(ctx context.Context, orderID int64) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "get_order", func(ctx context.Context) Result {
		return a.getOrder(ctx, orderID)
	})
}

func (a *Adapter) GetPositions(ctx context.Context, productID string) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "get_positions", func(ctx context.Context) Result {
		return a.getPositions(ctx, productID)
	})
}

func (a *Adapter) GetFills(ctx context.Context, productIDs string, startTime, endTime int64) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "get_fills", func(ctx context.Context) Result {
		return a.getFills(ctx, productIDs, startTime, endTime)
	})
}

func (a *Adapter) GetTicker(ctx context.Context, symbol string) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "get_ticker", func(ctx context.Context) Result {
		return a.getTicker(ctx, symbol)
	})
}

func (a *Adapter) GetAccountInfo(ctx context.Context) *async.Future[Result] {
	return async.Submit(a.gw, ctx, "get_account_info", func(ctx context.Context) Result {
		return a.getBalance(ctx, DefaultAssetID)
	})
}

//
// ────────────────────────────────────────────────
//   Sync entry points (BlockOn over the same core)
// ────────────────────────────────────────────────
//

func (a *Adapter) TestConnectionSync(ctx context.Context) Result {
	return a.blockOn(ctx, a.TestConnection(ctx))
}

func (a *Adapter) GetBalanceSync(ctx context.Context, assetID string) Result {
	return a.blockOn(ctx, a.GetBalance(ctx, assetID))
}

func (a *Adapter) GetProductsSync(ctx context.Context) Result {
	return a.blockOn(ctx, a.GetProducts(ctx))
}

func (a *Adapter) PlaceOrderSync(ctx context.Context, productID int, side string, quantity float64, price, orderType string) Result {
	return a.blockOn(ctx, a.PlaceOrder(ctx, productID, side, quantity, price, orderType))
}

func (a *Adapter) CancelOrderSync(ctx context.Context, orderID int64, productID int) Result {
	return a.blockOn(ctx, a.CancelOrder(ctx, orderID, productID))
}

func (a *Adapter) GetOrdersSync(ctx context.Context, productID, state string) Result {
	return a.blockOn(ctx, a.GetOrders(ctx, productID, state))
}

func (a *Adapter) GetOrderSync(ctx context.Context, orderID int64) Result {
	return a.blockOn(ctx, a.GetOrder(ctx, orderID))
}

func (a *Adapter) GetPositionsSync(ctx context.Context, productID string) Result {
	return a.blockOn(ctx, a.GetPositions(ctx, productID))
}

func (a *Adapter) GetFillsSync(ctx context.Context, productIDs string, startTime, endTime int64) Result {
	return a.blockOn(ctx, a.GetFills(ctx, productIDs, startTime, endTime))
}

func (a *Adapter) GetTickerSync(ctx context.Context, symbol string) Result {
	return a.blockOn(ctx, a.GetTicker(ctx, symbol))
}

func (a *Adapter) GetAccountInfoSync(ctx context.Context) Result {
	return a.blockOn(ctx, a.GetAccountInfo(ctx))
}

// blockOn waits for fut, folding a caller-deadline expiry into a Failure so
// sync callers still see a normalized result. The worker-side call runs to
// completion regardless.
func (a *Adapter) blockOn(ctx context.Context, fut *async.Future[Result]) Result {
	res, err := async.BlockOn(ctx, fut)
	if err != nil {
		return Fail(err.Error())
	}
	return res
}

//
// ────────────────────────────────────────────────
//   Core operations
// ────────────────────────────────────────────────
//

// testConnection calls the authenticated asset listing and succeeds only on a
// non-empty list — either a bare list or a success envelope whose result is a
// non-empty list. The non-empty rule dominates the envelope's own flag: a
// success envelope wrapping an empty list still fails.
func (a *Adapter) testConnection(ctx context.Context) Result {
	body, err := a.client.ListWalletBalances(ctx, "")
	if err != nil {
		a.connected = false
		a.logger.Warn("delta.test_connection.failed", zap.Error(err))
		return a.done("test_connection", Fail(err.Error()))
	}

	resp := decodeVenueResponse(body)
	switch resp.kind {
	case shapeBareList, shapeSuccess:
		if list, ok := resp.resultList(); ok && len(list) == 0 {
			a.connected = false
			return a.done("test_connection", Fail("connection test returned an empty asset list"))
		}
		a.connected = true
		a.logger.Info("delta.connected", zap.String("base_url", a.creds.BaseURL))
		return a.done("test_connection", Ok(resp.resultAny()))
	case shapeFailure:
		a.connected = false
		return a.done("test_connection", Fail(resp.errMsg))
	default:
		a.connected = false
		return a.done("test_connection", Fail("unexpected response shape from asset listing"))
	}
}

// getBalance fetches raw balances for one asset id and reshapes the list into
// a map keyed by asset symbol. Venue-reported failures pass through unchanged.
func (a *Adapter) getBalance(ctx context.Context, assetID string) Result {
	if assetID == "" {
		assetID = DefaultAssetID
	}

	body, err := a.client.ListWalletBalances(ctx, assetID)
	if err != nil {
		a.logger.Warn("delta.get_balance.failed",
			zap.String("asset_id", assetID),
			zap.Error(err))
		return a.done("get_balance", Fail(err.Error()))
	}

	resp := decodeVenueResponse(body)
	switch resp.kind {
	case shapeBareList, shapeSuccess:
		list, ok := resp.resultList()
		if !ok {
			return a.done("get_balance", Fail("balance response is not a list"))
		}
		balances := make(map[string]BalanceEntry, len(list))
		for _, raw := range list {
			var wb walletBalance
			if err := json.Unmarshal(raw, &wb); err != nil {
				continue
			}
			sym := wb.AssetSymbol
			if sym == "" {
				sym = "unknown"
			}
			balances[sym] = BalanceEntry{
				Balance:          numOrZero(wb.Balance),
				ReservedBalance:  numOrZero(wb.ReservedBalance),
				AvailableBalance: numOrZero(wb.AvailableBalance),
			}
		}
		return a.done("get_balance", Ok(balances))
	case shapeFailure:
		return a.done("get_balance", Fail(resp.errMsg))
	default:
		return a.done("get_balance", Fail("unexpected response shape from balance lookup"))
	}
}

// getProducts returns the public asset list as a stand-in for the product
// catalog — the true per-product lookup needs a product id that is not known
// ahead of time. Both bare lists and envelopes normalize to a success list.
func (a *Adapter) getProducts(ctx context.Context) Result {
	body, err := a.client.ListAssets(ctx)
	if err != nil {
		a.logger.Warn("delta.get_products.failed", zap.Error(err))
		return a.done("get_products", Fail(err.Error()))
	}

	resp := decodeVenueResponse(body)
	switch resp.kind {
	case shapeBareList, shapeSuccess:
		list, ok := resp.resultList()
		if !ok {
			return a.done("get_products", Fail("product listing is not a list"))
		}
		return a.done("get_products", Ok(list))
	case shapeFailure:
		return a.done("get_products", Fail(resp.errMsg))
	default:
		return a.done("get_products", Fail("unexpected response shape from product listing"))
	}
}

// placeOrder forwards an order to the venue. Quantity is truncated to an
// integer count of contracts — fractions below one contract unit are lost
// silently (a documented limitation carried over from the venue's contract
// sizing, not a rounding policy).
func (a *Adapter) placeOrder(ctx context.Context, productID int, side string, quantity float64, price, orderType string) Result {
	if orderType == "" {
		orderType = DefaultOrderType
	}

	payload := orderPayload{
		ProductID: productID,
		Size:      decimal.NewFromFloat(quantity).IntPart(),
		Side:      side,
		OrderType: orderType,
	}
	if price != "" && orderType == DefaultOrderType {
		payload.LimitPrice = price
	}

	a.logger.Info("delta.place_order",
		zap.Int("product_id", productID),
		zap.String("side", side),
		zap.Int64("size", payload.Size),
		zap.String("order_type", orderType))

	body, err := a.client.CreateOrder(ctx, payload)
	if err != nil {
		a.logger.Error("delta.place_order.failed",
			zap.Int("product_id", productID),
			zap.Error(err))
		return a.done("place_order", Fail(err.Error()))
	}

	resp := decodeVenueResponse(body)
	switch resp.kind {
	case shapeSuccess:
		return a.done("place_order", Ok(resp.resultAny()))
	case shapeFailure:
		return a.done("place_order", Fail(resp.errMsg))
	default:
		return a.done("place_order", Fail("order placement failed"))
	}
}

// cancelOrder cancels an order on the venue.
func (a *Adapter) cancelOrder(ctx context.Context, orderID int64, productID int) Result {
	body, err := a.client.DeleteOrder(ctx, orderID, productID)
	if err != nil {
		a.logger.Error("delta.cancel_order.failed",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return a.done("cancel_order", Fail(err.Error()))
	}

	resp := decodeVenueResponse(body)
	switch resp.kind {
	case shapeSuccess, shapeBareList:
		return a.done("cancel_order", Ok(resp.resultAny()))
	case shapeFailure:
		return a.done("cancel_order", Fail(resp.errMsg))
	default:
		return a.done("cancel_order", Fail("order cancellation failed"))
	}
}

// getOrders lists orders filtered by state (default "open").
func (a *Adapter) getOrders(ctx context.Context, productID, state string) Result {
	if state == "" {
		state = DefaultOrderState
	}

	body, err := a.client.ListOrders(ctx, productID, state)
	if err != nil {
		a.logger.Warn("delta.get_orders.failed", zap.Error(err))
		return a.done("get_orders", Fail(err.Error()))
	}

	resp := decodeVenueResponse(body)
	switch resp.kind {
	case shapeBareList, shapeSuccess:
		return a.done("get_orders", Ok(resp.resultAny()))
	case shapeFailure:
		return a.done("get_orders", Fail(resp.errMsg))
	default:
		return a.done("get_orders", Fail("unexpected response shape from order listing"))
	}
}

// getOrder fetches a single order by id.
func (a *Adapter) getOrder(ctx context.Context, orderID int64) Result {
	body, err := a.client.GetOrder(ctx, orderID)
	if err != nil {
		a.logger.Warn("delta.get_order.failed",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return a.done("get_order", Fail(err.Error()))
	}

	resp := decodeVenueResponse(body)
	switch resp.kind {
	case shapeSuccess:
		return a.done("get_order", Ok(resp.resultAny()))
	case shapeFailure:
		return a.done("get_order", Fail(resp.errMsg))
	default:
		return a.done("get_order", Fail("unexpected response shape from order lookup"))
	}
}

// getPositions lists open positions, optionally filtered to one product.
func (a *Adapter) getPositions(ctx context.Context, productID string) Result {
	body, err := a.client.ListPositions(ctx, productID)
	if err != nil {
		a.logger.Warn("delta.get_positions.failed", zap.Error(err))
		return a.done("get_positions", Fail(err.Error()))
	}

	resp := decodeVenueResponse(body)
	switch resp.kind {
	case shapeBareList, shapeSuccess:
		return a.done("get_positions", Ok(resp.resultAny()))
	case shapeFailure:
		return a.done("get_positions", Fail(resp.errMsg))
	default:
		return a.done("get_positions", Fail("unexpected response shape from position listing"))
	}
}

// getFills lists the fill history within the optional time window.
func (a *Adapter) getFills(ctx context.Context, productIDs string, startTime, endTime int64) Result {
	body, err := a.client.ListFills(ctx, productIDs, startTime, endTime)
	if err != nil {
		a.logger.Warn("delta.get_fills.failed", zap.Error(err))
		return a.done("get_fills", Fail(err.Error()))
	}

	resp := decodeVenueResponse(body)
	switch resp.kind {
	case shapeBareList, shapeSuccess:
		return a.done("get_fills", Ok(resp.resultAny()))
	case shapeFailure:
		return a.done("get_fills", Fail(resp.errMsg))
	default:
		return a.done("get_fills", Fail("unexpected response shape from fill listing"))
	}
}

// productCacheKey scopes the cached catalog to one venue deployment.
func (a *Adapter) productCacheKey() string {
	return "delta:product_ids:" + a.creds.BaseURL
}

// resolveProductID maps symbol to the venue-internal product id, consulting
// the cached catalog first and refetching on a miss. First exact match wins.
// Returns a failure Result when the symbol cannot be resolved.
func (a *Adapter) resolveProductID(ctx context.Context, symbol string) (int, *Result) {
	if a.cache != nil {
		var ids map[string]int
		if err := a.cache.GetJSON(ctx, a.productCacheKey(), &ids); err == nil {
			if id, ok := ids[symbol]; ok {
				return id, nil
			}
			// A cached catalog without the symbol may just be stale; refetch.
		}
	}

	products := a.getProducts(ctx)
	if !products.Success {
		return 0, &products
	}

	list, _ := products.Result.([]json.RawMessage)
	ids := make(map[string]int, len(list))
	for _, raw := range list {
		var ref productRef
		if err := json.Unmarshal(raw, &ref); err != nil || ref.Symbol == "" {
			continue
		}
		if _, seen := ids[ref.Symbol]; !seen {
			ids[ref.Symbol] = ref.ID
		}
	}

	if a.cache != nil {
		if err := a.cache.SetJSON(ctx, a.productCacheKey(), ids, productCacheTTL); err != nil {
			a.logger.Debug("delta.product_cache.write_failed", zap.Error(err))
		}
	}

	if id, ok := ids[symbol]; ok {
		return id, nil
	}
	notFound := a.done("get_ticker", Fail(fmt.Sprintf("product %s not found", symbol)))
	return 0, &notFound
}

// getTicker resolves symbol to a venue-internal product id, then fetches the
// ticker for that id. No match short-circuits before the ticker endpoint.
func (a *Adapter) getTicker(ctx context.Context, symbol string) Result {
	productID, failed := a.resolveProductID(ctx, symbol)
	if failed != nil {
		return *failed
	}

	body, err := a.client.GetTicker(ctx, productID)
	if err != nil {
		a.logger.Warn("delta.get_ticker.failed",
			zap.String("symbol", symbol),
			zap.Int("product_id", productID),
			zap.Error(err))
		return a.done("get_ticker", Fail(err.Error()))
	}

	resp := decodeVenueResponse(body)
	switch resp.kind {
	case shapeSuccess, shapeBareList:
		return a.done("get_ticker", Ok(resp.resultAny()))
	case shapeFailure:
		return a.done("get_ticker", Fail(resp.errMsg))
	default:
		return a.done("get_ticker", Fail("unexpected response shape from ticker lookup for " + strconv.Itoa(productID)))
	}
}

// done records the operation outcome metric and returns res unchanged.
func (a *Adapter) done(op string, res Result) Result {
	metrics.IncAdapterOp(op, res.Success)
	return res
}
