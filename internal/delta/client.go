package delta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tradedeck/delta-adapter/internal/httpclient"
	"github.com/tradedeck/delta-adapter/internal/metrics"
	"github.com/tradedeck/delta-adapter/internal/rate"
)

// Client wraps low-level HTTP communication with the venue's REST API.
// One Client serves one credential set; its method signatures mirror the
// venue's surface and are treated as boundary facts. Raw bodies are returned
// undecoded because the venue answers with inconsistent shapes — decoding
// happens once, in envelope.go.
type Client struct {
	logger *zap.Logger
	creds  Credentials
	signer *signer
	exec   *httpclient.Executor
}

// NewClient constructs a venue client for one credential set.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, creds Credentials) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	exec := httpclient.New(logger, rateMgr, httpClient, 2, "delta", func(status int, body []byte) error {
		// Business failures come back as 4xx envelopes; those flow through to
		// the adapter untouched. Anything else is a transport-level error.
		if resp := decodeVenueResponse(body); resp.kind == shapeFailure {
			return nil
		}
		logger.Warn("delta.client_error",
			zap.Int("status", status),
			zap.String("body", string(body)))
		return fmt.Errorf("delta returned %d: %s", status, string(body))
	})
	return &Client{
		logger: logger,
		creds:  creds,
		signer: newSigner(creds),
		exec:   exec,
	}
}

// Credentials returns the credential set this client was built with.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// ListWalletBalances fetches authenticated wallet balances.
// GET /v2/wallet/balances — assetID filters to one asset when non-empty.
func (c *Client) ListWalletBalances(ctx context.Context, assetID string) ([]byte, error) {
	q := url.Values{}
	if assetID != "" {
		q.Set("asset_id", assetID)
	}
	return c.get(ctx, "/v2/wallet/balances", q, true)
}

// ListAssets fetches the public asset list.
// GET /v2/assets
func (c *Client) ListAssets(ctx context.Context) ([]byte, error) {
	return c.get(ctx, "/v2/assets", nil, false)
}

// GetTicker fetches the ticker for a venue-internal product id.
// GET /v2/tickers/{productID}
func (c *Client) GetTicker(ctx context.Context, productID int) ([]byte, error) {
	return c.get(ctx, "/v2/tickers/"+strconv.Itoa(productID), nil, false)
}

// CreateOrder places an order.
// POST /v2/orders
func (c *Client) CreateOrder(ctx context.Context, payload orderPayload) ([]byte, error) {
	return c.send(ctx, http.MethodPost, "/v2/orders", payload)
}

// ListOrders lists orders filtered by product and state.
// GET /v2/orders
func (c *Client) ListOrders(ctx context.Context, productID, state string) ([]byte, error) {
	q := url.Values{}
	if productID != "" {
		q.Set("product_ids", productID)
	}
	if state != "" {
		q.Set("states", state)
	}
	q.Set("page_size", "50")
	return c.get(ctx, "/v2/orders", q, true)
}

// GetOrder fetches a single order by id.
// GET /v2/orders/{orderID}
func (c *Client) GetOrder(ctx context.Context, orderID int64) ([]byte, error) {
	return c.get(ctx, "/v2/orders/"+strconv.FormatInt(orderID, 10), nil, true)
}

// ListPositions fetches open positions. A product id filters to one product;
// without it the venue's margined-position listing is used instead.
// GET /v2/positions?product_id= | GET /v2/positions/margined
func (c *Client) ListPositions(ctx context.Context, productID string) ([]byte, error) {
	if productID != "" {
		q := url.Values{}
		q.Set("product_id", productID)
		return c.get(ctx, "/v2/positions", q, true)
	}
	return c.get(ctx, "/v2/positions/margined", nil, true)
}

// ListFills fetches the fill history filtered by product and time window.
// GET /v2/fills
func (c *Client) ListFills(ctx context.Context, productIDs string, startTime, endTime int64) ([]byte, error) {
	q := url.Values{}
	if productIDs != "" {
		q.Set("product_ids", productIDs)
	}
	if startTime > 0 {
		q.Set("start_time", strconv.FormatInt(startTime, 10))
	}
	if endTime > 0 {
		q.Set("end_time", strconv.FormatInt(endTime, 10))
	}
	q.Set("page_size", "50")
	return c.get(ctx, "/v2/fills", q, true)
}

// DeleteOrder cancels an order.
// DELETE /v2/orders
func (c *Client) DeleteOrder(ctx context.Context, orderID int64, productID int) ([]byte, error) {
	return c.send(ctx, http.MethodDelete, "/v2/orders", cancelPayload{
		ID:        orderID,
		ProductID: productID,
	})
}

// get performs a GET request, signing it when authed.
func (c *Client) get(ctx context.Context, path string, query url.Values, authed bool) ([]byte, error) {
	u := c.creds.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		c.signer.authorize(req, nil)
	}

	start := time.Now()
	body, err := c.exec.Do(ctx, req, c.creds.rateLimitKey())
	c.observe(path, http.MethodGet, start, err)
	return body, err
}

// send performs a JSON-body request (POST/DELETE), always signed.
func (c *Client) send(ctx context.Context, method, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.creds.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.signer.authorize(req, data)

	start := time.Now()
	body, err := c.exec.Do(ctx, req, c.creds.rateLimitKey())
	c.observe(path, method, start, err)
	return body, err
}

func (c *Client) observe(endpoint, method string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.IncVenueRequest(endpoint, method, status)
	metrics.ObserveDuration(metrics.VenueRequestDuration, start, endpoint, method)
}
