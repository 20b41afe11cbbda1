package delta

import "encoding/json"

//
// ────────────────────────────────────────────────
//   Credentials (per-client, from AWS SM)
// ────────────────────────────────────────────────
//

// Credentials holds one client's venue API credentials. Opaque strings, never
// parsed; an Adapter is constructed with one set and keeps it for life.
// Secret format: {"api_key": "...", "api_secret": "...", "base_url": "https://..."}
type Credentials struct {
	Key     string // venue API key
	Secret  string // venue API secret (HMAC signing key)
	BaseURL string // venue REST base URL (e.g. "https://api.delta.exchange")
}

// rateLimitKey isolates rate limits per venue deployment.
func (c Credentials) rateLimitKey() string {
	return "delta_api:" + c.BaseURL
}

//
// ────────────────────────────────────────────────
//   VENUE → CANONICAL : Wallet balances
// ────────────────────────────────────────────────
//

// walletBalance is one element of the venue's wallet balance list.
// Numeric fields arrive as JSON numbers or quoted number strings depending on
// the endpoint, so they are held as json.Number until conversion.
type walletBalance struct {
	AssetSymbol      string      `json:"asset_symbol"`
	Balance          json.Number `json:"balance"`
	ReservedBalance  json.Number `json:"reserved_balance"`
	AvailableBalance json.Number `json:"available_balance"`
}

// BalanceEntry is the per-asset balance view exposed by GetBalance, keyed by
// asset symbol in the enclosing map.
type BalanceEntry struct {
	Balance          float64 `json:"balance"`
	ReservedBalance  float64 `json:"reserved_balance"`
	AvailableBalance float64 `json:"available_balance"`
}

// numOrZero converts a json.Number, treating absent/garbage values as zero.
func numOrZero(n json.Number) float64 {
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

//
// ────────────────────────────────────────────────
//   VENUE : Products / tickers / orders
// ────────────────────────────────────────────────
//

// productRef is the minimal view of a product record needed for symbol → id
// resolution. Products are otherwise passed through undecoded.
type productRef struct {
	ID     int    `json:"id"`
	Symbol string `json:"symbol"`
}

// orderPayload is the order placement body sent to the venue.
// Size is an integer count of contracts (the venue does not accept fractional
// contracts; see Adapter.placeOrder for the truncation rule).
type orderPayload struct {
	ProductID  int    `json:"product_id"`
	Size       int64  `json:"size"`
	Side       string `json:"side"`
	OrderType  string `json:"order_type"`
	LimitPrice string `json:"limit_price,omitempty"`
}

// cancelPayload is the order cancellation body.
type cancelPayload struct {
	ID        int64 `json:"id"`
	ProductID int   `json:"product_id"`
}
