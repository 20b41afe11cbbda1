package model

import "time"

// Trade is the locally persisted record of an order relayed to the venue.
// Mirrors the activity.trades table.
type Trade struct {
	ID           int64     `json:"id"`
	ClientID     string    `json:"client_id"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Quantity     float64   `json:"quantity"`
	Price        string    `json:"price,omitempty"`
	OrderType    string    `json:"order_type"`
	VenueOrderID string    `json:"venue_order_id,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
