package api

import "fmt"

// PlaceOrderRequest is the payload for relaying an order to the venue.
type PlaceOrderRequest struct {
	ProductID int     `json:"product_id" example:"27"`
	Symbol    string  `json:"symbol" example:"BTCUSD"`
	Side      string  `json:"side" example:"buy"`
	Quantity  float64 `json:"quantity" example:"2"`
	Price     string  `json:"price,omitempty" example:"64250.5"`
	OrderType string  `json:"order_type,omitempty" example:"limit"`
}

// Validate checks the request for required fields.
func (r *PlaceOrderRequest) Validate() error {
	if r.ProductID <= 0 {
		return fmt.Errorf("product_id is required")
	}
	if r.Side != "buy" && r.Side != "sell" {
		return fmt.Errorf("side must be buy or sell")
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	return nil
}

// CancelOrderRequest is the payload for cancelling a venue order.
type CancelOrderRequest struct {
	OrderID   int64 `json:"order_id"`
	ProductID int   `json:"product_id"`
}

// Validate checks the request for required fields.
func (r *CancelOrderRequest) Validate() error {
	if r.OrderID <= 0 {
		return fmt.Errorf("order_id is required")
	}
	if r.ProductID <= 0 {
		return fmt.Errorf("product_id is required")
	}
	return nil
}
