// Package trading defines the market data and order types shared by the
// feed and execution layers.
package trading

import "time"

// Side of a trade or order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderStatus tracks where an order is in its lifecycle:
// pending -> {accepted|rejected} -> [partially_filled]* -> {filled|canceled|expired}.
// Backends are free to collapse the machine; the shadow broker goes straight
// to rejected.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusAccepted        OrderStatus = "accepted"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusExpired         OrderStatus = "expired"
)

// TopOfBook is the best bid/ask observed for a market. Either side may be
// absent on an unquoted market. ObservedAt is refreshed on every poll even
// when prices don't move, so staleness checks downstream measure observation
// recency rather than price-change recency.
type TopOfBook struct {
	BestBid     *float64  `json:"best_bid"`
	BestBidSize *float64  `json:"best_bid_size"`
	BestAsk     *float64  `json:"best_ask"`
	BestAskSize *float64  `json:"best_ask_size"`
	ObservedAt  time.Time `json:"ts"`
}

// TradeTick is a trade print. Gamma only exposes a last trade price, not a
// real tape, so Size is a fixed placeholder and Side is inferred.
type TradeTick struct {
	MarketID   string    `json:"market_id"`
	Price      float64   `json:"price"`
	Size       float64   `json:"size"`
	Side       Side      `json:"side"`
	ObservedAt time.Time `json:"ts"`
}

// OrderRequest is an intent to place a resting limit order.
type OrderRequest struct {
	MarketID string
	Side     Side
	Price    float64
	Size     float64
	Meta     map[string]any
}

// Order is a placed order as seen by its execution backend.
type Order struct {
	OrderID    string
	MarketID   string
	Side       Side
	Price      float64
	Size       float64
	CreatedAt  time.Time
	Status     OrderStatus
	FilledSize float64
}

// Fill is an execution event against an order.
type Fill struct {
	OrderID  string
	MarketID string
	Side     Side
	Price    float64
	Size     float64
	FilledAt time.Time
}
