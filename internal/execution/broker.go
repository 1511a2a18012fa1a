// Package execution defines the broker contract and the backends that
// implement it.
package execution

import (
	"context"

	"github.com/quantaloop/gammabot/internal/trading"
)

// Broker is the capability set every execution backend must provide,
// shadow, simulated or live venue alike. The feed pump delivers book and
// trade events through OnBook/OnTrade; strategies place and cancel orders
// through the rest.
type Broker interface {
	// PlaceLimit submits a resting limit order. Validation-shaped failures
	// come back as an Order with a rejected status; the error return is
	// reserved for transport and system failures.
	PlaceLimit(ctx context.Context, req trading.OrderRequest) (trading.Order, error)

	// Cancel requests cancellation of a previously placed order. Best
	// effort when the order is already terminal.
	Cancel(ctx context.Context, orderID string) error

	// CancelAllMarket requests cancellation of all live orders in one
	// market.
	CancelAllMarket(ctx context.Context, marketID string) error

	// OnBook is delivered for every top-of-book observation on a market the
	// backend may have resting interest in. Backends that simulate matching
	// synthesize fills here; everyone else returns no fills.
	OnBook(ctx context.Context, marketID string, tob trading.TopOfBook) ([]trading.Fill, error)

	// OnTrade is delivered on trade prints when the feed can supply them.
	OnTrade(ctx context.Context, marketID string, trade trading.TradeTick) ([]trading.Fill, error)
}

// NoFills provides no-op OnBook/OnTrade for backends that never synthesize
// fills from feed events. Embed it to opt out of event handling.
type NoFills struct{}

func (NoFills) OnBook(context.Context, string, trading.TopOfBook) ([]trading.Fill, error) {
	return nil, nil
}

func (NoFills) OnTrade(context.Context, string, trading.TradeTick) ([]trading.Fill, error) {
	return nil, nil
}
