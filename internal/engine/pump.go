// Package engine moves feed events into execution backends.
package engine

import (
	"context"
	"log/slog"

	"github.com/quantaloop/gammabot/internal/execution"
	"github.com/quantaloop/gammabot/internal/trading"
)

// Pump drains a feed event stream and delivers every event to the broker's
// book/trade handlers.
type Pump struct {
	broker execution.Broker
	logger *slog.Logger
}

func NewPump(broker execution.Broker, logger *slog.Logger) *Pump {
	return &Pump{
		broker: broker,
		logger: logger.With("component", "pump"),
	}
}

// Run blocks until ctx is cancelled or the event stream closes.
func (p *Pump) Run(ctx context.Context, events <-chan trading.Event) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pump stopped", "reason", ctx.Err())
			return
		case ev, ok := <-events:
			if !ok {
				p.logger.Info("feed closed")
				return
			}
			p.dispatch(ctx, ev)
		}
	}
}

func (p *Pump) dispatch(ctx context.Context, ev trading.Event) {
	var (
		fills []trading.Fill
		err   error
	)

	switch ev.Kind {
	case trading.KindTopOfBook:
		fills, err = p.broker.OnBook(ctx, ev.MarketID, *ev.TopOfBook)
	case trading.KindTrade:
		fills, err = p.broker.OnTrade(ctx, ev.MarketID, *ev.Trade)
	default:
		p.logger.Warn("unknown event kind", "kind", ev.Kind, "market_id", ev.MarketID)
		return
	}

	if err != nil {
		p.logger.Error("broker handler failed", "kind", ev.Kind, "market_id", ev.MarketID, "error", err)
		return
	}
	for _, fill := range fills {
		p.logger.Info("fill",
			"order_id", fill.OrderID,
			"market_id", fill.MarketID,
			"side", fill.Side,
			"price", fill.Price,
			"size", fill.Size,
		)
	}
}
