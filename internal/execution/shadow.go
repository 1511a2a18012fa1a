package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantaloop/gammabot/internal/store"
	"github.com/quantaloop/gammabot/internal/trading"
)

// executionModeShadow tags persisted order records so shadow intent is never
// mistaken for a real placement.
const executionModeShadow = "shadow"

// OrderStore is the slice of the store the shadow broker writes to.
type OrderStore interface {
	InsertOrder(ctx context.Context, p store.InsertOrderParams) error
}

// ShadowBroker records every placement and cancellation intent to the order
// table and the logs, and guarantees zero fills and zero portfolio effect.
// It exists to validate signal frequency and order churn on live data
// without capital at risk.
type ShadowBroker struct {
	NoFills
	stor   OrderStore
	logger *slog.Logger
}

var _ Broker = (*ShadowBroker)(nil)

func NewShadowBroker(s OrderStore, logger *slog.Logger) *ShadowBroker {
	return &ShadowBroker{
		stor:   s,
		logger: logger.With("component", "broker.shadow"),
	}
}

// PlaceLimit records the intent and returns the order already finalized as
// rejected with nothing filled. It never fails: a store error is logged and
// the order is still returned.
func (b *ShadowBroker) PlaceLimit(ctx context.Context, req trading.OrderRequest) (trading.Order, error) {
	order := trading.Order{
		OrderID:    uuid.NewString(),
		MarketID:   req.MarketID,
		Side:       req.Side,
		Price:      req.Price,
		Size:       req.Size,
		CreatedAt:  time.Now(),
		Status:     trading.OrderStatusRejected,
		FilledSize: 0,
	}

	meta := make(map[string]any, len(req.Meta)+1)
	for k, v := range req.Meta {
		meta[k] = v
	}
	meta["execution_mode"] = executionModeShadow

	if err := b.stor.InsertOrder(ctx, store.InsertOrderParams{
		OrderID:    order.OrderID,
		MarketID:   order.MarketID,
		Side:       order.Side,
		Price:      order.Price,
		Size:       order.Size,
		CreatedAt:  order.CreatedAt,
		Status:     order.Status,
		FilledSize: order.FilledSize,
		Meta:       meta,
	}); err != nil {
		b.logger.Error("couldn't record shadow order", "order_id", order.OrderID, "error", err)
	}

	b.logger.Info("shadow order",
		"order_id", order.OrderID,
		"market_id", order.MarketID,
		"side", order.Side,
		"price", order.Price,
		"size", order.Size,
	)
	return order, nil
}

// Cancel holds no order table; the intent is only logged. Idempotent by
// construction.
func (b *ShadowBroker) Cancel(_ context.Context, orderID string) error {
	b.logger.Info("shadow cancel", "order_id", orderID)
	return nil
}

// CancelAllMarket logs the intent for the whole market.
func (b *ShadowBroker) CancelAllMarket(_ context.Context, marketID string) error {
	b.logger.Info("shadow cancel all", "market_id", marketID)
	return nil
}
