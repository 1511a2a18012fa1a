// Package mirror keeps the latest observed top-of-book per market in Redis
// for consumers that want current prices without reading the tape.
package mirror

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/quantaloop/gammabot/internal/trading"
)

const keyPrefix = "tob:gamma:"

// RedisClient is the slice of go-redis the mirror uses. Satisfied by
// *redis.Client.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// bookFields is the last-written bid/ask per key, for duplicate suppression.
type bookFields struct {
	Bid string
	Ask string
}

// Mirror subscribes to a feed stream and writes the best bid/ask for every
// market into a Redis hash:
//
//	Key:    tob:gamma:{market_id}
//	Fields: bid, ask, ts
//
// Unchanged prices are not rewritten; ts alone moving is not worth a write.
type Mirror struct {
	client RedisClient
	logger *slog.Logger
	last   map[string]bookFields
}

func New(client RedisClient, logger *slog.Logger) *Mirror {
	return &Mirror{
		client: client,
		logger: logger.With("component", "mirror"),
		last:   make(map[string]bookFields),
	}
}

// Run blocks until ctx is cancelled or the event stream closes. Trade events
// pass through untouched; only book events are mirrored.
func (m *Mirror) Run(ctx context.Context, events <-chan trading.Event) {
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("mirror stopped", "reason", ctx.Err())
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == trading.KindTopOfBook && ev.TopOfBook != nil {
				m.write(ctx, ev.MarketID, *ev.TopOfBook)
			}
		}
	}
}

func (m *Mirror) write(ctx context.Context, marketID string, tob trading.TopOfBook) {
	cur := bookFields{
		Bid: formatPrice(tob.BestBid),
		Ask: formatPrice(tob.BestAsk),
	}

	key := keyPrefix + marketID
	if prev, ok := m.last[key]; ok && prev == cur {
		return
	}
	m.last[key] = cur

	ts := strconv.FormatInt(tob.ObservedAt.UnixMilli(), 10)
	if err := m.client.HSet(ctx, key, "bid", cur.Bid, "ask", cur.Ask, "ts", ts).Err(); err != nil {
		m.logger.Warn("couldn't write top-of-book", "market_id", marketID, "error", err)
	}
}

// formatPrice renders an optional price; absent sides mirror as empty.
func formatPrice(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
