package engine

import (
	"context"
	"log/slog"

	"github.com/quantaloop/gammabot/internal/trading"
)

const fanBuffer = 256

// Fan duplicates a feed stream to n subscribers. Subscriber channels are
// buffered; a subscriber that falls behind loses events rather than stalling
// the feed for everyone else. Output channels close when the input closes or
// ctx is cancelled.
func Fan(ctx context.Context, logger *slog.Logger, in <-chan trading.Event, n int) []<-chan trading.Event {
	outs := make([]chan trading.Event, n)
	for i := range outs {
		outs[i] = make(chan trading.Event, fanBuffer)
	}

	go func() {
		defer func() {
			for _, out := range outs {
				close(out)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				for i, out := range outs {
					select {
					case out <- ev:
					default:
						logger.Warn("fan subscriber buffer full, dropping event", "subscriber", i, "kind", ev.Kind)
					}
				}
			}
		}
	}()

	results := make([]<-chan trading.Event, n)
	for i, out := range outs {
		results[i] = out
	}
	return results
}
