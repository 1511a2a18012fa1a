package gamma

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/quantaloop/gammabot/internal/store"
	"github.com/quantaloop/gammabot/internal/trading"
)

const (
	// componentName distinguishes this feed from other sources in the
	// runtime status register.
	componentName = "feed.gamma"

	// minPollInterval bounds the request rate regardless of configuration.
	minPollInterval = 250 * time.Millisecond

	// priceTolerance is the float tolerance for "trade hit the bid/ask".
	priceTolerance = 1e-9
)

// Store is the slice of the tape store the feed writes to.
type Store interface {
	InsertTape(ctx context.Context, p store.InsertTapeParams) error
	UpsertRuntimeStatus(ctx context.Context, p store.UpsertRuntimeStatusParams) error
}

type lister interface {
	ListMarkets(ctx context.Context, limit int) ([]Record, error)
}

type Config struct {
	BaseURL      string
	PollInterval time.Duration
	Limit        int // page size requested from the listing endpoint
}

// PollStream polls the gamma market listing and emits per-market top-of-book
// and trade events.
//
// The CLOB websocket endpoints change and break often; gamma already carries
// bestBid/bestAsk/lastTradePrice, so a steady poll keeps the bot fed at the
// cost of staleness bounded by the poll interval.
//
// Gamma often leaves bestBid/bestAsk unchanged for long stretches. The tape
// only gets a row when the book actually moves, but a book event is emitted
// on every observation so downstream staleness checks track observation time,
// not price-change time.
type PollStream struct {
	stor     Store
	client   lister
	interval time.Duration
	limit    int
	logger   *slog.Logger

	// Last observed (bid, ask) and trade price per market. Owned by the
	// polling goroutine alone. Entries are created lazily and never evicted;
	// the watched market set is small and slow to change.
	lastBook  map[string]bookState
	lastTrade map[string]tradeState
}

type bookState struct {
	bid, ask       float64
	hasBid, hasAsk bool
}

type tradeState struct {
	price float64
	has   bool
}

func NewPollStream(cfg Config, s Store, logger *slog.Logger) *PollStream {
	interval := cfg.PollInterval
	if interval < minPollInterval {
		interval = minPollInterval
	}
	return &PollStream{
		stor:      s,
		client:    NewClient(cfg.BaseURL),
		interval:  interval,
		limit:     cfg.Limit,
		logger:    logger.With("component", componentName),
		lastBook:  make(map[string]bookState),
		lastTrade: make(map[string]tradeState),
	}
}

// Events starts the polling loop and returns its event stream. The loop runs
// until ctx is cancelled; a failed cycle is reported and retried on the next
// tick, it never kills the loop. Events is meant to be called once per
// stream.
func (s *PollStream) Events(ctx context.Context, provider trading.MarketIDsProvider) <-chan trading.Event {
	events := make(chan trading.Event)

	go func() {
		defer close(events)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("started gamma feed", "poll", s.interval, "limit", s.limit)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("gamma feed stopped", "reason", ctx.Err())
				return
			case <-ticker.C:
				s.pollCycle(ctx, provider, events)
			}
		}
	}()

	return events
}

// pollCycle runs one cycle and routes any failure to the status register.
func (s *PollStream) pollCycle(ctx context.Context, provider trading.MarketIDsProvider, events chan<- trading.Event) {
	err := s.poll(ctx, provider, events)
	if err == nil {
		return
	}
	if ctx.Err() != nil {
		// Shutting down, not a feed failure.
		return
	}

	s.logger.Error("gamma feed failed", "error", err)
	s.reportStatus(ctx, "error", "gamma feed failed", fmt.Sprintf("%T: %v", err, err))
}

func (s *PollStream) poll(ctx context.Context, provider trading.MarketIDsProvider, events chan<- trading.Event) error {
	want := wantedIDs(provider)
	if len(want) == 0 {
		return nil
	}

	records, err := s.client.ListMarkets(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("couldn't fetch market listing: %w", err)
	}

	byID := make(map[string]Record, len(records))
	for _, rec := range records {
		if id, ok := rec.ID(); ok {
			byID[id] = rec
		}
	}

	now := time.Now()
	observed := 0
	changed := 0

	for _, marketID := range want {
		rec, ok := byID[marketID]
		if !ok {
			// Not in this snapshot; try again next cycle.
			continue
		}

		bid, hasBid := rec.BestBid()
		ask, hasAsk := rec.BestAsk()
		lastPx, hasLastPx := rec.LastTradePrice()

		cur := bookState{bid: bid, ask: ask, hasBid: hasBid, hasAsk: hasAsk}
		prev, seen := s.lastBook[marketID]
		s.lastBook[marketID] = cur

		tob := trading.TopOfBook{
			BestBid:    optional(bid, hasBid),
			BestAsk:    optional(ask, hasAsk),
			ObservedAt: now,
		}
		if !seen || prev != cur {
			if err := s.stor.InsertTape(ctx, store.InsertTapeParams{
				Time:     now,
				MarketID: marketID,
				Kind:     trading.KindTopOfBook,
				Payload:  tob,
			}); err != nil {
				return fmt.Errorf("couldn't append tob tape row: %w", err)
			}
			changed++
		}
		observed++

		if !emit(ctx, events, trading.Event{Kind: trading.KindTopOfBook, MarketID: marketID, TopOfBook: &tob}) {
			return ctx.Err()
		}

		// Best-effort trade prints: gamma exposes a last trade price, not a
		// real tape, so a trade event only goes out when it moves.
		curTrade := tradeState{price: lastPx, has: hasLastPx}
		prevTrade := s.lastTrade[marketID]
		s.lastTrade[marketID] = curTrade
		if !curTrade.has || curTrade == prevTrade {
			continue
		}

		tick := trading.TradeTick{
			MarketID:   marketID,
			Price:      lastPx,
			Size:       1.0, // gamma exposes no trade size
			Side:       inferSide(lastPx, cur),
			ObservedAt: now,
		}
		if err := s.stor.InsertTape(ctx, store.InsertTapeParams{
			Time:     now,
			MarketID: marketID,
			Kind:     trading.KindTrade,
			Payload:  tick,
		}); err != nil {
			return fmt.Errorf("couldn't append trade tape row: %w", err)
		}

		if !emit(ctx, events, trading.Event{Kind: trading.KindTrade, MarketID: marketID, Trade: &tick}) {
			return ctx.Err()
		}
	}

	s.reportStatus(ctx, "ok",
		fmt.Sprintf("gamma polling ok (observed %d, changed %d)", observed, changed),
		fmt.Sprintf("poll=%s limit=%d want=%d", s.interval, s.limit, len(want)),
	)
	return nil
}

// reportStatus is best effort; a status write failure must not take down the
// loop that it reports on.
func (s *PollStream) reportStatus(ctx context.Context, level, message, detail string) {
	err := s.stor.UpsertRuntimeStatus(ctx, store.UpsertRuntimeStatusParams{
		Component: componentName,
		Level:     level,
		Message:   message,
		Detail:    detail,
		Time:      time.Now(),
	})
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("couldn't upsert runtime status", "error", err)
	}
}

// inferSide guesses the aggressor side of a trade print: hitting the ask is
// a buy, hitting the bid is a sell, otherwise compare to the midpoint and
// fall back to buy.
func inferSide(price float64, book bookState) trading.Side {
	switch {
	case book.hasAsk && math.Abs(price-book.ask) < priceTolerance:
		return trading.SideBuy
	case book.hasBid && math.Abs(price-book.bid) < priceTolerance:
		return trading.SideSell
	case book.hasBid && book.hasAsk:
		if price >= 0.5*(book.bid+book.ask) {
			return trading.SideBuy
		}
		return trading.SideSell
	default:
		return trading.SideBuy
	}
}

func wantedIDs(provider trading.MarketIDsProvider) []string {
	var want []string
	for _, id := range provider() {
		if strings.TrimSpace(id) == "" {
			continue
		}
		want = append(want, id)
	}
	return want
}

func emit(ctx context.Context, events chan<- trading.Event, ev trading.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
