package gamma

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/quantaloop/gammabot/internal/store"
	"github.com/quantaloop/gammabot/internal/trading"
)

type fakeStore struct {
	tapes    []store.InsertTapeParams
	statuses []store.UpsertRuntimeStatusParams
	tapeErr  error
}

func (f *fakeStore) InsertTape(_ context.Context, p store.InsertTapeParams) error {
	if f.tapeErr != nil {
		return f.tapeErr
	}
	f.tapes = append(f.tapes, p)
	return nil
}

func (f *fakeStore) UpsertRuntimeStatus(_ context.Context, p store.UpsertRuntimeStatusParams) error {
	f.statuses = append(f.statuses, p)
	return nil
}

func (f *fakeStore) tapeKinds(kind string) int {
	n := 0
	for _, p := range f.tapes {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

func (f *fakeStore) lastStatus(t *testing.T) store.UpsertRuntimeStatusParams {
	t.Helper()
	if len(f.statuses) == 0 {
		t.Fatal("no status upserts recorded")
	}
	return f.statuses[len(f.statuses)-1]
}

type fakeLister struct {
	pages [][]Record
	errs  []error
	calls int
}

func (f *fakeLister) ListMarkets(context.Context, int) ([]Record, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	if i >= len(f.pages) {
		return f.pages[len(f.pages)-1], nil
	}
	return f.pages[i], nil
}

func newTestStream(st Store, client lister) *PollStream {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewPollStream(Config{BaseURL: "http://unused", PollInterval: time.Second, Limit: 100}, st, logger)
	s.client = client
	return s
}

func provide(ids ...string) trading.MarketIDsProvider {
	return func() []string { return ids }
}

// runCycle runs one poll cycle and returns the events it produced.
func runCycle(t *testing.T, s *PollStream, provider trading.MarketIDsProvider) []trading.Event {
	t.Helper()
	events := make(chan trading.Event, 64)
	s.pollCycle(context.Background(), provider, events)
	close(events)
	var out []trading.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestBookEventEveryCycleTapeOnlyOnChange(t *testing.T) {
	st := &fakeStore{}
	s := newTestStream(st, &fakeLister{pages: [][]Record{
		{{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42}},
	}})

	// First observation counts as a change.
	got := runCycle(t, s, provide("m1"))
	if len(got) != 1 || got[0].Kind != trading.KindTopOfBook {
		t.Fatalf("cycle 1 events = %+v, want one book event", got)
	}
	if n := st.tapeKinds(trading.KindTopOfBook); n != 1 {
		t.Fatalf("cycle 1 tob tape rows = %d, want 1", n)
	}

	// Unchanged book: still one book event, no new tape row.
	got = runCycle(t, s, provide("m1"))
	if len(got) != 1 || got[0].Kind != trading.KindTopOfBook {
		t.Fatalf("cycle 2 events = %+v, want one book event", got)
	}
	if n := st.tapeKinds(trading.KindTopOfBook); n != 1 {
		t.Fatalf("cycle 2 tob tape rows = %d, want still 1", n)
	}

	if s := st.lastStatus(t); s.Level != "ok" || s.Component != "feed.gamma" {
		t.Errorf("status = %+v, want ok for feed.gamma", s)
	}
}

func TestObservedAtRefreshesOnUnchangedBook(t *testing.T) {
	st := &fakeStore{}
	s := newTestStream(st, &fakeLister{pages: [][]Record{
		{{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42}},
	}})

	first := runCycle(t, s, provide("m1"))
	second := runCycle(t, s, provide("m1"))

	if !second[0].TopOfBook.ObservedAt.After(first[0].TopOfBook.ObservedAt) {
		t.Error("ObservedAt should move forward even when prices don't")
	}
}

func TestMissingMarketSkippedSilently(t *testing.T) {
	st := &fakeStore{}
	s := newTestStream(st, &fakeLister{pages: [][]Record{
		{{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42}},
	}})

	got := runCycle(t, s, provide("m1", "m2"))
	if len(got) != 1 || got[0].MarketID != "m1" {
		t.Fatalf("events = %+v, want only m1", got)
	}
	if s := st.lastStatus(t); s.Level != "ok" {
		t.Errorf("status level = %s, want ok", s.Level)
	}
	if _, tracked := s.lastBook["m2"]; tracked {
		t.Error("absent market must not gain observation state")
	}
}

func TestEmptyProviderSkipsFetch(t *testing.T) {
	st := &fakeStore{}
	client := &fakeLister{}
	s := newTestStream(st, client)

	got := runCycle(t, s, provide())
	if len(got) != 0 {
		t.Fatalf("events = %+v, want none", got)
	}
	if client.calls != 0 {
		t.Errorf("fetch calls = %d, want 0", client.calls)
	}
	if len(st.statuses) != 0 {
		t.Errorf("statuses = %d, want none on a skipped cycle", len(st.statuses))
	}

	// Blank-only ids count as empty too.
	runCycle(t, s, provide("  ", ""))
	if client.calls != 0 {
		t.Errorf("fetch calls = %d, want 0 for blank ids", client.calls)
	}
}

func TestTradeEventOnlyWhenPriceChanges(t *testing.T) {
	st := &fakeStore{}
	s := newTestStream(st, &fakeLister{pages: [][]Record{
		{{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42, "lastTradePrice": 0.41}},
		{{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42, "lastTradePrice": 0.41}},
		{{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42, "lastTradePrice": 0.42}},
	}})

	// First observation of a price counts as a change.
	got := runCycle(t, s, provide("m1"))
	if len(got) != 2 || got[1].Kind != trading.KindTrade {
		t.Fatalf("cycle 1 events = %+v, want book then trade", got)
	}
	if got[1].Trade.Size != 1.0 {
		t.Errorf("trade size = %v, want placeholder 1.0", got[1].Trade.Size)
	}

	// Same price: no trade.
	got = runCycle(t, s, provide("m1"))
	if len(got) != 1 {
		t.Fatalf("cycle 2 events = %+v, want book only", got)
	}

	// Price moved: trade again, and it hit the ask so it's a buy.
	got = runCycle(t, s, provide("m1"))
	if len(got) != 2 || got[1].Kind != trading.KindTrade {
		t.Fatalf("cycle 3 events = %+v, want book then trade", got)
	}
	if got[1].Trade.Side != trading.SideBuy {
		t.Errorf("side = %s, want buy", got[1].Trade.Side)
	}
	if n := st.tapeKinds(trading.KindTrade); n != 2 {
		t.Errorf("trade tape rows = %d, want 2", n)
	}
}

func TestInferSide(t *testing.T) {
	book := bookState{bid: 0.40, ask: 0.42, hasBid: true, hasAsk: true}

	tests := []struct {
		name  string
		price float64
		book  bookState
		want  trading.Side
	}{
		{"hits the ask", 0.42, book, trading.SideBuy},
		{"hits the bid", 0.40, book, trading.SideSell},
		{"at midpoint", 0.41, book, trading.SideBuy},
		{"below midpoint", 0.405, book, trading.SideSell},
		{"above midpoint", 0.415, book, trading.SideBuy},
		{"no quotes defaults to buy", 0.50, bookState{}, trading.SideBuy},
		{"only bid, no match, defaults to buy", 0.39, bookState{bid: 0.40, hasBid: true}, trading.SideBuy},
		{"only bid, exact match", 0.40, bookState{bid: 0.40, hasBid: true}, trading.SideSell},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inferSide(tt.price, tt.book); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMalformedFieldsBecomeAbsent(t *testing.T) {
	st := &fakeStore{}
	s := newTestStream(st, &fakeLister{pages: [][]Record{
		{{"id": "m1", "bestBid": "garbage", "bestAsk": true, "lastTradePrice": "n/a"}},
	}})

	got := runCycle(t, s, provide("m1"))
	if len(got) != 1 {
		t.Fatalf("events = %+v, want one book event", got)
	}
	tob := got[0].TopOfBook
	if tob.BestBid != nil || tob.BestAsk != nil {
		t.Errorf("tob = %+v, want both sides absent", tob)
	}
	if s := st.lastStatus(t); s.Level != "ok" {
		t.Errorf("status level = %s, want ok", s.Level)
	}
}

func TestFetchFailureReportsErrorAndRecovers(t *testing.T) {
	st := &fakeStore{}
	s := newTestStream(st, &fakeLister{
		errs: []error{errors.New("connection refused")},
		pages: [][]Record{
			nil,
			{{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42}},
		},
	})

	got := runCycle(t, s, provide("m1"))
	if len(got) != 0 {
		t.Fatalf("events = %+v, want none on a failed cycle", got)
	}
	status := st.lastStatus(t)
	if status.Level != "error" {
		t.Fatalf("status level = %s, want error", status.Level)
	}
	if !strings.Contains(status.Detail, "connection refused") {
		t.Errorf("detail = %q, should carry the cause", status.Detail)
	}

	// The loop stays alive: next cycle emits and reports ok.
	got = runCycle(t, s, provide("m1"))
	if len(got) != 1 {
		t.Fatalf("recovery cycle events = %+v, want one", got)
	}
	if s := st.lastStatus(t); s.Level != "ok" {
		t.Errorf("recovery status = %s, want ok", s.Level)
	}
}

func TestStoreFailureIsACycleFailure(t *testing.T) {
	st := &fakeStore{tapeErr: errors.New("disk full")}
	s := newTestStream(st, &fakeLister{pages: [][]Record{
		{{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42}},
	}})

	runCycle(t, s, provide("m1"))
	if s := st.lastStatus(t); s.Level != "error" {
		t.Errorf("status level = %s, want error when tape writes fail", s.Level)
	}
}

func TestStatusCounts(t *testing.T) {
	st := &fakeStore{}
	s := newTestStream(st, &fakeLister{pages: [][]Record{
		{
			{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42},
			{"id": "m2", "bestBid": 0.10, "bestAsk": 0.12},
		},
		{
			{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42},
			{"id": "m2", "bestBid": 0.11, "bestAsk": 0.12},
		},
	}})

	runCycle(t, s, provide("m1", "m2"))
	if status := st.lastStatus(t); !strings.Contains(status.Message, "observed 2, changed 2") {
		t.Errorf("cycle 1 message = %q", status.Message)
	}

	runCycle(t, s, provide("m1", "m2"))
	if status := st.lastStatus(t); !strings.Contains(status.Message, "observed 2, changed 1") {
		t.Errorf("cycle 2 message = %q", status.Message)
	}
}

func TestNewPollStreamClampsInterval(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewPollStream(Config{BaseURL: "http://unused", PollInterval: 10 * time.Millisecond, Limit: 10}, &fakeStore{}, logger)
	if s.interval != minPollInterval {
		t.Errorf("interval = %s, want clamped to %s", s.interval, minPollInterval)
	}
}

func TestEventsStopsOnCancel(t *testing.T) {
	st := &fakeStore{}
	s := newTestStream(st, &fakeLister{pages: [][]Record{
		{{"id": "m1", "bestBid": 0.40, "bestAsk": 0.42}},
	}})

	ctx, cancel := context.WithCancel(context.Background())
	events := s.Events(ctx, provide("m1"))

	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("stream closed before first event")
		}
		if ev.MarketID != "m1" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first event")
	}

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return // closed, loop terminated
			}
		case <-deadline:
			t.Fatal("stream did not close after cancel")
		}
	}
}
