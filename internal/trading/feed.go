package trading

// Event kinds. The kind string doubles as the tape row kind.
const (
	KindTopOfBook = "tob"
	KindTrade     = "trade"
)

// Event is one unit of the feed stream. Exactly one of TopOfBook/Trade is
// set, matching Kind.
type Event struct {
	Kind      string
	MarketID  string
	TopOfBook *TopOfBook
	Trade     *TradeTick
}

// MarketIDsProvider returns the market ids the feed should poll this cycle.
// An empty result means skip the cycle. Which markets to watch is entirely
// the caller's concern.
type MarketIDsProvider func() []string
