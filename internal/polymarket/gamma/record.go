package gamma

import (
	"encoding/json"
	"strconv"
)

// Record is one raw market object from the gamma listing. Gamma's field
// naming drifts between camelCase and snake_case, so logical attributes are
// resolved against an ordered list of candidate keys, first present wins.
type Record map[string]any

// ID returns the market's external identifier, if the record carries one.
// Numeric ids are normalized to their string form.
func (r Record) ID() (string, bool) {
	v, ok := r["id"]
	if !ok || v == nil {
		return "", false
	}
	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case json.Number:
		return id.String(), true
	default:
		return "", false
	}
}

// BestBid returns the record's best bid, if present and coercible.
func (r Record) BestBid() (float64, bool) {
	return r.Float("bestBid", "best_bid")
}

// BestAsk returns the record's best ask, if present and coercible.
func (r Record) BestAsk() (float64, bool) {
	return r.Float("bestAsk", "best_ask")
}

// LastTradePrice returns the record's last trade price, if present and
// coercible.
func (r Record) LastTradePrice() (float64, bool) {
	return r.Float("lastTradePrice", "last_trade_price")
}

// Float resolves the first non-null candidate key and coerces its value to a
// float. A value that can't be coerced counts as absent rather than an
// error, so one malformed field never aborts a cycle.
func (r Record) Float(keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		return coerceFloat(v)
	}
	return 0, false
}

func coerceFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
