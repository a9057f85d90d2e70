// Package orderbook implements MarketOrderBook: a time-stamped, two-sided
// snapshot of a market's depth, used both by venue adapters (as the decoded
// form of a venue's order book response) and by the conversion path engine
// to price a smart order across one or more hops.
//
// Unlike the teacher's orderbook package (a live price-time matching engine
// with FIFO queues and a cancelable order index), coincenter never matches
// orders locally — venues do that. MarketOrderBook only ever holds the
// latest snapshot fetched from a venue, so the heap/FIFO machinery is
// replaced by two sorted level slices.
package orderbook

import (
	"sort"
	"time"

	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
)

// Level is a single price/quantity point in the book. Amount is denominated
// in the market's base currency, Price in its quote currency.
type Level struct {
	Price  money.Amount
	Amount money.Amount
}

// Side selects which side of the book Convert should walk: Buy walks asks
// (you are paying quote to acquire base), Sell walks bids (you are giving
// up base to receive quote).
type Side int

const (
	Buy Side = iota
	Sell
)

// MarketOrderBook is an immutable depth snapshot for one market.
type MarketOrderBook struct {
	mkt  market.Market
	asks []Level // ascending by price
	bids []Level // descending by price
	time time.Time
}

// New builds a MarketOrderBook, sorting asks ascending and bids descending
// by price regardless of the order levels were supplied in. All levels on
// one side must share a quote currency with each other; a mismatch panics,
// since that only happens on an adapter decoding bug, not bad venue data.
func New(mkt market.Market, asks, bids []Level, ts time.Time) *MarketOrderBook {
	sortedAsks := append([]Level(nil), asks...)
	sortedBids := append([]Level(nil), bids...)

	sort.Slice(sortedAsks, func(i, j int) bool {
		return levelLess(sortedAsks[i], sortedAsks[j])
	})
	sort.Slice(sortedBids, func(i, j int) bool {
		return levelLess(sortedBids[j], sortedBids[i])
	})

	return &MarketOrderBook{mkt: mkt, asks: sortedAsks, bids: sortedBids, time: ts}
}

func levelLess(a, b Level) bool {
	cmp, err := a.Price.Cmp(b.Price)
	if err != nil {
		panic("orderbook: levels on one side must share a quote currency: " + err.Error())
	}
	return cmp < 0
}

// Market returns the book's market.
func (ob *MarketOrderBook) Market() market.Market { return ob.mkt }

// Time returns the snapshot's timestamp.
func (ob *MarketOrderBook) Time() time.Time { return ob.time }

// Asks returns the ask levels, ascending by price (best ask first).
func (ob *MarketOrderBook) Asks() []Level { return ob.asks }

// Bids returns the bid levels, descending by price (best bid first).
func (ob *MarketOrderBook) Bids() []Level { return ob.bids }

// BestAsk returns the lowest ask, and false if the book has no asks.
func (ob *MarketOrderBook) BestAsk() (Level, bool) {
	if len(ob.asks) == 0 {
		return Level{}, false
	}
	return ob.asks[0], true
}

// BestBid returns the highest bid, and false if the book has no bids.
func (ob *MarketOrderBook) BestBid() (Level, bool) {
	if len(ob.bids) == 0 {
		return Level{}, false
	}
	return ob.bids[0], true
}

// AveragePrice returns the midpoint of the best bid and best ask, the
// reference rate venue adapters use to convert a balance into an
// equivalent currency without placing an order (ConvertAtAveragePrice
// tries this first and falls back to the coarser AllPrices map).
func (ob *MarketOrderBook) AveragePrice() (money.Amount, error) {
	ask, ok := ob.BestAsk()
	if !ok {
		return money.Amount{}, coinerr.New(coinerr.NotFound, "order book has no asks")
	}
	bid, ok := ob.BestBid()
	if !ok {
		return money.Amount{}, coinerr.New(coinerr.NotFound, "order book has no bids")
	}
	sum, err := ask.Price.Add(bid.Price)
	if err != nil {
		return money.Amount{}, err
	}
	// The divisor must be neutral-currency: dividing by "2 EUR" would divide
	// same-currency amounts and yield a dimensionless ratio (per Amount.Div's
	// contract), stripping EUR off the result instead of halving it.
	two := money.New(2, 0, currency.Neutral)
	return sum.Div(two)
}

// Convert walks the book on the given side, simulating a market order for
// volume (denominated in the market's base currency), and returns the total
// quote-currency amount it would cost (Buy) or yield (Sell). It fails with
// InvalidArgument if the book does not have enough depth to fill volume.
func (ob *MarketOrderBook) Convert(volume money.Amount, side Side) (money.Amount, error) {
	levels := ob.asks
	if side == Sell {
		levels = ob.bids
	}

	remaining := volume
	var total money.Amount
	haveTotal := false

	for _, lvl := range levels {
		if remaining.IsZero() {
			break
		}
		take := remaining
		if cmp, err := remaining.Cmp(lvl.Amount); err != nil {
			return money.Amount{}, err
		} else if cmp > 0 {
			take = lvl.Amount
		}
		cost := take.ConvertAtPrice(lvl.Price)
		if !haveTotal {
			total = cost
			haveTotal = true
		} else {
			var err error
			total, err = total.Add(cost)
			if err != nil {
				return money.Amount{}, err
			}
		}
		var err error
		remaining, err = remaining.Sub(take)
		if err != nil {
			return money.Amount{}, err
		}
	}

	if !remaining.IsZero() {
		return money.Amount{}, coinerr.New(coinerr.InvalidArgument, "insufficient order book depth to convert "+volume.String())
	}
	return total, nil
}
