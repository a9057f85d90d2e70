package exchange

import (
	"fmt"
	"sort"

	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
	"github.com/sjanel/coincenter/pkg/orderbook"
)

// VenuePublicApi is the capability set every venue adapter must provide
// for unauthenticated, market-data operations (spec.md §4.6). Whether a
// given call goes to the network or is served from the adapter's
// CachedResult vault is the adapter's decision; this interface only
// describes the logical operation.
type VenuePublicApi interface {
	// Name returns the venue's lowercase, stable identifier (e.g. "binance").
	Name() string

	HealthCheck() (bool, error)
	TradableCurrencies() ([]CurrencyExchange, error)
	ConvertStdCurrency(code currency.Code) (CurrencyExchange, error)
	TradableMarkets() ([]market.Market, error)
	AllPrices() (map[market.Market]money.Amount, error)
	AllOrderBooks(depth int) (map[market.Market]*orderbook.MarketOrderBook, error)
	OrderBook(mkt market.Market, depth int) (*orderbook.MarketOrderBook, error)
	Last24hVolume(mkt market.Market) (money.Amount, error)
	LastTrades(mkt market.Market, n int) ([]PublicTrade, error)
	LastPrice(mkt market.Market) (money.Amount, error)
	WithdrawalFees() (map[currency.Code]money.Amount, error)
	WithdrawalFee(cur currency.Code) (money.Amount, bool, error)
	IsWithdrawalFeesSourceReliable() bool
}

// ConvertAtAveragePrice converts amount into toCur using the midpoint of
// the best bid/ask of the relevant order book when available, falling
// back to the coarser AllPrices map (spec.md §4.6). The relevant market is
// whichever of (amount.Currency(), toCur) or its reverse is tradable.
func ConvertAtAveragePrice(api VenuePublicApi, amount money.Amount, toCur currency.Code) (money.Amount, error) {
	from := amount.Currency()
	if from == toCur {
		return amount, nil
	}

	mkt, reversed, err := RetrieveMarket(api, from, toCur)
	if err == nil {
		ob, err := api.OrderBook(mkt, 0)
		if err == nil {
			if avg, err := ob.AveragePrice(); err == nil {
				if !reversed {
					return amount.ConvertAtPrice(avg), nil
				}
				if ratio, err := amount.Div(avg); err == nil {
					return ratio.WithCurrency(toCur), nil
				}
			}
		}
	}

	prices, err := api.AllPrices()
	if err != nil {
		return money.Amount{}, err
	}
	if price, ok := prices[market.New(from, toCur)]; ok {
		return amount.ConvertAtPrice(price), nil
	}
	if price, ok := prices[market.New(toCur, from)]; ok {
		// price is quoted in `from` per 1 toCur. amount and price share the
		// `from` currency, so Div yields a neutral ratio (how many toCur
		// units amount is worth); re-tag it with toCur to get the answer.
		ratio, err := amount.Div(price)
		if err != nil {
			return money.Amount{}, err
		}
		return ratio.WithCurrency(toCur), nil
	}
	return money.Amount{}, coinerr.New(coinerr.NotFound,
		fmt.Sprintf("no price path from %s to %s on %s", from, toCur, api.Name()))
}

// RetrieveMarket returns the market pairing c1 and c2 exactly as the venue
// orders it (base, quote), and whether (c1, c2) had to be reversed to find
// it.
func RetrieveMarket(api VenuePublicApi, c1, c2 currency.Code) (market.Market, bool, error) {
	markets, err := api.TradableMarkets()
	if err != nil {
		return market.Market{}, false, err
	}
	want := market.New(c1, c2)
	for _, m := range markets {
		if m.Equal(want) || m.Equal(want.Reversed()) {
			return m, m.Base != c1, nil
		}
	}
	return market.Market{}, false, coinerr.New(coinerr.NotFound,
		fmt.Sprintf("no market pairs %s and %s on %s", c1, c2, api.Name()))
}

// DetermineMarketFromString splits a concatenated symbol such as "btcusdt"
// into one of filterMarkets. When more than one candidate matches and
// pinnedCur is non-neutral, markets containing pinnedCur are preferred.
// If nothing matches, the error message names the closest known market by
// edit distance (the Levenshtein suggestion feature).
func DetermineMarketFromString(s string, filterMarkets []market.Market, pinnedCur currency.Code) (market.Market, error) {
	norm := currency.New(s).String()

	var candidates []market.Market
	for _, m := range filterMarkets {
		concat := m.Base.String() + m.Quote.String()
		if concat == norm {
			candidates = append(candidates, m)
		}
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}
	if len(candidates) > 1 {
		if !pinnedCur.IsNeutral() {
			for _, m := range candidates {
				if m.Contains(pinnedCur) {
					return m, nil
				}
			}
		}
		return candidates[0], nil
	}

	names := make([]string, len(filterMarkets))
	for i, m := range filterMarkets {
		names[i] = m.Base.String() + m.Quote.String()
	}
	msg := fmt.Sprintf("%q does not match any known market", s)
	if len(names) > 0 {
		closest, _ := closestMatch(norm, names)
		msg += fmt.Sprintf(" (closest known market: %q)", closest)
	}
	return market.Market{}, coinerr.New(coinerr.NotFound, msg)
}

// ComputeLimitOrderPrice derives the price at which a limit order should be
// placed on mkt, selling or buying `from`'s currency, under strategy
// (spec.md §4.6). tickSize is the venue's minimum price increment, used by
// Nibble to step one tick inside the spread.
func ComputeLimitOrderPrice(ob *orderbook.MarketOrderBook, side TradeSide, strategy PriceStrategy, tickSize money.Amount) (money.Amount, error) {
	ask, hasAsk := ob.BestAsk()
	bid, hasBid := ob.BestBid()
	if !hasAsk || !hasBid {
		return money.Amount{}, coinerr.New(coinerr.InvalidArgument, "order book has no quotes on one side")
	}

	switch strategy {
	case Taker:
		if side == Sell {
			return bid.Price, nil
		}
		return ask.Price, nil
	case Nibble:
		if side == Sell {
			return ask.Price.Sub(tickSize)
		}
		return bid.Price.Add(tickSize)
	default: // Maker
		if side == Sell {
			return ask.Price, nil
		}
		return bid.Price, nil
	}
}

// ComputeAvgOrderPrice walks the order book levels on the side being
// crossed by `from` (asks when buying, bids when selling) until from's
// volume is exhausted or the book runs out, returning the volume-weighted
// average price actually achievable. The pricing strategy (maker/nibble/
// taker) only affects the *placed* limit price, computed separately by
// ComputeLimitOrderPrice; this function always reflects genuine walkable
// depth.
func ComputeAvgOrderPrice(ob *orderbook.MarketOrderBook, from money.Amount, side TradeSide) (money.Amount, error) {
	levels := ob.Bids()
	if side == Buy {
		levels = ob.Asks()
	}
	if len(levels) == 0 {
		return money.Amount{}, coinerr.New(coinerr.InvalidArgument, "order book has no levels on the crossed side")
	}

	remaining := from
	totalCost := money.Zero(levels[0].Price.Currency())
	totalVolume := money.Zero(from.Currency())

	for _, lvl := range levels {
		if remaining.IsZero() || remaining.Sign() < 0 {
			break
		}
		take := lvl.Amount
		if cmp, err := remaining.Cmp(lvl.Amount); err == nil && cmp < 0 {
			take = remaining
		}
		cost := take.ConvertAtPrice(lvl.Price)

		var err error
		totalCost, err = totalCost.Add(cost)
		if err != nil {
			return money.Amount{}, err
		}
		totalVolume, err = totalVolume.Add(take)
		if err != nil {
			return money.Amount{}, err
		}
		remaining, err = remaining.Sub(take)
		if err != nil {
			return money.Amount{}, err
		}
	}

	if totalVolume.IsZero() {
		return money.Amount{}, coinerr.New(coinerr.InvalidArgument, "no depth available to price this order")
	}
	return totalCost.Div(totalVolume.AsNeutral())
}

// SortMarketsByName orders markets by their string form, standing in for
// the "venue-declared market ordering" spec.md §4.7 relies on for
// reproducible BFS tie-breaks in pkg/exchange/path.
func SortMarketsByName(markets []market.Market) {
	sort.Slice(markets, func(i, j int) bool { return markets[i].String() < markets[j].String() })
}
