package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange"
	"github.com/sjanel/coincenter/pkg/exchange/path"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
	"github.com/sjanel/coincenter/pkg/orderbook"
)

// TradeConfig carries the per-call trading behavior spec.md §4.10 leaves
// configurable: pricing strategy, what happens to an unfilled maker leg at
// its deadline, the re-pricing cadence, the bridging rules the path engine
// may use, and whether placed orders should be simulated.
type TradeConfig struct {
	Strategy                   exchange.PriceStrategy
	TimeoutAction              exchange.TimeoutAction
	Timeout                    time.Duration
	MinTimeBetweenPriceUpdates time.Duration
	PathConfig                 path.Config
	Simulate                   bool
}

// LegResult is one hop of a multi-market conversion path.
type LegResult struct {
	Market market.Market
	Traded exchange.TradedAmounts
}

// AccountTradeResult is one selected account's contribution to a Trade
// call: the amount it actually supplied and received, the legs it walked
// to get there, and Err if its path lookup or balance query failed. An
// account excluded because it had no path or no balance to offer still
// appears with a zero TradedAmounts and a nil Err.
type AccountTradeResult struct {
	Venue   string
	Account string
	Traded  exchange.TradedAmounts
	Legs    []LegResult
	Err     error
}

type tradeCandidate struct {
	index      int
	selected   Selected
	suppliable money.Amount
	path       []market.Market
}

// Trade implements the smart trade algorithm (spec.md §4.10 steps 1-7):
// enumerate selected accounts, compute what each can supply of
// from.Currency() (a percentage of its balance, or a literal amount
// capped by its balance), find each account's conversion path to toCur,
// exclude accounts with no path, and greedily assign from's amount across
// the remaining accounts in descending order of what they can supply.
// Results are returned in the same order as Select(names, order, ...)
// regardless of the assignment order (spec.md's testable property and
// seed scenario 5).
func (o *Orchestrator) Trade(names []string, order SelectOrder, from money.Amount, isPercentage bool, toCur currency.Code, cfg TradeConfig) ([]AccountTradeResult, error) {
	selected := o.Select(names, order, FilterWithAccountWhenEmpty)
	fromCur := from.Currency()

	type probe struct {
		suppliable money.Amount
		path       []market.Market
	}
	results, err := fanOut(selected, o.workerPool, func(e Selected) (probe, error) {
		balances, err := e.Private.AccountBalance(currency.Neutral)
		if err != nil {
			return probe{}, err
		}
		bal, ok := balances[fromCur]
		if !ok {
			bal = money.Zero(fromCur)
		}

		var suppliable money.Amount
		if isPercentage {
			ratio := money.FromFloat(from.Float64()/100, currency.Neutral)
			suppliable, err = bal.Mul(ratio)
			if err != nil {
				return probe{}, err
			}
		} else if cmp, cErr := bal.Cmp(from); cErr == nil && cmp < 0 {
			suppliable = bal
		} else {
			suppliable = from
		}

		if suppliable.Sign() <= 0 {
			return probe{suppliable: suppliable}, nil
		}

		if fromCur.Equal(toCur) {
			return probe{suppliable: suppliable, path: []market.Market{}}, nil
		}
		markets, err := e.Public.TradableMarkets()
		if err != nil {
			return probe{}, err
		}
		p := path.FindMarketsPath(markets, fromCur, toCur, cfg.PathConfig)
		return probe{suppliable: suppliable, path: p}, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]AccountTradeResult, len(selected))
	for i, e := range selected {
		out[i] = AccountTradeResult{Venue: e.Venue, Account: e.Account, Err: results[i].err}
	}

	var candidates []tradeCandidate
	for i, e := range selected {
		if results[i].err != nil {
			o.logger.Warn("trade candidate probe failed", zap.String("venue", e.Venue), zap.String("account", e.Account), zap.Error(results[i].err))
			continue
		}
		p := results[i].value.path
		if p == nil || results[i].value.suppliable.Sign() <= 0 {
			continue
		}
		candidates = append(candidates, tradeCandidate{index: i, selected: e, suppliable: results[i].value.suppliable, path: p})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		cmp, err := candidates[a].suppliable.Cmp(candidates[b].suppliable)
		if err != nil {
			return false
		}
		return cmp > 0
	})

	remaining := from
	for _, c := range candidates {
		var assign money.Amount
		if isPercentage {
			assign = c.suppliable
		} else {
			if remaining.Sign() <= 0 {
				break
			}
			if cmp, cErr := remaining.Cmp(c.suppliable); cErr == nil && cmp < 0 {
				assign = remaining
			} else {
				assign = c.suppliable
			}
		}
		if assign.Sign() <= 0 {
			continue
		}

		traded, legs, legErr := o.walkPath(c.selected, c.path, assign, cfg)
		out[c.index].Traded = traded
		out[c.index].Legs = legs
		out[c.index].Err = legErr

		if !isPercentage {
			if newRemaining, sErr := remaining.Sub(assign); sErr == nil {
				remaining = newRemaining
			}
		}
	}

	return out, nil
}

// Sell is Trade under the name spec.md uses for the sell-flavored smart
// trade: from is the amount (or percentage) of its own currency an
// account starts with.
func (o *Orchestrator) Sell(names []string, order SelectOrder, from money.Amount, isPercentage bool, toCur currency.Code, cfg TradeConfig) ([]AccountTradeResult, error) {
	return o.Trade(names, order, from, isPercentage, toCur, cfg)
}

// Buy targets an end amount `to` rather than a starting amount, trying
// each of preferredPaymentCurrencies in priority order until the combined
// ToActual across accounts reaches (or the candidates are exhausted
// trying to reach) the target (spec.md §4.10: "Smart buy/sell ... for buy
// ... preferred payment currencies from config are tried in priority
// order").
func (o *Orchestrator) Buy(names []string, order SelectOrder, to money.Amount, preferredPaymentCurrencies []currency.Code, cfg TradeConfig) ([]AccountTradeResult, error) {
	toCur := to.Currency()
	var last []AccountTradeResult
	for _, paymentCur := range preferredPaymentCurrencies {
		if paymentCur.Equal(toCur) {
			continue
		}
		probe := o.SelectOneAccount(names, order)
		if len(probe) == 0 {
			continue
		}
		estimatedFrom, err := exchange.ConvertAtAveragePrice(probe[0].Public, to.WithCurrency(toCur), paymentCur)
		if err != nil {
			continue
		}

		results, err := o.Trade(names, order, estimatedFrom, false, toCur, cfg)
		if err != nil {
			return nil, err
		}
		last = results

		total := money.Zero(toCur)
		for _, r := range results {
			if r.Traded.ToActual.IsZero() {
				continue
			}
			if sum, sErr := total.Add(r.Traded.ToActual); sErr == nil {
				total = sum
			}
		}
		if cmp, cErr := total.Cmp(to); cErr == nil && cmp >= 0 {
			return results, nil
		}
	}
	return last, nil
}

// walkPath executes a single account's share of a conversion path
// sequentially, feeding each leg's output into the next leg's input.
// FiatConversion legs (spec.md §4.7's bridge edges) are bookkeeping
// relabels, not real orders: the alias is assumed 1:1 interchangeable, as
// configured.
func (o *Orchestrator) walkPath(sel Selected, mkts []market.Market, amount money.Amount, cfg TradeConfig) (exchange.TradedAmounts, []LegResult, error) {
	current := amount
	legs := make([]LegResult, 0, len(mkts))
	for _, mkt := range mkts {
		if mkt.Kind == market.FiatConversion {
			outputCur, ok := mkt.Other(current.Currency())
			if !ok {
				break
			}
			current = current.WithCurrency(outputCur)
			legs = append(legs, LegResult{Market: mkt, Traded: exchange.TradedAmounts{FromActual: current, ToActual: current}})
			continue
		}
		traded, err := o.executeLeg(sel.Public, sel.Private, mkt, current, cfg)
		if err != nil {
			return exchange.TradedAmounts{FromActual: amount, ToActual: money.Zero(current.Currency())}, legs, err
		}
		legs = append(legs, LegResult{Market: mkt, Traded: traded})
		current = traded.ToActual
		if current.IsZero() {
			break
		}
	}
	return exchange.TradedAmounts{FromActual: amount, ToActual: current}, legs, nil
}

// legAmounts derives the order's base-currency volume and the from-amount
// to pass to PlaceOrder, given which side of mkt the trade crosses.
func legAmounts(side exchange.TradeSide, mkt market.Market, amount, price money.Amount) (volume, from money.Amount, err error) {
	if side == exchange.Sell {
		return amount, amount, nil
	}
	ratio, err := amount.Div(price)
	if err != nil {
		return money.Amount{}, money.Amount{}, err
	}
	return ratio.WithCurrency(mkt.Base), amount, nil
}

// executeLeg places a single-market limit order for amount, then polls
// and re-prices it until filled or its deadline, applying TimeoutAction at
// the deadline (spec.md §4.10 step 6).
func (o *Orchestrator) executeLeg(pub exchange.VenuePublicApi, priv exchange.VenuePrivateApi, mkt market.Market, amount money.Amount, cfg TradeConfig) (exchange.TradedAmounts, error) {
	var side exchange.TradeSide
	switch {
	case mkt.Base.Equal(amount.Currency()):
		side = exchange.Sell
	case mkt.Quote.Equal(amount.Currency()):
		side = exchange.Buy
	default:
		return exchange.TradedAmounts{}, coinerr.New(coinerr.InvalidArgument,
			fmt.Sprintf("%s is neither leg of market %s", amount.Currency(), mkt))
	}

	ob, err := pub.OrderBook(mkt, 0)
	if err != nil {
		return exchange.TradedAmounts{}, err
	}
	tick := deriveTickSize(ob, mkt.Quote)

	price, err := exchange.ComputeLimitOrderPrice(ob, side, cfg.Strategy, tick)
	if err != nil {
		return exchange.TradedAmounts{}, err
	}
	volume, from, err := legAmounts(side, mkt, amount, price)
	if err != nil {
		return exchange.TradedAmounts{}, err
	}

	place, err := priv.PlaceOrder(from, volume, price, exchange.PlaceOrderRequest{Market: mkt, Side: side, Type: exchange.Limit, Simulate: cfg.Simulate})
	if err != nil {
		return exchange.TradedAmounts{}, err
	}
	matched := exchange.TradedAmounts{FromActual: place.MatchedFrom, ToActual: place.MatchedTo}
	if place.IsClosed {
		return matched, nil
	}

	ref := place.OrderRef
	pollInterval := cfg.MinTimeBetweenPriceUpdates
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	deadline := time.Now().Add(cfg.Timeout)
	lastReprice := time.Now()

	for {
		if !time.Now().Before(deadline) {
			return o.applyTimeoutAction(priv, mkt, side, ref, amount, matched, price, cfg), nil
		}

		sleep := pollInterval
		if until := time.Until(deadline); until < sleep {
			sleep = until
		}
		time.Sleep(sleep)

		info, err := priv.QueryOrderInfo(ref)
		if err != nil {
			o.logger.Warn("query order info failed", zap.String("ref", ref), zap.Error(err))
			continue
		}
		matched = exchange.TradedAmounts{FromActual: info.MatchedFrom, ToActual: info.MatchedTo}
		if info.IsClosed {
			return matched, nil
		}

		if cfg.Strategy != exchange.Maker || time.Since(lastReprice) < pollInterval {
			continue
		}
		newRef, newPrice, repriced := o.reprice(pub, priv, mkt, side, ref, amount, &matched, tick, cfg)
		if !repriced {
			return matched, nil
		}
		ref, price = newRef, newPrice
		lastReprice = time.Now()
	}
}

// reprice cancels the resting order, computes a fresh limit price from
// the current book, and re-places the unfilled remainder, updating
// matched in place. It reports false (and leaves matched untouched beyond
// what the cancel confirmed) if the remainder is zero or re-placement
// failed, signaling the caller to stop polling.
func (o *Orchestrator) reprice(pub exchange.VenuePublicApi, priv exchange.VenuePrivateApi, mkt market.Market, side exchange.TradeSide, ref string, amount money.Amount, matched *exchange.TradedAmounts, tick money.Amount, cfg TradeConfig) (newRef string, newPrice money.Amount, ok bool) {
	if info, err := priv.CancelOrder(ref); err == nil {
		*matched = exchange.TradedAmounts{FromActual: info.MatchedFrom, ToActual: info.MatchedTo}
	}
	remainingFrom, err := amount.Sub(matched.FromActual)
	if err != nil || remainingFrom.Sign() <= 0 {
		return "", money.Amount{}, false
	}
	ob, err := pub.OrderBook(mkt, 0)
	if err != nil {
		return "", money.Amount{}, false
	}
	price, err := exchange.ComputeLimitOrderPrice(ob, side, cfg.Strategy, tick)
	if err != nil {
		return "", money.Amount{}, false
	}
	volume, from, err := legAmounts(side, mkt, remainingFrom, price)
	if err != nil {
		return "", money.Amount{}, false
	}
	place, err := priv.PlaceOrder(from, volume, price, exchange.PlaceOrderRequest{Market: mkt, Side: side, Type: exchange.Limit, Simulate: cfg.Simulate})
	if err != nil {
		return "", money.Amount{}, false
	}
	if merged, mErr := matched.Add(exchange.TradedAmounts{FromActual: place.MatchedFrom, ToActual: place.MatchedTo}); mErr == nil {
		*matched = merged
	}
	if place.IsClosed {
		return "", money.Amount{}, false
	}
	return place.OrderRef, price, true
}

// applyTimeoutAction handles a leg's unfilled remainder once its deadline
// elapses: Cancel simply cancels and reports whatever matched so far;
// Match cancels, then sweeps the unfilled remainder with a market order.
func (o *Orchestrator) applyTimeoutAction(priv exchange.VenuePrivateApi, mkt market.Market, side exchange.TradeSide, ref string, amount money.Amount, matched exchange.TradedAmounts, price money.Amount, cfg TradeConfig) exchange.TradedAmounts {
	if info, err := priv.CancelOrder(ref); err == nil {
		matched = exchange.TradedAmounts{FromActual: info.MatchedFrom, ToActual: info.MatchedTo}
	}
	if cfg.TimeoutAction != exchange.Match {
		return matched
	}
	remaining, err := amount.Sub(matched.FromActual)
	if err != nil || remaining.Sign() <= 0 {
		return matched
	}
	volume, from, err := legAmounts(side, mkt, remaining, price)
	if err != nil {
		return matched
	}
	place, err := priv.PlaceOrder(from, volume, price, exchange.PlaceOrderRequest{Market: mkt, Side: side, Type: exchange.Market, Simulate: cfg.Simulate})
	if err != nil {
		return matched
	}
	if merged, mErr := matched.Add(exchange.TradedAmounts{FromActual: place.MatchedFrom, ToActual: place.MatchedTo}); mErr == nil {
		matched = merged
	}
	return matched
}

// deriveTickSize approximates a venue's minimum price increment from the
// order book's own price precision, since no adapter exposes an explicit
// tick size (an acknowledged simplification; see DESIGN.md).
func deriveTickSize(ob *orderbook.MarketOrderBook, quoteCur currency.Code) money.Amount {
	decimals := int8(2)
	if ask, ok := ob.BestAsk(); ok {
		decimals = ask.Price.Decimals()
	} else if bid, ok := ob.BestBid(); ok {
		decimals = bid.Price.Decimals()
	}
	return money.New(1, decimals, quoteCur)
}
