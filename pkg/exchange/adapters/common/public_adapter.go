package common

import (
	"context"
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange"
	"github.com/sjanel/coincenter/pkg/flatkv"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
	"github.com/sjanel/coincenter/pkg/orderbook"
)

// Endpoints is one venue's path table for the operations PublicAdapter and PrivateAdapter
// knows how to perform (spec.md §4.8: "Maps venue-specific field layouts
// into the core types"; the paths themselves are the venue-specific part).
type Endpoints struct {
	Ping           string
	Markets        string
	Tickers        string
	OrderBook      string
	Trades         string
	WithdrawalFees string

	ValidateKey    string
	Balance        string
	DepositWallet  string
	OpenOrders     string
	ClosedOrders   string
	CancelOrder    string
	PlaceOrder     string
	OrderInfo      string
	Deposits       string
	Withdraws      string
	LaunchWithdraw string
	WithdrawSent   string
	WithdrawStatus string
}

// cacheMaxSize bounds every CachedResult's LRU; venues have at most a few
// thousand markets, so this comfortably covers one adapter's lifetime.
const cacheMaxSize = 4096

// PublicAdapter implements exchange.VenuePublicApi against a venue
// configured through Endpoints and a Stack. The zero-argument operations
// (TradableMarkets, AllPrices, WithdrawalFees) are memoized through
// pkg/cache so repeated orchestrator fan-outs don't re-hit the network
// within ttl.
type PublicAdapter struct {
	name                   string
	stack                  *Stack
	endpoints              Endpoints
	accept                 func(Envelope) httpclient.ResponseStatus
	withdrawalFeesReliable bool

	markets        *cache.CachedResult[struct{}, []market.Market]
	prices         *cache.CachedResult[struct{}, map[market.Market]money.Amount]
	withdrawalFees *cache.CachedResult[struct{}, map[currency.Code]money.Amount]
}

// AcceptEnvelope builds an accept predicate from a venue's expected
// success-marker value. An empty okValue means the venue has no status
// field at all and a decodable body is always accepted (plain HTTP-200-is-
// success), the generic fallback named in SPEC_FULL.md §4.E.
func AcceptEnvelope(okValue string) func(Envelope) httpclient.ResponseStatus {
	return func(e Envelope) httpclient.ResponseStatus {
		if okValue == "" || e.Status == okValue {
			return httpclient.ResponseOK
		}
		return httpclient.ResponseError
	}
}

func acceptWith[T any](accept func(Envelope) httpclient.ResponseStatus, env func(T) Envelope) func(T) httpclient.ResponseStatus {
	return func(v T) httpclient.ResponseStatus { return accept(env(v)) }
}

// NewPublicAdapter builds a PublicAdapter. ttl bounds how long
// TradableMarkets/AllPrices/WithdrawalFees are memoized before the next
// Get re-fetches them; withdrawalFeesReliable is the venue's own
// self-assessment of its fee schedule's accuracy (spec.md §4.6).
func NewPublicAdapter(name string, stack *Stack, vault *cache.Vault, endpoints Endpoints,
	accept func(Envelope) httpclient.ResponseStatus, ttl time.Duration, withdrawalFeesReliable bool) *PublicAdapter {
	a := &PublicAdapter{
		name:                   name,
		stack:                  stack,
		endpoints:              endpoints,
		accept:                 accept,
		withdrawalFeesReliable: withdrawalFeesReliable,
	}
	a.markets = cache.NewCachedResult(vault, name+":markets", ttl, cacheMaxSize, func(struct{}) ([]market.Market, error) {
		return a.fetchMarkets(context.Background())
	})
	a.prices = cache.NewCachedResult(vault, name+":prices", ttl, cacheMaxSize, func(struct{}) (map[market.Market]money.Amount, error) {
		return a.fetchPrices(context.Background())
	})
	a.withdrawalFees = cache.NewCachedResult(vault, name+":withdrawal-fees", ttl, cacheMaxSize, func(struct{}) (map[currency.Code]money.Amount, error) {
		return a.fetchWithdrawalFees(context.Background())
	})
	return a
}

func (a *PublicAdapter) Name() string { return a.name }

func (a *PublicAdapter) HealthCheck() (bool, error) {
	_, err := GetJSON(context.Background(), a.stack.PublicRR, a.endpoints.Ping, nil, nil,
		acceptWith[PingResponse](a.accept, func(r PingResponse) Envelope { return r.Envelope }))
	return err == nil, err
}

func (a *PublicAdapter) TradableCurrencies() ([]exchange.CurrencyExchange, error) {
	markets, err := a.TradableMarkets()
	if err != nil {
		return nil, err
	}
	seen := map[currency.Code]bool{}
	var out []exchange.CurrencyExchange
	for _, m := range markets {
		for _, c := range [2]currency.Code{m.Base, m.Quote} {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, exchange.CurrencyExchange{
				Standard: c, VenueCode: c.String(), Kind: exchange.Crypto,
				DepositEnabled: true, WithdrawEnabled: true,
			})
		}
	}
	return out, nil
}

func (a *PublicAdapter) ConvertStdCurrency(code currency.Code) (exchange.CurrencyExchange, error) {
	return exchange.CurrencyExchange{
		Standard: code, VenueCode: code.String(), Kind: exchange.Crypto,
		DepositEnabled: true, WithdrawEnabled: true,
	}, nil
}

func (a *PublicAdapter) TradableMarkets() ([]market.Market, error) {
	return a.markets.Get(struct{}{})
}

func (a *PublicAdapter) fetchMarkets(ctx context.Context) ([]market.Market, error) {
	resp, err := GetJSON(ctx, a.stack.PublicRR, a.endpoints.Markets, nil, nil,
		acceptWith[MarketsResponse](a.accept, func(r MarketsResponse) Envelope { return r.Envelope }))
	if err != nil {
		return nil, err
	}
	out := make([]market.Market, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		out = append(out, market.New(currency.New(m.Base), currency.New(m.Quote)))
	}
	return out, nil
}

func (a *PublicAdapter) AllPrices() (map[market.Market]money.Amount, error) {
	return a.prices.Get(struct{}{})
}

func (a *PublicAdapter) fetchPrices(ctx context.Context) (map[market.Market]money.Amount, error) {
	resp, err := GetJSON(ctx, a.stack.PublicRR, a.endpoints.Tickers, nil, nil,
		acceptWith[TickerResponse](a.accept, func(r TickerResponse) Envelope { return r.Envelope }))
	if err != nil {
		return nil, err
	}
	out := make(map[market.Market]money.Amount, len(resp.Tickers))
	for _, t := range resp.Tickers {
		quote := currency.New(t.Quote)
		price, err := money.Parse(t.Last, quote)
		if err != nil {
			continue
		}
		out[market.New(currency.New(t.Base), quote)] = price
	}
	return out, nil
}

func (a *PublicAdapter) AllOrderBooks(depth int) (map[market.Market]*orderbook.MarketOrderBook, error) {
	markets, err := a.TradableMarkets()
	if err != nil {
		return nil, err
	}
	out := make(map[market.Market]*orderbook.MarketOrderBook, len(markets))
	for _, m := range markets {
		ob, err := a.OrderBook(m, depth)
		if err != nil {
			continue
		}
		out[m] = ob
	}
	return out, nil
}

func (a *PublicAdapter) OrderBook(mkt market.Market, depth int) (*orderbook.MarketOrderBook, error) {
	q := flatkv.New('&', '=')
	q.Append("base", mkt.Base.String())
	q.Append("quote", mkt.Quote.String())
	if depth > 0 {
		q.AppendInt("depth", int64(depth))
	}
	resp, err := GetJSON(context.Background(), a.stack.PublicRR, a.endpoints.OrderBook, q, nil,
		acceptWith[OrderBookResponse](a.accept, func(r OrderBookResponse) Envelope { return r.Envelope }))
	if err != nil {
		return nil, err
	}
	asks := make([]orderbook.Level, 0, len(resp.Asks))
	for _, lvl := range resp.Asks {
		if l, ok := parseLevel(lvl, mkt.Base, mkt.Quote); ok {
			asks = append(asks, l)
		}
	}
	bids := make([]orderbook.Level, 0, len(resp.Bids))
	for _, lvl := range resp.Bids {
		if l, ok := parseLevel(lvl, mkt.Base, mkt.Quote); ok {
			bids = append(bids, l)
		}
	}
	return orderbook.New(mkt, asks, bids, time.Now()), nil
}

func parseLevel(lvl OrderBookLevel, base, quote currency.Code) (orderbook.Level, bool) {
	price, err := money.Parse(lvl.Price, quote)
	if err != nil {
		return orderbook.Level{}, false
	}
	qty, err := money.Parse(lvl.Qty, base)
	if err != nil {
		return orderbook.Level{}, false
	}
	return orderbook.Level{Price: price, Amount: qty}, true
}

func (a *PublicAdapter) Last24hVolume(mkt market.Market) (money.Amount, error) {
	q := flatkv.New('&', '=')
	q.Append("base", mkt.Base.String())
	q.Append("quote", mkt.Quote.String())
	resp, err := GetJSON(context.Background(), a.stack.PublicRR, a.endpoints.Tickers, q, nil,
		acceptWith[TickerResponse](a.accept, func(r TickerResponse) Envelope { return r.Envelope }))
	if err != nil {
		return money.Amount{}, err
	}
	for _, t := range resp.Tickers {
		if currency.New(t.Base) == mkt.Base && currency.New(t.Quote) == mkt.Quote {
			return money.Parse(t.Volume, mkt.Base)
		}
	}
	return money.Amount{}, exchangeNotFound(a.name, "no 24h volume for "+mkt.String())
}

func (a *PublicAdapter) LastTrades(mkt market.Market, n int) ([]exchange.PublicTrade, error) {
	q := flatkv.New('&', '=')
	q.Append("base", mkt.Base.String())
	q.Append("quote", mkt.Quote.String())
	if n > 0 {
		q.AppendInt("limit", int64(n))
	}
	resp, err := GetJSON(context.Background(), a.stack.PublicRR, a.endpoints.Trades, q, nil,
		acceptWith[TradesResponse](a.accept, func(r TradesResponse) Envelope { return r.Envelope }))
	if err != nil {
		return nil, err
	}
	out := make([]exchange.PublicTrade, 0, len(resp.Trades))
	for _, t := range resp.Trades {
		price, err := money.Parse(t.Price, mkt.Quote)
		if err != nil {
			continue
		}
		qty, err := money.Parse(t.Qty, mkt.Base)
		if err != nil {
			continue
		}
		side := exchange.Buy
		if t.Side == "sell" {
			side = exchange.Sell
		}
		out = append(out, exchange.PublicTrade{
			Market: mkt,
			Side:   side,
			Price:  price,
			Amount: qty,
			Time:   time.UnixMilli(t.TimeMs),
		})
	}
	return out, nil
}

func (a *PublicAdapter) LastPrice(mkt market.Market) (money.Amount, error) {
	ob, err := a.OrderBook(mkt, 1)
	if err != nil {
		return money.Amount{}, err
	}
	if ask, ok := ob.BestAsk(); ok {
		return ask.Price, nil
	}
	return money.Amount{}, exchangeNotFound(a.name, "no price for "+mkt.String())
}

func (a *PublicAdapter) WithdrawalFees() (map[currency.Code]money.Amount, error) {
	return a.withdrawalFees.Get(struct{}{})
}

func (a *PublicAdapter) fetchWithdrawalFees(ctx context.Context) (map[currency.Code]money.Amount, error) {
	resp, err := GetJSON(ctx, a.stack.PublicRR, a.endpoints.WithdrawalFees, nil, nil,
		acceptWith[WithdrawalFeesResponse](a.accept, func(r WithdrawalFeesResponse) Envelope { return r.Envelope }))
	if err != nil {
		return nil, err
	}
	out := make(map[currency.Code]money.Amount, len(resp.Fees))
	for _, f := range resp.Fees {
		cur := currency.New(f.Currency)
		fee, err := money.Parse(f.Fee, cur)
		if err != nil {
			continue
		}
		out[cur] = fee
	}
	return out, nil
}

func (a *PublicAdapter) WithdrawalFee(cur currency.Code) (money.Amount, bool, error) {
	fees, err := a.WithdrawalFees()
	if err != nil {
		return money.Amount{}, false, err
	}
	fee, ok := fees[cur]
	return fee, ok, nil
}

func (a *PublicAdapter) IsWithdrawalFeesSourceReliable() bool { return a.withdrawalFeesReliable }

func exchangeNotFound(venue, msg string) error {
	return coinerr.New(coinerr.NotFound, venue+": "+msg)
}
