package orchestrator

import (
	"testing"
	"time"

	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
	"github.com/sjanel/coincenter/pkg/orderbook"
)

type fakePublic struct {
	name    string
	markets []market.Market
	books   map[market.Market]*orderbook.MarketOrderBook
	prices  map[market.Market]money.Amount
	healthy bool
}

func (f *fakePublic) Name() string                    { return f.name }
func (f *fakePublic) HealthCheck() (bool, error)       { return f.healthy, nil }
func (f *fakePublic) TradableCurrencies() ([]exchange.CurrencyExchange, error) {
	return []exchange.CurrencyExchange{
		{Standard: currency.New("BTC"), DepositEnabled: true, WithdrawEnabled: true},
		{Standard: currency.New("EUR"), DepositEnabled: true, WithdrawEnabled: true},
		{Standard: currency.New("XRP"), DepositEnabled: true, WithdrawEnabled: false},
	}, nil
}
func (f *fakePublic) ConvertStdCurrency(code currency.Code) (exchange.CurrencyExchange, error) {
	return exchange.CurrencyExchange{Standard: code}, nil
}
func (f *fakePublic) TradableMarkets() ([]market.Market, error) { return f.markets, nil }
func (f *fakePublic) AllPrices() (map[market.Market]money.Amount, error) { return f.prices, nil }
func (f *fakePublic) AllOrderBooks(int) (map[market.Market]*orderbook.MarketOrderBook, error) {
	return f.books, nil
}
func (f *fakePublic) OrderBook(mkt market.Market, depth int) (*orderbook.MarketOrderBook, error) {
	ob, ok := f.books[mkt]
	if !ok {
		return nil, coinerr.New(coinerr.NotFound, "no book for "+mkt.String())
	}
	return ob, nil
}
func (f *fakePublic) Last24hVolume(mkt market.Market) (money.Amount, error) {
	return money.Zero(mkt.Quote), nil
}
func (f *fakePublic) LastTrades(market.Market, int) ([]exchange.PublicTrade, error) { return nil, nil }
func (f *fakePublic) LastPrice(mkt market.Market) (money.Amount, error) {
	if p, ok := f.prices[mkt]; ok {
		return p, nil
	}
	return money.Amount{}, coinerr.New(coinerr.NotFound, "no price for "+mkt.String())
}
func (f *fakePublic) WithdrawalFees() (map[currency.Code]money.Amount, error) { return nil, nil }
func (f *fakePublic) WithdrawalFee(currency.Code) (money.Amount, bool, error) {
	return money.Amount{}, false, nil
}
func (f *fakePublic) IsWithdrawalFeesSourceReliable() bool { return true }

type fakePrivate struct {
	account    string
	pub        exchange.VenuePublicApi
	balances   map[currency.Code]money.Amount
	canDeposit bool
}

func (f *fakePrivate) Exchange() exchange.VenuePublicApi { return f.pub }
func (f *fakePrivate) AccountName() string               { return f.account }
func (f *fakePrivate) ValidateAPIKey() (bool, error)     { return true, nil }
func (f *fakePrivate) AccountBalance(currency.Code) (map[currency.Code]money.Amount, error) {
	out := make(map[currency.Code]money.Amount, len(f.balances))
	for k, v := range f.balances {
		out[k] = v
	}
	return out, nil
}
func (f *fakePrivate) DepositWallet(cur currency.Code) (exchange.Wallet, error) {
	return exchange.Wallet{Venue: f.pub.Name(), Account: f.account, Currency: cur, Address: "addr-" + f.account}, nil
}
func (f *fakePrivate) CanGenerateDepositAddress() bool { return f.canDeposit }
func (f *fakePrivate) OpenedOrders(exchange.OrderFilter) ([]exchange.Order, error)   { return nil, nil }
func (f *fakePrivate) ClosedOrders(exchange.OrderFilter) ([]exchange.Order, error)   { return nil, nil }
func (f *fakePrivate) CancelOrders(exchange.OrderFilter) (int, error)                { return 0, nil }
func (f *fakePrivate) RecentDeposits(exchange.OrderFilter) ([]exchange.Deposit, error) {
	return nil, nil
}
func (f *fakePrivate) RecentWithdraws(exchange.OrderFilter) ([]exchange.Withdraw, error) {
	return nil, nil
}

// PlaceOrder simulates an immediate full fill at the given price, debiting
// and crediting f.balances so a multi-leg walk sees consistent state.
func (f *fakePrivate) PlaceOrder(from money.Amount, volume, price money.Amount, info exchange.PlaceOrderRequest) (exchange.PlaceOrderInfo, error) {
	if info.Simulate {
		return exchange.PlaceOrderInfo{}, coinerr.New(coinerr.Capability, "simulation not supported")
	}
	var matchedTo money.Amount
	if info.Side == exchange.Sell {
		matchedTo = volume.ConvertAtPrice(price)
	} else {
		matchedTo = volume.WithCurrency(info.Market.Base)
	}

	if bal, ok := f.balances[from.Currency()]; ok {
		if sub, err := bal.Sub(from); err == nil {
			f.balances[from.Currency()] = sub
		}
	}
	if sum, err := f.balances[matchedTo.Currency()].Add(matchedTo); err == nil {
		f.balances[matchedTo.Currency()] = sum
	} else {
		f.balances[matchedTo.Currency()] = matchedTo
	}

	return exchange.PlaceOrderInfo{OrderRef: "ref", Market: info.Market, Side: info.Side, MatchedFrom: from, MatchedTo: matchedTo, IsClosed: true}, nil
}
func (f *fakePrivate) CancelOrder(string) (exchange.OrderInfo, error) {
	return exchange.OrderInfo{IsClosed: true}, nil
}
func (f *fakePrivate) QueryOrderInfo(string) (exchange.OrderInfo, error) {
	return exchange.OrderInfo{IsClosed: true}, nil
}
func (f *fakePrivate) LaunchWithdraw(gross money.Amount, wallet exchange.Wallet) (exchange.InitiatedWithdrawInfo, error) {
	return exchange.InitiatedWithdrawInfo{ID: "w1", Gross: gross, Address: wallet.Address, Time: time.Unix(0, 0)}, nil
}
func (f *fakePrivate) IsWithdrawSuccessfullySent(init exchange.InitiatedWithdrawInfo) (exchange.SentWithdrawInfo, error) {
	return exchange.SentWithdrawInfo{Sent: true, Net: init.Gross, Time: time.Unix(0, 0)}, nil
}
func (f *fakePrivate) QueryWithdrawDelivery(_ exchange.InitiatedWithdrawInfo, sent exchange.SentWithdrawInfo) (money.Amount, error) {
	return sent.Net, nil
}

func mustAmount(t *testing.T, s string, cur currency.Code) money.Amount {
	t.Helper()
	a, err := money.Parse(s, cur)
	if err != nil {
		t.Fatalf("money.Parse(%q): %v", s, err)
	}
	return a
}

func btcEURBook(t *testing.T) *orderbook.MarketOrderBook {
	t.Helper()
	mkt := market.New(currency.New("BTC"), currency.New("EUR"))
	ask := mustAmount(t, "20001", currency.New("EUR"))
	bid := mustAmount(t, "20000", currency.New("EUR"))
	vol := mustAmount(t, "100", currency.New("BTC"))
	return orderbook.New(mkt, []orderbook.Level{{Price: ask, Amount: vol}}, []orderbook.Level{{Price: bid, Amount: vol}}, time.Unix(0, 0))
}

func newTestOrchestrator(t *testing.T, accounts map[string]money.Amount) (*Orchestrator, []string) {
	t.Helper()
	mkt := market.New(currency.New("BTC"), currency.New("EUR"))
	pub := &fakePublic{
		name:    "binance",
		markets: []market.Market{mkt},
		books:   map[market.Market]*orderbook.MarketOrderBook{mkt: btcEURBook(t)},
		prices:  map[market.Market]money.Amount{mkt: mustAmount(t, "20000", currency.New("EUR"))},
		healthy: true,
	}
	privAccounts := make(map[string]exchange.VenuePrivateApi, len(accounts))
	var names []string
	for account, bal := range accounts {
		privAccounts[account] = &fakePrivate{
			account:    account,
			pub:        pub,
			balances:   map[currency.Code]money.Amount{currency.New("BTC"): bal},
			canDeposit: true,
		}
		names = append(names, "binance_"+account)
	}
	o := New([]string{"binance"}, map[string]Exchange{"binance": {Public: pub, Accounts: privAccounts}}, 4, nil)
	return o, names
}

func TestSelectOneAccountDedupsByVenue(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[string]money.Amount{"acct1": mustAmount(t, "1", currency.New("BTC")), "acct2": mustAmount(t, "2", currency.New("BTC"))})
	selected := o.SelectOneAccount(nil, OrderInitial)
	if len(selected) != 1 {
		t.Fatalf("expected 1 deduped entry, got %d", len(selected))
	}
	if selected[0].Venue != "binance" {
		t.Errorf("venue = %q, want binance", selected[0].Venue)
	}
}

func TestSelectPreservesOrderSelection(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[string]money.Amount{"acct1": mustAmount(t, "1", currency.New("BTC")), "acct2": mustAmount(t, "2", currency.New("BTC"))})
	selected := o.Select([]string{"binance_acct2", "binance_acct1"}, OrderSelection, FilterAny)
	if len(selected) != 2 || selected[0].Account != "acct2" || selected[1].Account != "acct1" {
		t.Fatalf("selection order not preserved: %+v", selected)
	}
}

func TestHealthCheckAggregatesPerVenue(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[string]money.Amount{"acct1": mustAmount(t, "1", currency.New("BTC"))})
	out, err := o.HealthCheck(nil)
	if err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	if !out["binance"] {
		t.Errorf("expected binance healthy")
	}
}

func TestBalanceSumsAcrossAccounts(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[string]money.Amount{
		"acct1": mustAmount(t, "1.5", currency.New("BTC")),
		"acct2": mustAmount(t, "0.5", currency.New("BTC")),
	})
	_, totals, err := o.Balance(nil, OrderInitial, currency.Neutral)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	got := totals[currency.New("BTC")]
	if got.String() != "2 BTC" {
		t.Errorf("total BTC = %s, want 2 BTC", got.String())
	}
}

func TestTradeSmartSellAcrossAccounts(t *testing.T) {
	o, names := newTestOrchestrator(t, map[string]money.Amount{
		"acct1": mustAmount(t, "15", currency.New("BTC")),
		"acct2": mustAmount(t, "0.5", currency.New("BTC")),
	})
	from := mustAmount(t, "16", currency.New("BTC"))
	cfg := TradeConfig{Strategy: exchange.Taker, TimeoutAction: exchange.Cancel, Timeout: time.Second, MinTimeBetweenPriceUpdates: time.Second}

	results, err := o.Trade(names, OrderSelection, from, false, currency.New("EUR"), cfg)
	if err != nil {
		t.Fatalf("Trade: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	byAccount := make(map[string]AccountTradeResult, len(results))
	for _, r := range results {
		byAccount[r.Account] = r
	}
	if got := byAccount["acct1"].Traded.FromActual.String(); got != "15 BTC" {
		t.Errorf("acct1 traded from = %s, want 15 BTC", got)
	}
	if got := byAccount["acct2"].Traded.FromActual.String(); got != "0.5 BTC" {
		t.Errorf("acct2 traded from = %s, want 0.5 BTC", got)
	}
}

func TestWithdrawRefusedWhenSourceCannotWithdraw(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[string]money.Amount{"acct1": mustAmount(t, "1", currency.New("BTC")), "acct2": mustAmount(t, "0", currency.New("BTC"))})
	gross := mustAmount(t, "1000", currency.New("XRP"))
	info, err := o.Withdraw("binance_acct1", "binance_acct2", gross, WithdrawConfig{Deadline: time.Second})
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if info.Initiated {
		t.Errorf("expected withdraw to not be initiated for a disabled currency")
	}
}

func TestWithdrawRefusedSameAccount(t *testing.T) {
	o, _ := newTestOrchestrator(t, map[string]money.Amount{"acct1": mustAmount(t, "1", currency.New("BTC"))})
	gross := mustAmount(t, "1", currency.New("BTC"))
	info, err := o.Withdraw("binance_acct1", "binance_acct1", gross, WithdrawConfig{Deadline: time.Second})
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if info.Initiated {
		t.Errorf("expected same-account withdraw to be refused")
	}
}
