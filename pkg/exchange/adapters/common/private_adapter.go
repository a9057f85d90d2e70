package common

import (
	"context"
	"time"

	"github.com/sjanel/coincenter/pkg/coinerr"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange"
	"github.com/sjanel/coincenter/pkg/flatkv"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
)

// PrivateAdapter implements exchange.VenuePrivateApi against a venue's
// account-scoped endpoints, sharing its Stack and Endpoints table with the
// paired PublicAdapter (spec.md §4.9). Open vs. closed orders are two
// distinct endpoint paths (Endpoints.OpenOrders, Endpoints.ClosedOrders)
// rather than a status field on OrderEntry, matching how every venue in
// the pack actually exposes this split.
type PrivateAdapter struct {
	account    string
	stack      *Stack
	public     *PublicAdapter
	endpoints  Endpoints
	accept     func(Envelope) httpclient.ResponseStatus
	canDeposit bool

	apiKeyHeader string
	macHeader    string
}

// NewPrivateAdapter builds a PrivateAdapter bound to one account. apiKeyHeader
// and macHeader name the HTTP headers PostSigned attaches the API key and
// MAC under; canDeposit reports whether this venue can mint fresh deposit
// addresses on demand (spec.md §4.9, DepositWallet/CanGenerateDepositAddress).
func NewPrivateAdapter(account string, stack *Stack, public *PublicAdapter, endpoints Endpoints,
	accept func(Envelope) httpclient.ResponseStatus, apiKeyHeader, macHeader string, canDeposit bool) *PrivateAdapter {
	return &PrivateAdapter{
		account:      account,
		stack:        stack,
		public:       public,
		endpoints:    endpoints,
		accept:       accept,
		canDeposit:   canDeposit,
		apiKeyHeader: apiKeyHeader,
		macHeader:    macHeader,
	}
}

func (a *PrivateAdapter) Exchange() exchange.VenuePublicApi { return a.public }

func (a *PrivateAdapter) AccountName() string { return a.account }

func (a *PrivateAdapter) signedQuery() *flatkv.FlatKeyValue {
	fkv := flatkv.New('&', '=')
	fkv.AppendInt("ts", a.stack.NextTimestamp())
	return fkv
}

func (a *PrivateAdapter) ValidateAPIKey() (bool, error) {
	if !a.stack.HasCredentials() {
		return false, nil
	}
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.ValidateKey, a.signedQuery(),
		a.apiKeyHeader, a.macHeader, acceptWith[APIKeyValidationResponse](a.accept, func(r APIKeyValidationResponse) Envelope { return r.Envelope }))
	if err != nil {
		return false, err
	}
	return resp.Valid, nil
}

func (a *PrivateAdapter) AccountBalance(equiCur currency.Code) (map[currency.Code]money.Amount, error) {
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.Balance, a.signedQuery(),
		a.apiKeyHeader, a.macHeader, acceptWith[BalanceResponse](a.accept, func(r BalanceResponse) Envelope { return r.Envelope }))
	if err != nil {
		return nil, err
	}
	out := make(map[currency.Code]money.Amount, len(resp.Balances))
	for _, b := range resp.Balances {
		cur := currency.New(b.Currency)
		amount, err := money.Parse(b.Available, cur)
		if err != nil {
			continue
		}
		out[cur] = amount
	}
	if equiCur.IsNeutral() {
		return out, nil
	}
	converted := make(map[currency.Code]money.Amount, len(out))
	for cur, amount := range out {
		equi, err := exchange.ConvertAtAveragePrice(a.public, amount, equiCur)
		if err != nil {
			continue
		}
		converted[cur] = equi
	}
	return converted, nil
}

func (a *PrivateAdapter) DepositWallet(cur currency.Code) (exchange.Wallet, error) {
	if !a.canDeposit {
		return exchange.Wallet{}, coinerr.New(coinerr.Capability, a.public.Name()+": cannot generate deposit addresses")
	}
	fkv := a.signedQuery()
	fkv.Append("currency", cur.String())
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.DepositWallet, fkv,
		a.apiKeyHeader, a.macHeader, acceptWith[WalletResponse](a.accept, func(r WalletResponse) Envelope { return r.Envelope }))
	if err != nil {
		return exchange.Wallet{}, err
	}
	return exchange.Wallet{
		Venue:    a.public.Name(),
		Account:  a.account,
		Currency: cur,
		Address:  resp.Address,
		Tag:      resp.Tag,
	}, nil
}

func (a *PrivateAdapter) CanGenerateDepositAddress() bool { return a.canDeposit }

func (a *PrivateAdapter) fetchOrders(path string) ([]exchange.Order, error) {
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, path, a.signedQuery(),
		a.apiKeyHeader, a.macHeader, acceptWith[OrdersResponse](a.accept, func(r OrdersResponse) Envelope { return r.Envelope }))
	if err != nil {
		return nil, err
	}
	closed := path == a.endpoints.ClosedOrders
	out := make([]exchange.Order, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		order, ok := toOrder(o, closed)
		if ok {
			out = append(out, order)
		}
	}
	return out, nil
}

func toOrder(o OrderEntry, closed bool) (exchange.Order, bool) {
	base, quote := currency.New(o.Base), currency.New(o.Quote)
	price, err := money.Parse(o.Price, quote)
	if err != nil {
		return exchange.Order{}, false
	}
	volume, err := money.Parse(o.Volume, base)
	if err != nil {
		return exchange.Order{}, false
	}
	var matchedFrom money.Amount
	if o.Filled != "" {
		matchedFrom, _ = money.Parse(o.Filled, base)
	}
	side := exchange.Buy
	if o.Side == "sell" {
		side = exchange.Sell
	}
	return exchange.Order{
		ID:          o.ID,
		Market:      market.New(base, quote),
		Side:        side,
		Price:       price,
		Volume:      volume,
		MatchedFrom: matchedFrom,
		PlacedAt:    time.UnixMilli(o.TimeMs),
		IsClosed:    closed,
	}, true
}

func filterOrders(orders []exchange.Order, filter exchange.OrderFilter) []exchange.Order {
	out := orders[:0:0]
	for _, o := range orders {
		if filter.Matches(o) {
			out = append(out, o)
		}
	}
	return out
}

func (a *PrivateAdapter) OpenedOrders(filter exchange.OrderFilter) ([]exchange.Order, error) {
	orders, err := a.fetchOrders(a.endpoints.OpenOrders)
	if err != nil {
		return nil, err
	}
	return filterOrders(orders, filter), nil
}

func (a *PrivateAdapter) ClosedOrders(filter exchange.OrderFilter) ([]exchange.Order, error) {
	orders, err := a.fetchOrders(a.endpoints.ClosedOrders)
	if err != nil {
		return nil, err
	}
	return filterOrders(orders, filter), nil
}

func (a *PrivateAdapter) CancelOrders(filter exchange.OrderFilter) (int, error) {
	orders, err := a.OpenedOrders(filter)
	if err != nil {
		return 0, err
	}
	var n int
	for _, o := range orders {
		if _, err := a.CancelOrder(o.ID); err == nil {
			n++
		}
	}
	return n, nil
}

func (a *PrivateAdapter) RecentDeposits(filter exchange.OrderFilter) ([]exchange.Deposit, error) {
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.Deposits, a.signedQuery(),
		a.apiKeyHeader, a.macHeader, acceptWith[DepositsResponse](a.accept, func(r DepositsResponse) Envelope { return r.Envelope }))
	if err != nil {
		return nil, err
	}
	out := make([]exchange.Deposit, 0, len(resp.Deposits))
	for _, d := range resp.Deposits {
		cur := currency.New(d.Currency)
		amount, err := money.Parse(d.Amount, cur)
		if err != nil {
			continue
		}
		dep := exchange.Deposit{ID: d.ID, Currency: cur, Amount: amount, Time: time.UnixMilli(d.TimeMs)}
		if !filter.Since.IsZero() && dep.Time.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && dep.Time.After(filter.Until) {
			continue
		}
		if len(filter.IDs) > 0 && !containsID(filter.IDs, dep.ID) {
			continue
		}
		out = append(out, dep)
	}
	return out, nil
}

func (a *PrivateAdapter) RecentWithdraws(filter exchange.OrderFilter) ([]exchange.Withdraw, error) {
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.Withdraws, a.signedQuery(),
		a.apiKeyHeader, a.macHeader, acceptWith[WithdrawsResponse](a.accept, func(r WithdrawsResponse) Envelope { return r.Envelope }))
	if err != nil {
		return nil, err
	}
	out := make([]exchange.Withdraw, 0, len(resp.Withdraws))
	for _, w := range resp.Withdraws {
		cur := currency.New(w.Currency)
		amount, err := money.Parse(w.Amount, cur)
		if err != nil {
			continue
		}
		wd := exchange.Withdraw{ID: w.ID, Currency: cur, Amount: amount, Time: time.UnixMilli(w.TimeMs)}
		if !filter.Since.IsZero() && wd.Time.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && wd.Time.After(filter.Until) {
			continue
		}
		if len(filter.IDs) > 0 && !containsID(filter.IDs, wd.ID) {
			continue
		}
		out = append(out, wd)
	}
	return out, nil
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func (a *PrivateAdapter) PlaceOrder(from money.Amount, volume, price money.Amount, info exchange.PlaceOrderRequest) (exchange.PlaceOrderInfo, error) {
	if info.Simulate {
		return exchange.PlaceOrderInfo{}, coinerr.New(coinerr.Capability, a.public.Name()+": order simulation is not supported")
	}
	fkv := a.signedQuery()
	fkv.Append("base", info.Market.Base.String())
	fkv.Append("quote", info.Market.Quote.String())
	fkv.Append("side", info.Side.String())
	fkv.Append("volume", volume.AmountString())
	fkv.Append("price", price.AmountString())
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.PlaceOrder, fkv,
		a.apiKeyHeader, a.macHeader, acceptWith[PlaceOrderResponse](a.accept, func(r PlaceOrderResponse) Envelope { return r.Envelope }))
	if err != nil {
		return exchange.PlaceOrderInfo{}, err
	}
	matchedTo, err := money.Parse(resp.Filled, info.Market.Base)
	if err != nil {
		matchedTo = money.New(0, 0, info.Market.Base)
	}
	matchedFrom, err := exchange.ConvertAtAveragePrice(a.public, matchedTo, info.Market.Quote)
	if err != nil {
		matchedFrom = money.New(0, 0, info.Market.Quote)
	}
	return exchange.PlaceOrderInfo{
		OrderRef:    resp.ID,
		Market:      info.Market,
		Side:        info.Side,
		MatchedFrom: matchedFrom,
		MatchedTo:   matchedTo,
		IsClosed:    info.Type == exchange.Market,
	}, nil
}

func (a *PrivateAdapter) CancelOrder(ref string) (exchange.OrderInfo, error) {
	fkv := a.signedQuery()
	fkv.Append("id", ref)
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.CancelOrder, fkv,
		a.apiKeyHeader, a.macHeader, acceptWith[OrderResponse](a.accept, func(r OrderResponse) Envelope { return r.Envelope }))
	if err != nil {
		return exchange.OrderInfo{}, err
	}
	order, _ := toOrder(resp.Order, true)
	return exchange.OrderInfo{
		OrderRef:    order.ID,
		Market:      order.Market,
		Side:        order.Side,
		MatchedFrom: order.MatchedFrom,
		IsClosed:    true,
	}, nil
}

func (a *PrivateAdapter) QueryOrderInfo(ref string) (exchange.OrderInfo, error) {
	fkv := a.signedQuery()
	fkv.Append("id", ref)
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.OrderInfo, fkv,
		a.apiKeyHeader, a.macHeader, acceptWith[OrderResponse](a.accept, func(r OrderResponse) Envelope { return r.Envelope }))
	if err != nil {
		return exchange.OrderInfo{}, err
	}
	order, ok := toOrder(resp.Order, false)
	if !ok {
		return exchange.OrderInfo{}, coinerr.New(coinerr.VenueProtocol, a.public.Name()+": could not parse order "+ref)
	}
	return exchange.OrderInfo{
		OrderRef:    order.ID,
		Market:      order.Market,
		Side:        order.Side,
		MatchedFrom: order.MatchedFrom,
		IsClosed:    order.IsClosed,
	}, nil
}

func (a *PrivateAdapter) LaunchWithdraw(gross money.Amount, wallet exchange.Wallet) (exchange.InitiatedWithdrawInfo, error) {
	fkv := a.signedQuery()
	fkv.Append("currency", gross.Currency().String())
	fkv.Append("amount", gross.AmountString())
	fkv.Append("address", wallet.Address)
	if wallet.Tag != "" {
		fkv.Append("tag", wallet.Tag)
	}
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.LaunchWithdraw, fkv,
		a.apiKeyHeader, a.macHeader, acceptWith[LaunchWithdrawResponse](a.accept, func(r LaunchWithdrawResponse) Envelope { return r.Envelope }))
	if err != nil {
		return exchange.InitiatedWithdrawInfo{}, err
	}
	return exchange.InitiatedWithdrawInfo{
		ID:      resp.ID,
		Gross:   gross,
		Address: wallet.Address,
		Tag:     wallet.Tag,
		Time:    time.Now(),
	}, nil
}

func (a *PrivateAdapter) IsWithdrawSuccessfullySent(init exchange.InitiatedWithdrawInfo) (exchange.SentWithdrawInfo, error) {
	fkv := a.signedQuery()
	fkv.Append("id", init.ID)
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.WithdrawSent, fkv,
		a.apiKeyHeader, a.macHeader, acceptWith[WithdrawStatusResponse](a.accept, func(r WithdrawStatusResponse) Envelope { return r.Envelope }))
	if err != nil {
		return exchange.SentWithdrawInfo{}, err
	}
	net, err := money.Parse(resp.NetReceived, init.Gross.Currency())
	if err != nil {
		net = money.New(0, 0, init.Gross.Currency())
	}
	return exchange.SentWithdrawInfo{
		Sent: resp.Sent,
		Net:  net,
		Time: time.Now(),
	}, nil
}

func (a *PrivateAdapter) QueryWithdrawDelivery(init exchange.InitiatedWithdrawInfo, sent exchange.SentWithdrawInfo) (money.Amount, error) {
	fkv := a.signedQuery()
	fkv.Append("id", init.ID)
	resp, err := PostSigned(context.Background(), a.stack, a.stack.PrivateRR, a.endpoints.WithdrawStatus, fkv,
		a.apiKeyHeader, a.macHeader, acceptWith[WithdrawStatusResponse](a.accept, func(r WithdrawStatusResponse) Envelope { return r.Envelope }))
	if err != nil {
		return money.Amount{}, err
	}
	if !resp.Sent {
		return money.Amount{}, coinerr.New(coinerr.Timeout, a.public.Name()+": withdraw "+init.ID+" not yet delivered")
	}
	return money.Parse(resp.NetReceived, init.Gross.Currency())
}
