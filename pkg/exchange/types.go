// Package exchange defines the domain types and venue-facing capability
// interfaces (VenuePublicApi, VenuePrivateApi) every adapter implements,
// plus the shared algorithms layered once on top of those interfaces
// (convert-at-average-price, market-string parsing, limit/average order
// pricing). It never talks to a network itself.
package exchange

import (
	"time"

	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
)

// CurrencyKind distinguishes a fiat currency from a crypto asset for a
// given venue's listing.
type CurrencyKind int8

const (
	Crypto CurrencyKind = iota
	Fiat
)

// CurrencyExchange describes how one venue exposes a currency: its
// standard (normalized) code, the venue's own spelling of it, an alternate
// code some venues advertise in addition, and its deposit/withdraw
// availability.
type CurrencyExchange struct {
	Standard        currency.Code
	VenueCode       string
	AltCode         string
	DepositEnabled  bool
	WithdrawEnabled bool
	Kind            CurrencyKind
}

// Wallet identifies a deposit destination: a venue/account/currency tuple
// plus the address (and, for currencies that require one, a memo/tag).
type Wallet struct {
	Venue         string
	Account       string
	Currency      currency.Code
	Address       string
	Tag           string
	TrustedBySite bool
}

// PublicTrade is one historical trade reported by a venue's public trade
// feed.
type PublicTrade struct {
	Market market.Market
	Price  money.Amount
	Amount money.Amount
	Time   time.Time
	Side   TradeSide
}

// TradeSide is the aggressor side of a trade or order.
type TradeSide int8

const (
	Buy TradeSide = iota
	Sell
)

func (s TradeSide) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// PriceStrategy selects how a limit order's price is derived from the
// current order book (spec.md §4.6).
type PriceStrategy int8

const (
	// Maker places at the current best price on the order's own side,
	// crossing zero ticks.
	Maker PriceStrategy = iota
	// Nibble places one tick inside the spread from the order's own side.
	Nibble
	// Taker crosses the spread immediately, pricing at the opposite side's
	// top of book.
	Taker
)

func (s PriceStrategy) String() string {
	switch s {
	case Nibble:
		return "nibble"
	case Taker:
		return "taker"
	default:
		return "maker"
	}
}

// TimeoutAction decides what happens to an unfilled maker order once its
// deadline elapses.
type TimeoutAction int8

const (
	Cancel TimeoutAction = iota
	Match
)

// OrderType distinguishes a limit order from a market order.
type OrderType int8

const (
	Limit OrderType = iota
	Market
)

// PlaceOrderInfo is the result of placing an order: its exchange-assigned
// reference, how much of each side was matched immediately, and whether it
// is still open.
type PlaceOrderInfo struct {
	OrderRef     string
	Market       market.Market
	Side         TradeSide
	MatchedFrom  money.Amount
	MatchedTo    money.Amount
	IsClosed     bool
	IsSimulation bool
}

// OrderInfo is the current state of a previously placed order.
type OrderInfo struct {
	OrderRef    string
	Market      market.Market
	Side        TradeSide
	MatchedFrom money.Amount
	MatchedTo   money.Amount
	IsClosed    bool
}

// Order is a snapshot of one open or closed order, as returned by
// OpenedOrders/ClosedOrders.
type Order struct {
	ID          string
	Market      market.Market
	Side        TradeSide
	Price       money.Amount
	Volume      money.Amount
	MatchedFrom money.Amount
	PlacedAt    time.Time
	IsClosed    bool
}

// OrderFilter narrows down OpenedOrders/ClosedOrders/CancelOrders and
// RecentDeposits/RecentWithdraws queries.
type OrderFilter struct {
	Market market.Market // zero value means "any market"
	IDs    []string      // empty means "any id"
	Since  time.Time     // zero value means "no lower bound"
	Until  time.Time     // zero value means "no upper bound"
	Side   *TradeSide    // nil means "either side"
}

// Matches reports whether o satisfies f.
func (f OrderFilter) Matches(o Order) bool {
	if f.Market != (market.Market{}) && !f.Market.Equal(o.Market) {
		return false
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == o.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.Since.IsZero() && o.PlacedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && o.PlacedAt.After(f.Until) {
		return false
	}
	if f.Side != nil && *f.Side != o.Side {
		return false
	}
	return true
}

// Deposit is one completed or pending incoming transfer.
type Deposit struct {
	ID       string
	Currency currency.Code
	Amount   money.Amount
	Time     time.Time
	Status   string
}

// Withdraw is one completed or pending outgoing transfer, as reported by
// RecentWithdraws.
type Withdraw struct {
	ID       string
	Currency currency.Code
	Amount   money.Amount
	Fee      money.Amount
	Time     time.Time
	Status   string
}

// InitiatedWithdrawInfo records a withdraw request accepted by the source
// venue, before delivery is confirmed.
type InitiatedWithdrawInfo struct {
	ID      string
	Gross   money.Amount
	Address string
	Tag     string
	Time    time.Time
}

// SentWithdrawInfo is returned once the source venue confirms the transfer
// actually left its custody.
type SentWithdrawInfo struct {
	Sent bool
	Net  money.Amount
	Fee  money.Amount
	Time time.Time
}

// DeliveredWithdrawInfo is the orchestrator-level outcome of a full
// withdraw operation: whether it was even attempted (spec.md seed scenario
// 6: withdraw-unavailable must not call LaunchWithdraw at all), and, if so,
// the amount the destination actually received.
type DeliveredWithdrawInfo struct {
	Initiated   bool
	Delivered   bool
	Init        InitiatedWithdrawInfo
	NetReceived money.Amount
}

// TradedAmounts is the outcome of one trade leg or one account's
// contribution to a smart trade: how much was actually consumed from the
// source currency and produced in the target currency. Both are zero if
// the leg filled nothing.
type TradedAmounts struct {
	FromActual money.Amount
	ToActual   money.Amount
}

// Add accumulates another leg's contribution into ta.
func (ta TradedAmounts) Add(o TradedAmounts) (TradedAmounts, error) {
	from, err := ta.FromActual.Add(o.FromActual)
	if err != nil {
		return TradedAmounts{}, err
	}
	to, err := ta.ToActual.Add(o.ToActual)
	if err != nil {
		return TradedAmounts{}, err
	}
	return TradedAmounts{FromActual: from, ToActual: to}, nil
}
