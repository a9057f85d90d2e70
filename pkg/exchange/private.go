package exchange

import (
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/market"
	"github.com/sjanel/coincenter/pkg/money"
)

// VenuePrivateApi is the capability set every venue adapter must provide
// for account-scoped, authenticated operations (spec.md §4.9). An instance
// is bound to one account; there is no account parameter on any method.
type VenuePrivateApi interface {
	// Exchange returns the VenuePublicApi this private API shares a venue
	// (and typically a vault) with.
	Exchange() VenuePublicApi
	AccountName() string

	ValidateAPIKey() (bool, error)
	AccountBalance(equiCur currency.Code) (map[currency.Code]money.Amount, error)
	DepositWallet(cur currency.Code) (Wallet, error)
	CanGenerateDepositAddress() bool

	OpenedOrders(filter OrderFilter) ([]Order, error)
	ClosedOrders(filter OrderFilter) ([]Order, error)
	CancelOrders(filter OrderFilter) (int, error)

	RecentDeposits(filter OrderFilter) ([]Deposit, error)
	RecentWithdraws(filter OrderFilter) ([]Withdraw, error)

	PlaceOrder(from money.Amount, volume, price money.Amount, info PlaceOrderRequest) (PlaceOrderInfo, error)
	CancelOrder(ref string) (OrderInfo, error)
	QueryOrderInfo(ref string) (OrderInfo, error)

	LaunchWithdraw(gross money.Amount, wallet Wallet) (InitiatedWithdrawInfo, error)
	IsWithdrawSuccessfullySent(init InitiatedWithdrawInfo) (SentWithdrawInfo, error)
	QueryWithdrawDelivery(init InitiatedWithdrawInfo, sent SentWithdrawInfo) (money.Amount, error)
}

// PlaceOrderRequest carries the parameters an order placement needs beyond
// the raw from/volume/price amounts: which side and type, and whether this
// is a simulated order. The common private adapter refuses every Simulate
// request with coinerr.Capability and never places a real order for it;
// the venue's PlaceSimulateRealOrder config value is not consulted here.
type PlaceOrderRequest struct {
	Market   market.Market
	Side     TradeSide
	Type     OrderType
	Simulate bool
}
