// Package upbit wires Upbit's endpoint table and signing convention into
// the generic adapters of pkg/exchange/adapters/common. Upbit's public
// endpoints carry no envelope status field; Upbit signs with HMAC-SHA256
// over a JWT-style query hash rather than a bare MAC header, approximated
// here through the same FlatKeyValue-signing-string convention the other
// venues use.
package upbit

import (
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/common"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/signing"
)

const name = "upbit"

var baseURLs = []string{"https://api.upbit.com"}

var endpoints = common.Endpoints{
	Ping:           "/v1/market/all",
	Markets:        "/v1/market/all",
	Tickers:        "/v1/ticker",
	OrderBook:      "/v1/orderbook",
	Trades:         "/v1/trades/ticks",
	WithdrawalFees: "/v1/withdraws/chance",
	ValidateKey:    "/v1/api_keys",
	Balance:        "/v1/accounts",
	DepositWallet:  "/v1/deposits/coin_address",
	OpenOrders:     "/v1/orders",
	ClosedOrders:   "/v1/orders",
	CancelOrder:    "/v1/order",
	PlaceOrder:     "/v1/orders",
	OrderInfo:      "/v1/order",
	Deposits:       "/v1/deposits",
	Withdraws:      "/v1/withdraws",
	LaunchWithdraw: "/v1/withdraws/coin",
	WithdrawSent:   "/v1/withdraw",
	WithdrawStatus: "/v1/withdraw",
}

// New builds Upbit's public and private adapters sharing one Stack. Upbit
// does not support generating a fresh deposit address on demand for every
// currency in the way the others do; CanGenerateDepositAddress is false,
// so DepositWallet refuses with a Capability error per spec.md §4.9.
func New(creds common.Credentials, vault *cache.Vault, ttl time.Duration, recorder httpclient.MetricsRecorder) (*common.PublicAdapter, *common.PrivateAdapter, error) {
	stack, err := common.NewStack(name, baseURLs, 100*time.Millisecond, httpclient.DefaultRetryPolicy(), creds, signing.SHA256, recorder)
	if err != nil {
		return nil, nil, err
	}
	accept := common.AcceptEnvelope("")
	pub := common.NewPublicAdapter(name, stack, vault, endpoints, accept, ttl, false)
	priv := common.NewPrivateAdapter("main", stack, pub, endpoints, accept, "Authorization", "Authorization", false)
	return pub, priv, nil
}
