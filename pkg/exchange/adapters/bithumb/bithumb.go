// Package bithumb wires Bithumb's endpoint table and signing convention
// into the generic adapters of pkg/exchange/adapters/common. Bithumb
// reports success via a "status":"0000" envelope field (spec.md §4.8's own
// example) and signs with HMAC-SHA512.
package bithumb

import (
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/common"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/signing"
)

const name = "bithumb"

const okStatus = "0000"

var baseURLs = []string{"https://api.bithumb.com"}

var endpoints = common.Endpoints{
	Ping:           "/public/ticker/BTC_KRW",
	Markets:        "/public/ticker/ALL_KRW",
	Tickers:        "/public/ticker/ALL_KRW",
	OrderBook:      "/public/orderbook",
	Trades:         "/public/transaction_history",
	WithdrawalFees: "/public/assetsstatus/ALL",
	ValidateKey:    "/info/account",
	Balance:        "/info/balance",
	DepositWallet:  "/info/wallet_address",
	OpenOrders:     "/info/orders",
	ClosedOrders:   "/info/user_transactions",
	CancelOrder:    "/trade/cancel",
	PlaceOrder:     "/trade/place",
	OrderInfo:      "/info/order_detail",
	Deposits:       "/info/user_transactions",
	Withdraws:      "/info/user_transactions",
	LaunchWithdraw: "/trade/btc_withdrawal",
	WithdrawSent:   "/info/user_transactions",
	WithdrawStatus: "/info/user_transactions",
}

// New builds Bithumb's public and private adapters sharing one Stack.
func New(creds common.Credentials, vault *cache.Vault, ttl time.Duration, recorder httpclient.MetricsRecorder) (*common.PublicAdapter, *common.PrivateAdapter, error) {
	stack, err := common.NewStack(name, baseURLs, 100*time.Millisecond, httpclient.DefaultRetryPolicy(), creds, signing.SHA512, recorder)
	if err != nil {
		return nil, nil, err
	}
	accept := common.AcceptEnvelope(okStatus)
	pub := common.NewPublicAdapter(name, stack, vault, endpoints, accept, ttl, true)
	priv := common.NewPrivateAdapter("main", stack, pub, endpoints, accept, "Api-Key", "Api-Sign", true)
	return pub, priv, nil
}
