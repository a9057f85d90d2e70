// Package kucoin wires KuCoin's endpoint table and signing convention
// into the generic adapters of pkg/exchange/adapters/common. KuCoin
// reports success via a "status":"200000" envelope field and signs with
// HMAC-SHA256.
package kucoin

import (
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/common"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/signing"
)

const name = "kucoin"

const okStatus = "200000"

var baseURLs = []string{"https://api.kucoin.com"}

var endpoints = common.Endpoints{
	Ping:           "/api/v1/status",
	Markets:        "/api/v2/symbols",
	Tickers:        "/api/v1/market/allTickers",
	OrderBook:      "/api/v1/market/orderbook/level2_20",
	Trades:         "/api/v1/market/histories",
	WithdrawalFees: "/api/v1/withdrawals/quotas",
	ValidateKey:    "/api/v1/user-info",
	Balance:        "/api/v1/accounts",
	DepositWallet:  "/api/v1/deposit-addresses",
	OpenOrders:     "/api/v1/orders",
	ClosedOrders:   "/api/v1/orders",
	CancelOrder:    "/api/v1/orders",
	PlaceOrder:     "/api/v1/orders",
	OrderInfo:      "/api/v1/orders",
	Deposits:       "/api/v1/deposits",
	Withdraws:      "/api/v1/withdrawals",
	LaunchWithdraw: "/api/v1/withdrawals",
	WithdrawSent:   "/api/v1/withdrawals",
	WithdrawStatus: "/api/v1/withdrawals",
}

// New builds KuCoin's public and private adapters sharing one Stack.
func New(creds common.Credentials, vault *cache.Vault, ttl time.Duration, recorder httpclient.MetricsRecorder) (*common.PublicAdapter, *common.PrivateAdapter, error) {
	stack, err := common.NewStack(name, baseURLs, 50*time.Millisecond, httpclient.DefaultRetryPolicy(), creds, signing.SHA256, recorder)
	if err != nil {
		return nil, nil, err
	}
	accept := common.AcceptEnvelope(okStatus)
	pub := common.NewPublicAdapter(name, stack, vault, endpoints, accept, ttl, true)
	priv := common.NewPrivateAdapter("main", stack, pub, endpoints, accept, "KC-API-KEY", "KC-API-SIGN", true)
	return pub, priv, nil
}
