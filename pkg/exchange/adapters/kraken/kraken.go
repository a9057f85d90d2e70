// Package kraken wires Kraken's endpoint table and signing convention
// into the generic adapters of pkg/exchange/adapters/common. Kraken's
// public endpoints have no envelope status field (a decodable 200 body is
// success); Kraken signs with HMAC-SHA512, per spec.md §4.8.
package kraken

import (
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/common"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/signing"
)

const name = "kraken"

var baseURLs = []string{"https://api.kraken.com"}

var endpoints = common.Endpoints{
	Ping:           "/0/public/SystemStatus",
	Markets:        "/0/public/AssetPairs",
	Tickers:        "/0/public/Ticker",
	OrderBook:      "/0/public/Depth",
	Trades:         "/0/public/Trades",
	WithdrawalFees: "/0/private/WithdrawInfo",
	ValidateKey:    "/0/private/GetWebSocketsToken",
	Balance:        "/0/private/Balance",
	DepositWallet:  "/0/private/DepositAddresses",
	OpenOrders:     "/0/private/OpenOrders",
	ClosedOrders:   "/0/private/ClosedOrders",
	CancelOrder:    "/0/private/CancelOrder",
	PlaceOrder:     "/0/private/AddOrder",
	OrderInfo:      "/0/private/QueryOrders",
	Deposits:       "/0/private/DepositStatus",
	Withdraws:      "/0/private/WithdrawStatus",
	LaunchWithdraw: "/0/private/Withdraw",
	WithdrawSent:   "/0/private/WithdrawStatus",
	WithdrawStatus: "/0/private/WithdrawStatus",
}

// New builds Kraken's public and private adapters sharing one Stack.
func New(creds common.Credentials, vault *cache.Vault, ttl time.Duration, recorder httpclient.MetricsRecorder) (*common.PublicAdapter, *common.PrivateAdapter, error) {
	stack, err := common.NewStack(name, baseURLs, 100*time.Millisecond, httpclient.DefaultRetryPolicy(), creds, signing.SHA512, recorder)
	if err != nil {
		return nil, nil, err
	}
	accept := common.AcceptEnvelope("")
	pub := common.NewPublicAdapter(name, stack, vault, endpoints, accept, ttl, true)
	priv := common.NewPrivateAdapter("main", stack, pub, endpoints, accept, "API-Key", "API-Sign", true)
	return pub, priv, nil
}
