// Package huobi wires Huobi's endpoint table and signing convention into
// the generic adapters of pkg/exchange/adapters/common. Huobi reports a
// "status":"ok" envelope on success and signs with HMAC-SHA256.
package huobi

import (
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/common"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/signing"
)

const name = "huobi"

const okStatus = "ok"

var baseURLs = []string{"https://api.huobi.pro", "https://api-aws.huobi.pro"}

var endpoints = common.Endpoints{
	Ping:           "/v2/market-status",
	Markets:        "/v1/common/symbols",
	Tickers:        "/market/tickers",
	OrderBook:      "/market/depth",
	Trades:         "/market/history/trade",
	WithdrawalFees: "/v2/reference/currencies",
	ValidateKey:    "/v2/user/api-key",
	Balance:        "/v1/account/accounts",
	DepositWallet:  "/v2/account/deposit/address",
	OpenOrders:     "/v1/order/openOrders",
	ClosedOrders:   "/v1/order/orders",
	CancelOrder:    "/v1/order/orders/submitcancel",
	PlaceOrder:     "/v1/order/orders/place",
	OrderInfo:      "/v1/order/orders/detail",
	Deposits:       "/v1/query/deposit-withdraw",
	Withdraws:      "/v1/query/deposit-withdraw",
	LaunchWithdraw: "/v1/dw/withdraw/api/create",
	WithdrawSent:   "/v1/query/deposit-withdraw",
	WithdrawStatus: "/v1/query/deposit-withdraw",
}

// New builds Huobi's public and private adapters sharing one Stack.
func New(creds common.Credentials, vault *cache.Vault, ttl time.Duration, recorder httpclient.MetricsRecorder) (*common.PublicAdapter, *common.PrivateAdapter, error) {
	stack, err := common.NewStack(name, baseURLs, 50*time.Millisecond, httpclient.DefaultRetryPolicy(), creds, signing.SHA256, recorder)
	if err != nil {
		return nil, nil, err
	}
	accept := common.AcceptEnvelope(okStatus)
	pub := common.NewPublicAdapter(name, stack, vault, endpoints, accept, ttl, true)
	priv := common.NewPrivateAdapter("main", stack, pub, endpoints, accept, "AccessKeyId", "Signature", true)
	return pub, priv, nil
}
