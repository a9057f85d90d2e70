// Package binance wires Binance's endpoint table and signing convention
// into the generic adapters of pkg/exchange/adapters/common. Binance has
// no envelope status field on success; a 200 with a decodable body is
// itself the accept signal, and failures are non-2xx JSON error bodies
// that httpclient.Query's transport-error path already handles.
package binance

import (
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/common"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/signing"
)

const name = "binance"

var baseURLs = []string{"https://api.binance.com", "https://api1.binance.com", "https://api2.binance.com"}

var endpoints = common.Endpoints{
	Ping:           "/api/v3/ping",
	Markets:        "/api/v3/exchangeInfo",
	Tickers:        "/api/v3/ticker/24hr",
	OrderBook:      "/api/v3/depth",
	Trades:         "/api/v3/trades",
	WithdrawalFees: "/sapi/v1/capital/config/getall",
	ValidateKey:    "/sapi/v1/account/apiRestrictions",
	Balance:        "/api/v3/account",
	DepositWallet:  "/sapi/v1/capital/deposit/address",
	OpenOrders:     "/api/v3/openOrders",
	ClosedOrders:   "/api/v3/allOrders",
	CancelOrder:    "/api/v3/order",
	PlaceOrder:     "/api/v3/order",
	OrderInfo:      "/api/v3/order",
	Deposits:       "/sapi/v1/capital/deposit/hisrec",
	Withdraws:      "/sapi/v1/capital/withdraw/history",
	LaunchWithdraw: "/sapi/v1/capital/withdraw/apply",
	WithdrawSent:   "/sapi/v1/capital/withdraw/history",
	WithdrawStatus: "/sapi/v1/capital/withdraw/history",
}

// New builds Binance's public and private adapters sharing one Stack.
// Binance rate-limits by request weight rather than flat spacing;
// minSpacing approximates a conservative floor until a weight-aware
// limiter is layered on top of httpclient.Client.
func New(creds common.Credentials, vault *cache.Vault, ttl time.Duration, recorder httpclient.MetricsRecorder) (*common.PublicAdapter, *common.PrivateAdapter, error) {
	stack, err := common.NewStack(name, baseURLs, 50*time.Millisecond, httpclient.DefaultRetryPolicy(), creds, signing.SHA256, recorder)
	if err != nil {
		return nil, nil, err
	}
	accept := common.AcceptEnvelope("")
	pub := common.NewPublicAdapter(name, stack, vault, endpoints, accept, ttl, true)
	priv := common.NewPrivateAdapter("main", stack, pub, endpoints, accept, "X-MBX-APIKEY", "signature", true)
	return pub, priv, nil
}
