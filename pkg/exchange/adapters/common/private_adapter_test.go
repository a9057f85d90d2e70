package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/cache/snapshot"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/money"
	"github.com/sjanel/coincenter/pkg/signing"
)

func newTestPrivateAdapter(t *testing.T, mux map[string]http.HandlerFunc) *PrivateAdapter {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := mux[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	s, err := NewStack("fakevenue", []string{srv.URL}, 0, httpclient.DefaultRetryPolicy(),
		Credentials{APIKey: "key", APISecret: "secret"}, signing.SHA256, nil)
	if err != nil {
		t.Fatalf("NewStack: %v", err)
	}
	vault := cache.NewVault("fakevenue", snapshot.NewMemoryStore())
	endpoints := Endpoints{
		Markets:       "/markets",
		Tickers:       "/tickers",
		ValidateKey:   "/validate",
		Balance:       "/balance",
		DepositWallet: "/wallet",
		OpenOrders:    "/orders/open",
		ClosedOrders:  "/orders/closed",
		PlaceOrder:    "/order/place",
		CancelOrder:   "/order/cancel",
		OrderInfo:     "/order/info",
	}
	pub := NewPublicAdapter("fakevenue", s, vault, endpoints, AcceptEnvelope(""), time.Minute, true)
	return NewPrivateAdapter("main", s, pub, endpoints, AcceptEnvelope(""), "X-API-KEY", "X-SIGNATURE", true)
}

func TestPrivateAdapterValidateAPIKey(t *testing.T) {
	a := newTestPrivateAdapter(t, map[string]http.HandlerFunc{
		"/validate": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(APIKeyValidationResponse{Valid: true})
		},
	})
	ok, err := a.ValidateAPIKey()
	if err != nil || !ok {
		t.Fatalf("ValidateAPIKey = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestPrivateAdapterAccountBalanceNoConversion(t *testing.T) {
	a := newTestPrivateAdapter(t, map[string]http.HandlerFunc{
		"/balance": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(BalanceResponse{
				Balances: []BalanceEntry{{Currency: "BTC", Available: "1.5"}, {Currency: "EUR", Available: "100"}},
			})
		},
	})
	bal, err := a.AccountBalance(currency.Neutral)
	if err != nil {
		t.Fatalf("AccountBalance: %v", err)
	}
	if len(bal) != 2 {
		t.Fatalf("got %d balances, want 2", len(bal))
	}
	if bal[currency.New("BTC")].String() != "1.5 BTC" {
		t.Errorf("BTC balance = %s, want 1.5 BTC", bal[currency.New("BTC")])
	}
}

func TestPrivateAdapterDepositWalletRefusedWhenUnsupported(t *testing.T) {
	a := newTestPrivateAdapter(t, nil)
	a.canDeposit = false
	_, err := a.DepositWallet(currency.New("BTC"))
	if err == nil {
		t.Fatal("expected an error when the venue cannot generate deposit addresses")
	}
}

func TestPrivateAdapterOpenedOrdersMarkedNotClosed(t *testing.T) {
	a := newTestPrivateAdapter(t, map[string]http.HandlerFunc{
		"/orders/open": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(OrdersResponse{
				Orders: []OrderEntry{{ID: "1", Base: "BTC", Quote: "EUR", Side: "buy", Price: "30000", Volume: "1", Filled: "0.5"}},
			})
		},
	})
	orders, err := a.OpenedOrders(exchange.OrderFilter{})
	if err != nil {
		t.Fatalf("OpenedOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].IsClosed {
		t.Fatalf("got %+v, want one open order", orders)
	}
}

func TestPrivateAdapterClosedOrdersMarkedClosed(t *testing.T) {
	a := newTestPrivateAdapter(t, map[string]http.HandlerFunc{
		"/orders/closed": func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(OrdersResponse{
				Orders: []OrderEntry{{ID: "2", Base: "BTC", Quote: "EUR", Side: "sell", Price: "30500", Volume: "2", Filled: "2"}},
			})
		},
	})
	orders, err := a.ClosedOrders(exchange.OrderFilter{})
	if err != nil {
		t.Fatalf("ClosedOrders: %v", err)
	}
	if len(orders) != 1 || !orders[0].IsClosed {
		t.Fatalf("got %+v, want one closed order", orders)
	}
}

func TestPrivateAdapterPlaceOrderRefusesSimulation(t *testing.T) {
	a := newTestPrivateAdapter(t, nil)
	eur := currency.New("EUR")
	btc := currency.New("BTC")
	amount, _ := money.Parse("30000", eur)
	volume, _ := money.Parse("1", btc)
	price, _ := money.Parse("30000", eur)
	_, err := a.PlaceOrder(amount, volume, price, exchange.PlaceOrderRequest{Simulate: true})
	if err == nil {
		t.Fatal("expected PlaceOrder to refuse a simulated order")
	}
}
