package kucoin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/cache/snapshot"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/common"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/signing"
)

func TestAccountBalanceConvertsReportedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(common.BalanceResponse{
			Envelope: common.Envelope{Status: okStatus},
			Balances: []common.BalanceEntry{{Currency: "USDT", Available: "500"}},
		})
	}))
	defer srv.Close()

	stack, err := common.NewStack(name, []string{srv.URL}, 0, httpclient.DefaultRetryPolicy(),
		common.Credentials{APIKey: "k", APISecret: "s"}, signing.SHA256, nil)
	if err != nil {
		t.Fatalf("NewStack: %v", err)
	}
	vault := cache.NewVault(name, snapshot.NewMemoryStore())
	accept := common.AcceptEnvelope(okStatus)
	pub := common.NewPublicAdapter(name, stack, vault, endpoints, accept, time.Minute, true)
	priv := common.NewPrivateAdapter("main", stack, pub, endpoints, accept, "KC-API-KEY", "KC-API-SIGN", true)

	bal, err := priv.AccountBalance(currency.Neutral)
	if err != nil {
		t.Fatalf("AccountBalance: %v", err)
	}
	if len(bal) != 1 {
		t.Fatalf("got %d balances, want 1", len(bal))
	}
	if bal[currency.New("USDT")].String() != "500 USDT" {
		t.Errorf("USDT balance = %s, want 500 USDT", bal[currency.New("USDT")])
	}
}
