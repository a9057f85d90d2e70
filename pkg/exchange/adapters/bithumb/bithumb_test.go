package bithumb

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/cache/snapshot"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/common"
	"github.com/sjanel/coincenter/pkg/httpclient"
	"github.com/sjanel/coincenter/pkg/signing"
)

func TestAcceptRejectsNonZeroStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(common.PingResponse{Envelope: common.Envelope{Status: "5600"}})
	}))
	defer srv.Close()

	stack, err := common.NewStack(name, []string{srv.URL}, 0, httpclient.DefaultRetryPolicy(), common.Credentials{}, signing.SHA512, nil)
	if err != nil {
		t.Fatalf("NewStack: %v", err)
	}
	vault := cache.NewVault(name, snapshot.NewMemoryStore())
	pub := common.NewPublicAdapter(name, stack, vault, endpoints, common.AcceptEnvelope(okStatus), time.Minute, true)

	ok, err := pub.HealthCheck()
	if ok || err == nil {
		t.Fatalf("HealthCheck = (%v, %v), want failure since status %q != %q", ok, err, "5600", okStatus)
	}
}

func TestAcceptAllowsOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(common.PingResponse{Envelope: common.Envelope{Status: okStatus}})
	}))
	defer srv.Close()

	stack, err := common.NewStack(name, []string{srv.URL}, 0, httpclient.DefaultRetryPolicy(), common.Credentials{}, signing.SHA512, nil)
	if err != nil {
		t.Fatalf("NewStack: %v", err)
	}
	vault := cache.NewVault(name, snapshot.NewMemoryStore())
	pub := common.NewPublicAdapter(name, stack, vault, endpoints, common.AcceptEnvelope(okStatus), time.Minute, true)

	ok, err := pub.HealthCheck()
	if !ok || err != nil {
		t.Fatalf("HealthCheck = (%v, %v), want (true, nil)", ok, err)
	}
}
