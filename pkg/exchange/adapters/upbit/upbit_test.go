package upbit

import (
	"testing"
	"time"

	"github.com/sjanel/coincenter/pkg/cache"
	"github.com/sjanel/coincenter/pkg/cache/snapshot"
	"github.com/sjanel/coincenter/pkg/currency"
	"github.com/sjanel/coincenter/pkg/exchange/adapters/common"
)

func TestNewRefusesDepositWalletGeneration(t *testing.T) {
	_, priv, err := New(common.Credentials{}, cache.NewVault(name, snapshot.NewMemoryStore()), time.Minute, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if priv.CanGenerateDepositAddress() {
		t.Fatal("expected Upbit adapter to report it cannot generate deposit addresses")
	}
	if _, err := priv.DepositWallet(currency.New("BTC")); err == nil {
		t.Fatal("expected DepositWallet to refuse since CanGenerateDepositAddress is false")
	}
}
