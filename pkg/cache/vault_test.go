package cache

import (
	"testing"
	"time"

	"github.com/sjanel/coincenter/pkg/cache/snapshot"
)

func TestRegisterAssignsSequentialIndices(t *testing.T) {
	vault := NewVault("adapter", snapshot.NewMemoryStore())
	a := NewCachedResult(vault, "a", time.Minute, 4, func(k int) (int, error) { return k, nil })
	b := NewCachedResult(vault, "b", time.Minute, 4, func(k int) (int, error) { return k, nil })

	if a.Index() != 0 {
		t.Errorf("a.Index() = %d, want 0", a.Index())
	}
	if b.Index() != 1 {
		t.Errorf("b.Index() = %d, want 1", b.Index())
	}
}

func TestUpdateFileCachesCoversEveryRegisteredEntry(t *testing.T) {
	store := snapshot.NewMemoryStore()
	vault := NewVault("adapter", store)
	balances := NewCachedResult(vault, "balances", time.Hour, 4, func(k string) (int, error) { return 1, nil })
	orders := NewCachedResult(vault, "orders", time.Hour, 4, func(k string) (int, error) { return 2, nil })

	if _, err := balances.Get("x"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := orders.Get("y"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if err := vault.UpdateFileCaches(); err != nil {
		t.Fatalf("UpdateFileCaches: %v", err)
	}

	if _, found, _ := store.Load("adapter:balances"); !found {
		t.Error("expected a snapshot under adapter:balances")
	}
	if _, found, _ := store.Load("adapter:orders"); !found {
		t.Error("expected a snapshot under adapter:orders")
	}
}
