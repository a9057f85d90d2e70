// Package cache implements the CachedResult vault: functor-indexed
// memoization with TTL and single-flight semantics shared by every venue
// adapter's costly calls.
package cache

import (
	"fmt"
	"sync"

	"github.com/sjanel/coincenter/pkg/cache/snapshot"
)

// ResultIndex is the opaque handle a Vault hands out when a CachedResult
// registers with it. Callers never see a pointer into the vault's internal
// arena, only this index, matching the source's "vault of pointers into
// owned CachedResults" collapsed to an arena+index scheme.
type ResultIndex int

// registrant is the narrow interface a CachedResult exposes to its owning
// Vault so the vault can serialize and restore it without knowing its key
// or value type parameters.
type registrant interface {
	snapshotName() string
	marshalSnapshot() ([]byte, error)
	loadSnapshot(data []byte) error
}

// Vault is a lock domain grouping several CachedResults so a consistent
// snapshot can be taken across all of them at once. One vault is typically
// owned per adapter (spec.md's "two HttpClients, one CachedResult per
// costly call" layout). The vault lock is separate from each HttpClient's
// own lock: it serializes the CachedResults, not the HTTP requests.
type Vault struct {
	mu      sync.Mutex
	name    string
	store   snapshot.Store
	entries []registrant
}

// NewVault creates a Vault named name, persisting through store. Pass
// snapshot.NewMemoryStore() when durability isn't needed (most tests).
func NewVault(name string, store snapshot.Store) *Vault {
	return &Vault{name: name, store: store}
}

// register adds r to the arena and returns its opaque index. Intended to be
// called only from NewCachedResult.
func (v *Vault) register(r registrant) ResultIndex {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.entries = append(v.entries, r)
	return ResultIndex(len(v.entries) - 1)
}

// lock and unlock expose the vault's single lock domain to CachedResult
// (unexported, since CachedResult lives in the same package) rather than
// embedding sync.Mutex directly, so Vault can
// log/instrument locking later without changing CachedResult.
func (v *Vault) lock()   { v.mu.Lock() }
func (v *Vault) unlock() { v.mu.Unlock() }

// UpdateFileCaches serializes every registered CachedResult to the vault's
// snapshot.Store under a per-entry key scoped by the vault's name. Matches
// spec.md §4.5/§6: the vault guarantees a consistent per-vault snapshot: it
// holds its lock for the whole pass so no CachedResult can be mutated
// mid-serialization.
func (v *Vault) UpdateFileCaches() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.entries {
		data, err := e.marshalSnapshot()
		if err != nil {
			return fmt.Errorf("marshal snapshot for %s/%s: %w", v.name, e.snapshotName(), err)
		}
		key := v.name + ":" + e.snapshotName()
		if err := v.store.Save(key, data); err != nil {
			return fmt.Errorf("save snapshot for %s: %w", key, err)
		}
	}
	return nil
}

// LoadFileCaches restores every registered CachedResult from the vault's
// snapshot.Store, skipping entries with no prior snapshot. Intended to run
// once at startup before any Get call.
func (v *Vault) LoadFileCaches() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, e := range v.entries {
		key := v.name + ":" + e.snapshotName()
		data, found, err := v.store.Load(key)
		if err != nil {
			return fmt.Errorf("load snapshot for %s: %w", key, err)
		}
		if !found {
			continue
		}
		if err := e.loadSnapshot(data); err != nil {
			return fmt.Errorf("restore snapshot for %s: %w", key, err)
		}
	}
	return nil
}
