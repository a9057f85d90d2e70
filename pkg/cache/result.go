package cache

import (
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// entry is what a CachedResult stores per argument tuple: the computed
// value and when it was computed.
type entry[V any] struct {
	Value     V
	StampedAt time.Time
}

// snapshotRecord is the JSON-serializable form of one CachedResult's
// contents, used only by marshalSnapshot/loadSnapshot.
type snapshotRecord[K comparable, V any] struct {
	Key   K
	Entry entry[V]
}

// CachedResult memoizes F(k...) -> V with TTL and single-flight semantics:
// concurrent Get calls for the same key invoke F at most once, and a value
// younger than TTL is returned without recomputation. K is the functor's
// argument tuple (commonly a struct of the call's parameters); V is its
// result.
//
// A CachedResult never holds its own lock: Get takes the owning Vault's
// lock for the map lookup/store and releases it before calling F, so a
// slow network call never blocks unrelated CachedResults sharing the
// vault.
type CachedResult[K comparable, V any] struct {
	vault *Vault
	index ResultIndex
	name  string
	ttl   time.Duration
	fn    func(K) (V, error)

	group singleflight.Group
	cache *lru.Cache[K, entry[V]]
}

// NewCachedResult registers a new CachedResult named name on vault. maxSize
// bounds how many distinct argument tuples are memoized at once (an LRU
// eviction policy on top of the spec's TTL expiry, since a vault may be
// asked to remember an unbounded number of distinct symbols/accounts over a
// long-running process). fn computes the value on a miss or expiry.
func NewCachedResult[K comparable, V any](vault *Vault, name string, ttl time.Duration, maxSize int, fn func(K) (V, error)) *CachedResult[K, V] {
	lruCache, err := lru.New[K, entry[V]](maxSize)
	if err != nil {
		// Only invalid (<=0) sizes reach here; maxSize is a compile-time
		// constant at every call site in this codebase.
		panic(fmt.Sprintf("cache: invalid maxSize %d for %q: %v", maxSize, name, err))
	}
	cr := &CachedResult[K, V]{
		vault: vault,
		name:  name,
		ttl:   ttl,
		fn:    fn,
		cache: lruCache,
	}
	cr.index = vault.register(cr)
	return cr
}

// Index returns the opaque handle this CachedResult was registered under.
func (c *CachedResult[K, V]) Index() ResultIndex { return c.index }

func (c *CachedResult[K, V]) peek(k K) (entry[V], bool, bool) {
	c.vault.lock()
	defer c.vault.unlock()
	e, ok := c.cache.Get(k)
	if !ok {
		return entry[V]{}, false, false
	}
	fresh := time.Since(e.StampedAt) < c.ttl
	return e, true, fresh
}

func (c *CachedResult[K, V]) store(k K, v V, stampedAt time.Time) entry[V] {
	e := entry[V]{Value: v, StampedAt: stampedAt}
	c.vault.lock()
	c.cache.Add(k, e)
	c.vault.unlock()
	return e
}

// Get returns the memoized value for k, computing it via fn if absent or
// stale. Concurrent Get calls for the same k collapse into a single fn
// invocation; the rest observe its result.
func (c *CachedResult[K, V]) Get(k K) (V, error) {
	if e, found, fresh := c.peek(k); found && fresh {
		return e.Value, nil
	}

	sfKey := fmt.Sprint(k)
	v, err, _ := c.group.Do(sfKey, func() (any, error) {
		value, err := c.fn(k)
		if err != nil {
			return entry[V]{}, err
		}
		return c.store(k, value, time.Now()), nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(entry[V]).Value, nil
}

// Retrieve returns the memoized value for k without ever invoking fn.
// stampedAt is the zero time and found is false if nothing is cached.
func (c *CachedResult[K, V]) Retrieve(k K) (value V, stampedAt time.Time, found bool) {
	e, ok, _ := c.peek(k)
	if !ok {
		return value, stampedAt, false
	}
	return e.Value, e.StampedAt, true
}

// Invalidate drops the memoized value for k, forcing the next Get to
// recompute it.
func (c *CachedResult[K, V]) Invalidate(k K) {
	c.vault.lock()
	defer c.vault.unlock()
	c.cache.Remove(k)
}

func (c *CachedResult[K, V]) snapshotName() string { return c.name }

// marshalSnapshot and loadSnapshot are called by Vault with its lock
// already held (see Vault.UpdateFileCaches/LoadFileCaches), so they must
// not lock c.vault themselves.
func (c *CachedResult[K, V]) marshalSnapshot() ([]byte, error) {
	keys := c.cache.Keys()
	records := make([]snapshotRecord[K, V], 0, len(keys))
	for _, k := range keys {
		if e, ok := c.cache.Peek(k); ok {
			records = append(records, snapshotRecord[K, V]{Key: k, Entry: e})
		}
	}
	return json.Marshal(records)
}

func (c *CachedResult[K, V]) loadSnapshot(data []byte) error {
	var records []snapshotRecord[K, V]
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	for _, r := range records {
		c.cache.Add(r.Key, r.Entry)
	}
	return nil
}
