package snapshot

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// PebbleStore is a Store backed by a Pebble key-value database, the same
// embedded store the rest of the teacher codebase uses for block and
// account persistence. Keys are namespaced "v:<vaultKey>" so a cache vault
// can share a database with other Pebble-backed state without collision.
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (creating if absent) a Pebble database at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble store at %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

// Close releases the underlying Pebble database handle.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

func snapshotKey(vaultKey string) []byte {
	return append([]byte("v:"), vaultKey...)
}

func (s *PebbleStore) Save(vaultKey string, data []byte) error {
	if err := s.db.Set(snapshotKey(vaultKey), data, pebble.Sync); err != nil {
		return fmt.Errorf("save snapshot %q: %w", vaultKey, err)
	}
	return nil
}

func (s *PebbleStore) Load(vaultKey string) ([]byte, bool, error) {
	val, closer, err := s.db.Get(snapshotKey(vaultKey))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot %q: %w", vaultKey, err)
	}
	defer closer.Close()
	cp := make([]byte, len(val))
	copy(cp, val)
	return cp, true, nil
}

var _ Store = (*PebbleStore)(nil)
