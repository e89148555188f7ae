package version

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const keyPrefix = "relay/version/"

// Pebble is a Store backed by a pebble database.
type Pebble struct {
	db    *pebble.DB
	owned bool
}

var _ Store = (*Pebble)(nil)

// OpenPebble opens (or creates) a pebble database in dirname on fs and returns
// a Store backed by it. Pass vfs.NewMem() to keep versions in memory. The
// database is closed along with the Store.
func OpenPebble(dirname string, fs vfs.FS) (*Pebble, error) {
	db, err := pebble.Open(dirname, &pebble.Options{FS: fs})
	if err != nil {
		return nil, errors.Wrap(err, "[version] - failed to open pebble")
	}
	return &Pebble{db: db, owned: true}, nil
}

// WrapPebble returns a Store backed by an existing pebble database. Closing the
// Store leaves the database open.
func WrapPebble(db *pebble.DB) *Pebble { return &Pebble{db: db} }

// Load implements Store.
func (p *Pebble) Load(key string) (Counter, error) {
	b, closer, err := p.db.Get(encodeKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "[version] - failed to load %s", key)
	}
	defer func() { _ = closer.Close() }()
	if len(b) != 8 {
		return 0, errors.Newf("[version] - corrupt version for %s", key)
	}
	return Counter(binary.BigEndian.Uint64(b)), nil
}

// Save implements Store.
func (p *Pebble) Save(key string, v Counter) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return errors.Wrapf(p.db.Set(encodeKey(key), b, pebble.Sync), "[version] - failed to save %s", key)
}

// Close closes the underlying database if the Store opened it.
func (p *Pebble) Close() error {
	if !p.owned {
		return nil
	}
	return p.db.Close()
}

func encodeKey(key string) []byte { return []byte(keyPrefix + key) }
