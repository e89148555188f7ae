package bucket

import (
	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/version"
	iradix "github.com/hashicorp/go-immutable-radix"
)

type entry[T any] struct {
	bucket Bucket[T]
	// raw is the encoded form of the bucket's data, relayed verbatim to peers.
	raw []byte
}

// PeerView is an immutable snapshot of the most recent bucket known for each
// member. Snapshots are cheap to take and safe to retain; later changes to the
// Store never show up in a snapshot already handed out.
type PeerView[T any] struct {
	self address.Address
	tree *iradix.Tree
}

func newPeerView[T any](self address.Address) PeerView[T] {
	return PeerView[T]{self: self, tree: iradix.New()}
}

// Get returns the bucket held for addr.
func (v PeerView[T]) Get(addr address.Address) (Bucket[T], bool) {
	e, ok := v.entry(addr)
	return e.bucket, ok
}

// Len returns the number of buckets in the view.
func (v PeerView[T]) Len() int {
	if v.tree == nil {
		return 0
	}
	return v.tree.Len()
}

// ForEach calls fn for every bucket in the view, in lexical address order.
func (v PeerView[T]) ForEach(fn func(addr address.Address, b Bucket[T])) {
	v.walk(func(addr address.Address, e entry[T]) { fn(addr, e.bucket) })
}

// Addresses returns the address of every bucket in the view, in lexical order.
func (v PeerView[T]) Addresses() []address.Address {
	addrs := make([]address.Address, 0, v.Len())
	v.walk(func(addr address.Address, _ entry[T]) { addrs = append(addrs, addr) })
	return addrs
}

// Versions returns the version of every bucket in the view.
func (v PeerView[T]) Versions() map[address.Address]version.Counter {
	versions := make(map[address.Address]version.Counter, v.Len())
	v.walk(func(addr address.Address, e entry[T]) { versions[addr] = e.bucket.Version })
	return versions
}

// Remote returns a view without the local member's bucket.
func (v PeerView[T]) Remote() PeerView[T] {
	next, _ := v.without(v.self)
	return next
}

func (v PeerView[T]) entry(addr address.Address) (entry[T], bool) {
	if v.tree == nil {
		return entry[T]{}, false
	}
	e, ok := v.tree.Get([]byte(addr))
	if !ok {
		return entry[T]{}, false
	}
	return e.(entry[T]), true
}

func (v PeerView[T]) walk(fn func(addr address.Address, e entry[T])) {
	if v.tree == nil {
		return
	}
	v.tree.Root().Walk(func(k []byte, val interface{}) bool {
		fn(address.Address(k), val.(entry[T]))
		return false
	})
}

func (v PeerView[T]) with(addr address.Address, e entry[T]) PeerView[T] {
	tree, _, _ := v.tree.Insert([]byte(addr), e)
	return PeerView[T]{self: v.self, tree: tree}
}

func (v PeerView[T]) without(addr address.Address) (PeerView[T], bool) {
	if v.tree == nil {
		return v, false
	}
	tree, _, ok := v.tree.Delete([]byte(addr))
	return PeerView[T]{self: v.self, tree: tree}, ok
}
