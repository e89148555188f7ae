// Package mock builds clusters of in-memory relays for tests.
package mock

import (
	"sync"
	"time"

	"github.com/arya-analytics/relay"
	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/membership"
	"github.com/cockroachdb/errors"
)

// Builder opens relays on a shared in-memory network and keeps their views of
// cluster membership in sync.
type Builder struct {
	DefaultOptions []relay.Option
	Network        *Network
	mu             sync.Mutex
	addrs          *address.Factory
	nodes          map[address.Address]*relay.Relay
	feeds          map[address.Address]*membership.Feed
}

// NewMemBuilder returns a builder whose relays gossip over a mock network and
// keep their versions in memory.
func NewMemBuilder(defaultOpts ...relay.Option) *Builder {
	net := NewNetwork()
	return &Builder{
		Network: net,
		DefaultOptions: append([]relay.Option{
			relay.WithPropagationConfig(relay.PropagationConfig{GossipInterval: 20 * time.Millisecond}),
		}, defaultOpts...),
		addrs: address.NewLocalFactory(0),
		nodes: make(map[address.Address]*relay.Relay),
		feeds: make(map[address.Address]*membership.Feed),
	}
}

// New opens a relay and announces it to, and learns of, every relay already
// in the cluster.
func (b *Builder) New(opts ...relay.Option) (*relay.Relay, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	addr := b.addrs.Next()
	feed := membership.NewFeed()
	opts = append([]relay.Option{
		relay.WithTransport(b.Network.NewTransport()),
		relay.MemBacked(),
		relay.WithMembership(feed),
	}, append(b.DefaultOptions, opts...)...)
	r, err := relay.Open("", addr, opts...)
	if err != nil {
		feed.Close()
		return nil, err
	}
	for other, otherFeed := range b.feeds {
		otherFeed.Publish(membership.Event{Address: addr, Kind: membership.Joined})
		feed.Publish(membership.Event{Address: other, Kind: membership.Joined})
	}
	b.nodes[addr] = r
	b.feeds[addr] = feed
	return r, nil
}

// Nodes returns every open relay.
func (b *Builder) Nodes() []*relay.Relay {
	b.mu.Lock()
	defer b.mu.Unlock()
	nodes := make([]*relay.Relay, 0, len(b.nodes))
	for _, r := range b.nodes {
		nodes = append(nodes, r)
	}
	return nodes
}

// Leave closes the relay at addr and tells the rest of the cluster it left.
func (b *Builder) Leave(addr address.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.nodes[addr]
	if !ok {
		return errors.Newf("[mock] - no relay at %s", addr)
	}
	delete(b.nodes, addr)
	b.feeds[addr].Close()
	delete(b.feeds, addr)
	for _, feed := range b.feeds {
		feed.Publish(membership.Event{Address: addr, Kind: membership.Left})
	}
	return r.Close()
}

// Close closes every relay.
func (b *Builder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	for addr, r := range b.nodes {
		err = errors.CombineErrors(err, r.Close())
		b.feeds[addr].Close()
	}
	b.nodes = make(map[address.Address]*relay.Relay)
	b.feeds = make(map[address.Address]*membership.Feed)
	return err
}
