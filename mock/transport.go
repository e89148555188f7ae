package mock

import (
	"context"
	"sync"

	"github.com/arya-analytics/relay"
	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/bucket"
	"github.com/arya-analytics/relay/internal/transport"
	tmock "github.com/arya-analytics/relay/internal/transport/mock"
	"github.com/cockroachdb/errors"
)

// Network connects in-memory relay transports. Each store name gets its own
// network, mirroring the separate services of the gRPC transport.
type Network struct {
	mu   sync.Mutex
	nets map[string]*tmock.Network[bucket.Message, bucket.Message]
}

func NewNetwork() *Network {
	return &Network{nets: make(map[string]*tmock.Network[bucket.Message, bucket.Message])}
}

func (n *Network) gossip(name string) *tmock.Network[bucket.Message, bucket.Message] {
	n.mu.Lock()
	defer n.mu.Unlock()
	net, ok := n.nets[name]
	if !ok {
		net = tmock.NewNetwork[bucket.Message, bucket.Message]()
		n.nets[name] = net
	}
	return net
}

// Partition makes the member at addr unreachable on every network.
func (n *Network) Partition(addr address.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, net := range n.nets {
		net.Partition(addr)
	}
}

// Heal reverses a Partition.
func (n *Network) Heal(addr address.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, net := range n.nets {
		net.Heal(addr)
	}
}

func (n *Network) NewTransport() relay.Transport {
	return &Transport{net: n, stores: make(map[string]*unary)}
}

// Transport is an in-memory, synchronous implementation of relay.Transport.
type Transport struct {
	net    *Network
	mu     sync.Mutex
	addr   address.Address
	stores map[string]*unary
}

var _ relay.Transport = (*Transport)(nil)

// String implements relay.Transport.
func (t *Transport) String() string { return "mock" }

// Gossip implements relay.Transport.
func (t *Transport) Gossip(name string) bucket.Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	u, ok := t.stores[name]
	if !ok {
		u = &unary{name: name}
		t.stores[name] = u
	}
	return u
}

// Configure implements relay.Transport.
func (t *Transport) Configure(_ context.Context, addr address.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addr = addr
	for name, u := range t.stores {
		u.bind(t.net.gossip(name).Route(addr))
	}
	return nil
}

// Close takes the transport off the network.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name := range t.stores {
		t.net.gossip(name).Remove(t.addr)
	}
	return nil
}

// unary binds to its network route once the transport is configured.
type unary struct {
	name    string
	mu      sync.RWMutex
	route   *tmock.Unary[bucket.Message, bucket.Message]
	handler func(context.Context, bucket.Message) (bucket.Message, error)
}

func (u *unary) String() string { return "mock" }

func (u *unary) Handle(handler func(context.Context, bucket.Message) (bucket.Message, error)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handler = handler
	if u.route != nil {
		u.route.Handle(handler)
	}
}

func (u *unary) bind(route *tmock.Unary[bucket.Message, bucket.Message]) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.route = route
	if u.handler != nil {
		route.Handle(u.handler)
	}
}

func (u *unary) Send(ctx context.Context, addr address.Address, req bucket.Message) (bucket.Message, error) {
	u.mu.RLock()
	route := u.route
	u.mu.RUnlock()
	if route == nil {
		return bucket.Message{}, errors.Wrapf(transport.ErrUnreachable, "%s transport not configured", u.name)
	}
	return route.Send(ctx, addr, req)
}
