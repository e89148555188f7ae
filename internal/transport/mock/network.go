// Package mock implements an in-memory transport.Unary for tests. Every
// transport routed on the same Network can reach every other.
package mock

import (
	"context"
	"sync"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/transport"
	"github.com/cockroachdb/errors"
)

// Network routes requests between in-memory transports.
type Network[I, O any] struct {
	mu          sync.RWMutex
	routes      map[address.Address]*Unary[I, O]
	partitioned map[address.Address]bool
	factory     *address.Factory
	sent        int
}

// NewNetwork returns an empty network.
func NewNetwork[I, O any]() *Network[I, O] {
	return &Network[I, O]{
		routes:      make(map[address.Address]*Unary[I, O]),
		partitioned: make(map[address.Address]bool),
		factory:     address.NewLocalFactory(0),
	}
}

// Route returns a transport reachable at addr. If addr is empty, a unique
// address is generated.
func (n *Network[I, O]) Route(addr address.Address) *Unary[I, O] {
	n.mu.Lock()
	defer n.mu.Unlock()
	if addr == "" {
		addr = n.factory.Next()
	}
	t := &Unary[I, O]{Address: addr, network: n}
	n.routes[addr] = t
	return t
}

// Remove takes the transport at addr off the network.
func (n *Network[I, O]) Remove(addr address.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.routes, addr)
}

// Partition makes addr unreachable in both directions until Heal is called.
func (n *Network[I, O]) Partition(addr address.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partitioned[addr] = true
}

// Heal reverses a Partition.
func (n *Network[I, O]) Heal(addr address.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.partitioned, addr)
}

// Sent returns the number of requests delivered so far.
func (n *Network[I, O]) Sent() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sent
}

func (n *Network[I, O]) resolve(from, to address.Address) (*Unary[I, O], error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.partitioned[from] || n.partitioned[to] {
		return nil, errors.Wrapf(transport.ErrUnreachable, "%s is partitioned", to)
	}
	t, ok := n.routes[to]
	if !ok {
		return nil, errors.Wrapf(transport.ErrUnreachable, "no route to %s", to)
	}
	n.sent++
	return t, nil
}

// Unary is an in-memory transport.Unary.
type Unary[I, O any] struct {
	Address address.Address
	network *Network[I, O]
	mu      sync.RWMutex
	handler func(context.Context, I) (O, error)
}

var _ transport.Unary[int, int] = (*Unary[int, int])(nil)

// String implements transport.Unary.
func (u *Unary[I, O]) String() string { return "mock" }

// Handle implements transport.Unary.
func (u *Unary[I, O]) Handle(handler func(context.Context, I) (O, error)) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.handler = handler
}

// Send implements transport.Unary.
func (u *Unary[I, O]) Send(ctx context.Context, addr address.Address, req I) (res O, err error) {
	if err = ctx.Err(); err != nil {
		return res, err
	}
	target, err := u.network.resolve(u.Address, addr)
	if err != nil {
		return res, err
	}
	target.mu.RLock()
	h := target.handler
	target.mu.RUnlock()
	if h == nil {
		return res, errors.Wrapf(transport.ErrUnreachable, "%s has no handler", addr)
	}
	return h(ctx, req)
}
