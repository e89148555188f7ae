package grpc

import (
	"sync"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
)

// pool keeps one client connection per peer.
type pool struct {
	mu    sync.Mutex
	opts  []grpc.DialOption
	conns map[address.Address]*grpc.ClientConn
}

func newPool(opts ...grpc.DialOption) *pool {
	return &pool{opts: opts, conns: make(map[address.Address]*grpc.ClientConn)}
}

func (p *pool) acquire(addr address.Address) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.conns[addr]; ok {
		return c, nil
	}
	c, err := grpc.Dial(addr.String(), p.opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "[grpc] - failed to dial %s", addr)
	}
	p.conns[addr] = c
	return c, nil
}

func (p *pool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	for addr, c := range p.conns {
		err = errors.CombineErrors(err, c.Close())
		delete(p.conns, addr)
	}
	return err
}
