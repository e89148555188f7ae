package bucket

import (
	"context"

	"github.com/arya-analytics/relay/internal/address"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// |||||| ADMIN ||||||

// LocalBucket returns the local member's bucket.
func (s *Store[T]) LocalBucket(ctx context.Context) (b Bucket[T], err error) {
	err = s.do(ctx, func() { b = s.local.bucket })
	return b, err
}

// PeerView returns a snapshot of every bucket the store holds, including the
// local one.
func (s *Store[T]) PeerView(ctx context.Context) (v PeerView[T], err error) {
	err = s.do(ctx, func() { v = s.view })
	return v, err
}

// Digests returns the version of every bucket the store holds, including the
// local one.
func (s *Store[T]) Digests(ctx context.Context) (d Digests, err error) {
	err = s.do(ctx, func() { d = s.view.Versions() })
	return d, err
}

// Members returns the peers the store gossips with, in lexical order.
func (s *Store[T]) Members(ctx context.Context) (m []address.Address, err error) {
	err = s.do(ctx, func() {
		m = maps.Keys(s.members)
		slices.Sort(m)
	})
	return m, err
}

// Resync runs an exchange with every member and waits for all of them to
// finish. It returns the first error encountered.
func (s *Store[T]) Resync(ctx context.Context) error {
	var (
		peers []address.Address
		sync  Message
	)
	if err := s.do(ctx, func() {
		peers = maps.Keys(s.members)
		sync = s.sync()
	}); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, peer := range peers {
		peer := peer
		g.Go(func() error { return s.exchange(ctx, peer, sync) })
	}
	return g.Wait()
}
