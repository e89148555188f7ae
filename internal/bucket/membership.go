package bucket

import (
	"context"

	"github.com/arya-analytics/relay/internal/address"
	"go.uber.org/zap"
)

// MemberJoined adds addr to the set of peers the store gossips with, and starts
// an exchange with it so the new member converges without waiting for the next
// tick.
func (s *Store[T]) MemberJoined(ctx context.Context, addr address.Address) error {
	return s.post(ctx, func() {
		if addr == s.Address {
			return
		}
		if _, ok := s.members[addr]; ok {
			return
		}
		s.members[addr] = struct{}{}
		s.logger.Debug("member joined", zap.Stringer("peer", addr))
		sync := s.sync()
		s.goGossip(func(ctx context.Context) {
			if err := s.exchange(ctx, addr, sync); err != nil {
				s.logExchangeErr(addr, err)
			}
		})
	})
}

// MemberLeft drops addr and its bucket from the store, and calls the
// OnBucketRemoved callbacks once. Repeated calls for the same member are no-ops
// until it joins again. If addr is the local member, the store stops.
func (s *Store[T]) MemberLeft(ctx context.Context, addr address.Address) error {
	return s.post(ctx, func() {
		if addr == s.Address {
			s.selfRemoved = true
			return
		}
		_, wasMember := s.members[addr]
		delete(s.members, addr)
		var hadBucket bool
		s.view, hadBucket = s.view.without(addr)
		if !wasMember && !hadBucket {
			return
		}
		s.logger.Debug("member left", zap.Stringer("peer", addr), zap.Bool("hadBucket", hadBucket))
		s.metrics.removed.Inc()
		s.metrics.peers.Set(float64(s.view.Len() - 1))
		for _, fn := range s.onRemoved {
			fn(addr)
		}
	})
}

func (s *Store[T]) isMember(addr address.Address) bool {
	_, ok := s.members[addr]
	return ok
}
