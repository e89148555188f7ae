package bucket

import (
	"context"
	"math/rand"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// tick starts an anti-entropy exchange with a random member. Must be called
// from the mailbox.
func (s *Store[T]) tick() {
	peer, ok := s.randomMember()
	if !ok {
		return
	}
	sync := s.sync()
	s.goGossip(func(ctx context.Context) {
		if err := s.exchange(ctx, peer, sync); err != nil {
			s.logExchangeErr(peer, err)
		}
	})
}

func (s *Store[T]) randomMember() (address.Address, bool) {
	if len(s.members) == 0 {
		return "", false
	}
	peers := maps.Keys(s.members)
	slices.Sort(peers)
	return peers[rand.Intn(len(peers))], true
}

// sync builds the opening message of an exchange. Must be called from the
// mailbox.
func (s *Store[T]) sync() Message {
	return Message{Variant: VariantSync, From: s.Address, Digests: s.view.Versions()}
}

// exchange runs one Sync/Ack/Ack2 exchange with peer. Runs outside of the
// mailbox.
func (s *Store[T]) exchange(ctx context.Context, peer address.Address, sync Message) error {
	s.metrics.exchanges.Inc()
	s.logger.Debug("gossip",
		zap.Stringer("peer", peer),
		zap.Int("digests", len(sync.Digests)),
	)
	ack, err := s.Transport.Send(ctx, peer, sync)
	if err != nil {
		s.sendFailed(peer, err)
		return errors.Wrapf(err, "[bucket] - sync with %s failed", peer)
	}
	if ack.Variant != VariantAck {
		return errors.Wrapf(ErrInvalidVariant, "expected ack from %s, got %s", peer, ack.Variant)
	}
	var ack2 Message
	if err := s.do(ctx, func() { ack2 = s.ack(ack) }); err != nil {
		return err
	}
	if ack2.Empty() {
		return nil
	}
	if _, err := s.Transport.Send(ctx, peer, ack2); err != nil {
		s.sendFailed(peer, err)
		return errors.Wrapf(err, "[bucket] - ack2 to %s failed", peer)
	}
	return nil
}

// handle processes gossip arriving from a peer. Gossip is refused until the
// store starts and after it stops.
func (s *Store[T]) handle(ctx context.Context, msg Message) (res Message, err error) {
	if ctx.Err() != nil {
		return Message{}, ctx.Err()
	}
	switch s.State() {
	case StateInitializing:
		return Message{}, ErrNotStarted
	case StateStopped:
		return Message{}, ErrStopped
	}
	switch msg.Variant {
	case VariantSync:
		err = s.do(ctx, func() { res = s.respond(msg) })
	case VariantAck2:
		err = s.do(ctx, func() { s.merge(msg.From, msg.Buckets) })
	default:
		err = errors.Wrapf(ErrInvalidVariant, "unexpected %s from %s", msg.Variant, msg.From)
	}
	return res, err
}

// respond answers a Sync with the buckets the initiator is missing or holds an
// older version of, and requests the buckets the initiator holds newer versions
// of. Syncs from non-members get an empty Ack. Must be called from the mailbox.
func (s *Store[T]) respond(sync Message) Message {
	ack := Message{Variant: VariantAck, From: s.Address}
	if !s.isMember(sync.From) {
		s.logger.Debug("ignoring sync from non-member", zap.Stringer("from", sync.From))
		return ack
	}
	ack.Buckets = make(map[address.Address]Encoded)
	ack.Digests = make(Digests)
	for addr, theirs := range sync.Digests {
		e, ok := s.view.entry(addr)

		// If we have a more recent version of the bucket, return it to the
		// initiator.
		if ok && e.bucket.Version.NewerThan(theirs) {
			ack.Buckets[addr] = e.encoded()
		}

		// If we don't have the bucket or our version is out of date, ask the
		// initiator for it.
		if (!ok || e.bucket.Version.OlderThan(theirs)) && s.wants(addr) {
			ack.Digests[addr] = e.bucket.Version
		}
	}
	s.view.walk(func(addr address.Address, e entry[T]) {
		// If we have a bucket that the initiator doesn't, send it to them.
		if _, ok := sync.Digests[addr]; !ok {
			ack.Buckets[addr] = e.encoded()
		}
	})
	return ack
}

// ack merges the peer's response and returns the buckets it requested. Must be
// called from the mailbox.
func (s *Store[T]) ack(ack Message) Message {
	s.merge(ack.From, ack.Buckets)
	ack2 := Message{Variant: VariantAck2, From: s.Address, Buckets: make(map[address.Address]Encoded)}
	for addr, theirs := range ack.Digests {
		// The peer only asks for buckets it is missing or holds an older
		// version of, so anything not older than its digest is news to it.
		if e, ok := s.view.entry(addr); ok && !e.bucket.Version.OlderThan(theirs) {
			ack2.Buckets[addr] = e.encoded()
		}
	}
	return ack2
}

// wants returns true if a bucket owned by addr would be accepted.
func (s *Store[T]) wants(addr address.Address) bool {
	return addr != s.Address && s.isMember(addr)
}

func (s *Store[T]) sendFailed(peer address.Address, err error) {
	s.metrics.sendFailures.Inc()
	s.logger.Debug("failed to reach peer", zap.Stringer("peer", peer), zap.Error(err))
}

func (s *Store[T]) logExchangeErr(peer address.Address, err error) {
	if errors.Is(err, ErrStopped) || errors.Is(err, ErrNotStarted) || errors.Is(err, context.Canceled) {
		s.logger.Debug("exchange interrupted", zap.Stringer("peer", peer), zap.Error(err))
		return
	}
	s.logger.Warn("exchange failed", zap.Stringer("peer", peer), zap.Error(err))
}
