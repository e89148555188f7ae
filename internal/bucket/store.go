package bucket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/version"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Store replicates the local member's bucket to its peers and maintains a
// view of the peers' buckets.
//
// All state is owned by a single goroutine, the mailbox, which processes local
// updates, inbound gossip, anti-entropy ticks, and membership changes one at a
// time. Callbacks run on the mailbox goroutine, so they observe changes in the
// order they were applied and must not call back into the Store synchronously.
type Store[T any] struct {
	Config
	codec   Codec[T]
	logger  *zap.Logger
	metrics *metrics

	state    int32
	requests chan func()
	stopped  chan struct{}
	done     chan struct{}
	halt     sync.Once
	cancel   context.CancelFunc
	// wg tracks goroutines spawned from the mailbox.
	wg sync.WaitGroup
	mu sync.Mutex

	// |||| MAILBOX STATE ||||

	ctx         context.Context
	local       entry[T]
	view        PeerView[T]
	members     map[address.Address]struct{}
	selfRemoved bool
	onUpdated   []func(PeerView[T])
	onRemoved   []func(address.Address)
}

// New creates a Store whose local bucket starts out holding initial. The store
// doesn't gossip until Start is called.
func New[T any](codec Codec[T], initial T, cfg Config) (*Store[T], error) {
	cfg = cfg.Merge(DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m, err := newMetrics(cfg.Name, cfg.Metrics)
	if err != nil {
		return nil, err
	}
	s := &Store[T]{
		Config:   cfg,
		codec:    codec,
		logger:   cfg.Logger.With(zap.String("store", cfg.Name), zap.Stringer("host", cfg.Address)),
		metrics:  m,
		state:    int32(StateInitializing),
		requests: make(chan func(), cfg.MailboxSize),
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
		view:     newPeerView[T](cfg.Address),
		members:  make(map[address.Address]struct{}),
	}
	v, err := s.initialVersion()
	if err != nil {
		return nil, err
	}
	if err := s.setLocal(initial, v); err != nil {
		return nil, err
	}
	s.Transport.Handle(s.handle)
	return s, nil
}

// initialVersion returns 0 when versions aren't persisted. Otherwise it returns
// one past the persisted high-water mark, so that peers holding the previous
// incarnation's bucket replace it.
func (s *Store[T]) initialVersion() (version.Counter, error) {
	if s.Versions == nil {
		return 0, nil
	}
	v, err := s.Versions.Load(s.Name)
	if err != nil {
		return 0, err
	}
	v = v.Increment()
	return v, s.Versions.Save(s.Name, v)
}

// State returns the lifecycle state of the store.
func (s *Store[T]) State() State { return State(atomic.LoadInt32(&s.state)) }

// OnBucketsUpdated registers fn to be called after one or more peer buckets
// change. fn receives the full view of peer buckets, excluding the local one.
// Panics if the store has already started.
func (s *Store[T]) OnBucketsUpdated(fn func(PeerView[T])) {
	s.mustBeInitializing()
	s.onUpdated = append(s.onUpdated, fn)
}

// OnBucketRemoved registers fn to be called once each time a peer leaves the
// cluster. Panics if the store has already started.
func (s *Store[T]) OnBucketRemoved(fn func(address.Address)) {
	s.mustBeInitializing()
	s.onRemoved = append(s.onRemoved, fn)
}

func (s *Store[T]) mustBeInitializing() {
	if s.State() != StateInitializing {
		panic("[bucket] - callbacks must be registered before the store starts")
	}
}

// Start launches the mailbox and the anti-entropy ticker. The store stops when
// ctx is cancelled or Stop is called.
func (s *Store[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !atomic.CompareAndSwapInt32(&s.state, int32(StateInitializing), int32(StateActive)) {
		if s.State() == StateStopped {
			return ErrStopped
		}
		return errors.New("[bucket] - store already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	go s.run()
	s.logger.Debug("store started", zap.Uint64("version", uint64(s.local.bucket.Version)))
	return nil
}

// Stop shuts the store down and waits for in-flight gossip to finish. Stop is
// idempotent.
func (s *Store[T]) Stop() error {
	s.mu.Lock()
	started := s.cancel != nil
	s.mu.Unlock()
	s.shutdown()
	if started {
		<-s.done
	}
	s.wg.Wait()
	return nil
}

func (s *Store[T]) shutdown() {
	s.halt.Do(func() {
		atomic.StoreInt32(&s.state, int32(StateStopped))
		close(s.stopped)
		s.mu.Lock()
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Unlock()
		s.logger.Debug("store stopped")
	})
}

func (s *Store[T]) run() {
	defer close(s.done)
	defer s.shutdown()
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.stopped:
			return
		case fn := <-s.requests:
			fn()
			if s.selfRemoved {
				s.logger.Info("local member left the cluster, stopping")
				return
			}
		case <-t.C:
			s.tick()
		}
	}
}

// post enqueues fn on the mailbox without waiting for it to run.
func (s *Store[T]) post(ctx context.Context, fn func()) error {
	if s.State() == StateStopped {
		return ErrStopped
	}
	select {
	case s.requests <- fn:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do enqueues fn on the mailbox and waits for it to run.
func (s *Store[T]) do(ctx context.Context, fn func()) error {
	ran := make(chan struct{})
	if err := s.post(ctx, func() { fn(); close(ran) }); err != nil {
		return err
	}
	select {
	case <-ran:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// goGossip runs fn in a goroutine tracked by the store. Must be called from
// the mailbox.
func (s *Store[T]) goGossip(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// |||||| LOCAL ||||||

// UpdateLocal enqueues a change to the local bucket. fn receives the current
// local data and returns its replacement; the bucket's version is incremented
// and the new bucket is pushed to every peer. UpdateLocal returns once the
// change is enqueued, not once it has been applied or disseminated.
func (s *Store[T]) UpdateLocal(ctx context.Context, fn func(T) T) error {
	return s.post(ctx, func() { s.updateLocal(fn) })
}

func (s *Store[T]) updateLocal(fn func(T) T) {
	next := s.local.bucket.Version.Increment()
	if err := s.setLocal(fn(s.local.bucket.Data), next); err != nil {
		s.logger.Error("failed to update local bucket", zap.Error(err))
		return
	}
	if s.Versions != nil {
		if err := s.Versions.Save(s.Name, next); err != nil {
			s.logger.Error("failed to persist local version", zap.Error(err))
		}
	}
	s.logger.Debug("local bucket updated", zap.Uint64("version", uint64(next)))
	s.push()
}

func (s *Store[T]) setLocal(data T, v version.Counter) error {
	raw, err := s.codec.Encode(data)
	if err != nil {
		return errors.Wrap(err, "[bucket] - failed to encode local bucket")
	}
	s.local = entry[T]{bucket: Bucket[T]{Data: data, Version: v}, raw: raw}
	s.view = s.view.with(s.Address, s.local)
	s.metrics.version.Set(float64(v))
	return nil
}

// push sends the local bucket to every member, one goroutine each.
func (s *Store[T]) push() {
	msg := Message{
		Variant: VariantAck2,
		From:    s.Address,
		Buckets: map[address.Address]Encoded{s.Address: s.local.encoded()},
	}
	for peer := range s.members {
		peer := peer
		s.goGossip(func(ctx context.Context) {
			if _, err := s.Transport.Send(ctx, peer, msg); err != nil {
				s.sendFailed(peer, err)
			}
		})
	}
}

func (e entry[T]) encoded() Encoded {
	return Encoded{Version: e.bucket.Version, Data: e.raw}
}

// |||||| MERGE ||||||

// merge installs every bucket in buckets that is newer than the cached one,
// and calls the OnBucketsUpdated callbacks if anything changed. A bucket that
// fails to install is logged and skipped.
func (s *Store[T]) merge(from address.Address, buckets map[address.Address]Encoded) {
	changed := false
	for addr, enc := range buckets {
		err := s.install(addr, enc)
		switch {
		case err == nil:
			changed = true
			s.metrics.merged.Inc()
		case errors.Is(err, ErrStaleVersion):
			s.metrics.stale.Inc()
			s.logger.Debug("discarding stale bucket",
				zap.Stringer("owner", addr),
				zap.Stringer("from", from),
				zap.Uint64("version", uint64(enc.Version)),
			)
		case errors.Is(err, ErrNotMember), errors.Is(err, ErrSelfOwned):
			s.logger.Debug("ignoring bucket", zap.Stringer("owner", addr), zap.Error(err))
		default:
			s.metrics.decodeFailures.Inc()
			s.logger.Warn("failed to install bucket",
				zap.Stringer("owner", addr),
				zap.Stringer("from", from),
				zap.Uint64("version", uint64(enc.Version)),
				zap.Error(err),
			)
		}
	}
	if changed {
		s.metrics.peers.Set(float64(s.view.Len() - 1))
		s.notifyUpdated()
	}
}

func (s *Store[T]) install(addr address.Address, enc Encoded) error {
	if addr == s.Address {
		return ErrSelfOwned
	}
	if !s.isMember(addr) {
		return ErrNotMember
	}
	if cur, ok := s.view.entry(addr); ok && !enc.Version.NewerThan(cur.bucket.Version) {
		return ErrStaleVersion
	}
	data, err := s.codec.Decode(enc.Data)
	if err != nil {
		return err
	}
	s.view = s.view.with(addr, entry[T]{bucket: Bucket[T]{Data: data, Version: enc.Version}, raw: enc.Data})
	return nil
}

func (s *Store[T]) notifyUpdated() {
	remote := s.view.Remote()
	for _, fn := range s.onUpdated {
		fn(remote)
	}
}
