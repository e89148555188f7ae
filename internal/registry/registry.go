// Package registry advertises the routed items (RPCs or Actions) the local
// member serves, and tells a local Registrar which items every other member
// serves.
package registry

import (
	"context"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/bucket"
	"github.com/arya-analytics/relay/internal/invoker"
	"github.com/arya-analytics/relay/internal/table"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// ErrInvalidArgument is returned synchronously when a caller asks for an
// update that changes nothing.
var ErrInvalidArgument = errors.New("[registry] - invalid argument")

// Endpoint is a remote member's invoker together with the items it serves.
type Endpoint[I comparable] struct {
	Invoker invoker.Ref
	Items   []I
}

// Endpoints maps members to their endpoint. A nil endpoint means the member
// serves nothing, either because its table is empty or because it left the
// cluster.
type Endpoints[I comparable] map[address.Address]*Endpoint[I]

// Admin exposes the replicated state behind a registry for inspection.
type Admin[I comparable] interface {
	LocalBucket(ctx context.Context) (bucket.Bucket[table.Table[I]], error)
	PeerView(ctx context.Context) (bucket.PeerView[table.Table[I]], error)
	Digests(ctx context.Context) (bucket.Digests, error)
	Members(ctx context.Context) ([]address.Address, error)
	Resync(ctx context.Context) error
}

// Registry replicates the local member's routing table and turns the peers'
// tables into Endpoints. It keeps no endpoint state of its own: every
// notification is computed from the store's latest view.
type Registry[I comparable] struct {
	store  *bucket.Store[table.Table[I]]
	notify func(Endpoints[I])
	logger *zap.Logger
}

func newRegistry[I comparable](
	inv invoker.Ref,
	codec table.Codec[I],
	notify func(Endpoints[I]),
	cfg bucket.Config,
) (*Registry[I], error) {
	cfg = cfg.Merge(bucket.DefaultConfig())
	store, err := bucket.New[table.Table[I]](codec, table.New[I](inv), cfg)
	if err != nil {
		return nil, err
	}
	r := &Registry[I]{store: store, notify: notify, logger: cfg.Logger.With(zap.String("registry", cfg.Name))}
	store.OnBucketsUpdated(r.bucketsUpdated)
	store.OnBucketRemoved(r.bucketRemoved)
	return r, nil
}

// Start begins replicating. See bucket.Store.Start.
func (r *Registry[I]) Start(ctx context.Context) error { return r.store.Start(ctx) }

// Stop stops replicating. Stop is idempotent.
func (r *Registry[I]) Stop() error { return r.store.Stop() }

// State returns the lifecycle state of the registry.
func (r *Registry[I]) State() bucket.State { return r.store.State() }

// MemberJoined tells the registry addr is now a cluster member.
func (r *Registry[I]) MemberJoined(ctx context.Context, addr address.Address) error {
	return r.store.MemberJoined(ctx, addr)
}

// MemberLeft tells the registry addr is no longer a cluster member. The
// Registrar is told the member has no endpoint.
func (r *Registry[I]) MemberLeft(ctx context.Context, addr address.Address) error {
	return r.store.MemberLeft(ctx, addr)
}

// Admin returns the registry's inspection interface.
func (r *Registry[I]) Admin() Admin[I] { return r.store }

// update removes and then adds items to the local table.
func (r *Registry[I]) update(ctx context.Context, added, removed []I) error {
	if len(added) == 0 && len(removed) == 0 {
		return errors.Wrap(ErrInvalidArgument, "no items to add or remove")
	}
	err := r.store.UpdateLocal(ctx, func(t table.Table[I]) table.Table[I] {
		return t.WithRemoved(removed...).WithAdded(added...)
	})
	if errors.Is(err, bucket.ErrStopped) {
		r.logger.Debug("update dropped, registry stopped")
	}
	return err
}

func (r *Registry[I]) bucketsUpdated(view bucket.PeerView[table.Table[I]]) {
	endpoints := make(Endpoints[I], view.Len())
	view.ForEach(func(addr address.Address, b bucket.Bucket[table.Table[I]]) {
		if b.Data.Empty() {
			endpoints[addr] = nil
			return
		}
		endpoints[addr] = &Endpoint[I]{Invoker: b.Data.Invoker(), Items: b.Data.Items()}
	})
	if len(endpoints) == 0 {
		return
	}
	r.logger.Debug("remote endpoints updated", zap.Int("members", len(endpoints)))
	r.notify(endpoints)
}

func (r *Registry[I]) bucketRemoved(addr address.Address) {
	r.logger.Debug("remote endpoint removed", zap.Stringer("peer", addr))
	r.notify(Endpoints[I]{addr: nil})
}
