package registry

import (
	"context"

	"github.com/arya-analytics/relay/internal/bucket"
	"github.com/arya-analytics/relay/internal/invoker"
	"github.com/arya-analytics/relay/internal/table"
	"github.com/arya-analytics/relay/internal/wire"
	"github.com/cockroachdb/errors"
)

// RPCID identifies a routed RPC: its type, and the context it is bound to.
type RPCID struct {
	Type string
	Path string
}

func (id RPCID) String() string { return id.Type + "@" + id.Path }

// RPCCodec is the table.ItemCodec for RPCIDs.
type RPCCodec struct{}

var _ table.ItemCodec[RPCID] = RPCCodec{}

func (RPCCodec) EncodeItem(w *wire.Writer, id RPCID) error {
	if err := w.WriteString(id.Type); err != nil {
		return err
	}
	return w.WriteString(id.Path)
}

func (RPCCodec) DecodeItem(r *wire.Reader) (id RPCID, err error) {
	if id.Type, err = r.ReadString(); err != nil {
		return id, err
	}
	id.Path, err = r.ReadString()
	return id, err
}

func (RPCCodec) ItemSize(id RPCID) int { return wire.StringSize(id.Type) + wire.StringSize(id.Path) }

// RPCRegistrar receives the RPC endpoints of remote members. Calls are made
// from a single goroutine, in the order changes were observed, and must not
// call back into the registry synchronously.
type RPCRegistrar interface {
	UpdateRemoteEndpoints(endpoints Endpoints[RPCID])
}

// RPC advertises the RPCs served by the local member.
type RPC struct {
	*Registry[RPCID]
}

// NewRPC returns an RPC registry whose local table is served by inv. Peer
// tables are decoded with resolver. cfg.Name defaults to "rpc".
func NewRPC(inv invoker.Ref, resolver invoker.Resolver, registrar RPCRegistrar, cfg bucket.Config) (*RPC, error) {
	if registrar == nil {
		return nil, errors.New("[registry] - rpc registrar required")
	}
	if cfg.Name == "" {
		cfg.Name = "rpc"
	}
	codec := table.Codec[RPCID]{Items: RPCCodec{}, Resolver: resolver}
	r, err := newRegistry[RPCID](inv, codec, registrar.UpdateRemoteEndpoints, cfg)
	if err != nil {
		return nil, err
	}
	return &RPC{Registry: r}, nil
}

// AddOrUpdateRoutes advertises ids as served by the local member.
func (r *RPC) AddOrUpdateRoutes(ctx context.Context, ids ...RPCID) error {
	if len(ids) == 0 {
		return errors.Wrap(ErrInvalidArgument, "no routes to add")
	}
	return r.update(ctx, ids, nil)
}

// RemoveRoutes stops advertising ids.
func (r *RPC) RemoveRoutes(ctx context.Context, ids ...RPCID) error {
	if len(ids) == 0 {
		return errors.Wrap(ErrInvalidArgument, "no routes to remove")
	}
	return r.update(ctx, nil, ids)
}

// UpdateRoutes removes and then adds routes in a single change, so peers never
// observe the intermediate table.
func (r *RPC) UpdateRoutes(ctx context.Context, added, removed []RPCID) error {
	return r.update(ctx, added, removed)
}
