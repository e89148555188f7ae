package registry

import (
	"context"

	"github.com/arya-analytics/relay/internal/bucket"
	"github.com/arya-analytics/relay/internal/invoker"
	"github.com/arya-analytics/relay/internal/table"
	"github.com/arya-analytics/relay/internal/wire"
	"github.com/cockroachdb/errors"
)

// ActionID identifies a routed Action: its type, bound to a subtree of a
// datastore.
type ActionID struct {
	Type      string
	Datastore string
	Path      string
}

func (id ActionID) String() string { return id.Type + "@" + id.Datastore + ":" + id.Path }

// ActionCodec is the table.ItemCodec for ActionIDs.
type ActionCodec struct{}

var _ table.ItemCodec[ActionID] = ActionCodec{}

func (ActionCodec) EncodeItem(w *wire.Writer, id ActionID) error {
	if err := w.WriteString(id.Type); err != nil {
		return err
	}
	if err := w.WriteString(id.Datastore); err != nil {
		return err
	}
	return w.WriteString(id.Path)
}

func (ActionCodec) DecodeItem(r *wire.Reader) (id ActionID, err error) {
	if id.Type, err = r.ReadString(); err != nil {
		return id, err
	}
	if id.Datastore, err = r.ReadString(); err != nil {
		return id, err
	}
	id.Path, err = r.ReadString()
	return id, err
}

func (ActionCodec) ItemSize(id ActionID) int {
	return wire.StringSize(id.Type) + wire.StringSize(id.Datastore) + wire.StringSize(id.Path)
}

// ActionRegistrar receives the Action endpoints of remote members. Calls are
// made from a single goroutine, in the order changes were observed, and must
// not call back into the registry synchronously.
type ActionRegistrar interface {
	UpdateRemoteActionEndpoints(endpoints Endpoints[ActionID])
}

// Action advertises the Actions served by the local member.
type Action struct {
	*Registry[ActionID]
}

// NewAction returns an Action registry whose local table is served by inv.
// Peer tables are decoded with resolver. cfg.Name defaults to "action".
func NewAction(inv invoker.Ref, resolver invoker.Resolver, registrar ActionRegistrar, cfg bucket.Config) (*Action, error) {
	if registrar == nil {
		return nil, errors.New("[registry] - action registrar required")
	}
	if cfg.Name == "" {
		cfg.Name = "action"
	}
	codec := table.Codec[ActionID]{Items: ActionCodec{}, Resolver: resolver}
	r, err := newRegistry[ActionID](inv, codec, registrar.UpdateRemoteActionEndpoints, cfg)
	if err != nil {
		return nil, err
	}
	return &Action{Registry: r}, nil
}

// UpdateActions removes and then adds actions in a single change. An action
// present in both lists ends up advertised.
func (a *Action) UpdateActions(ctx context.Context, added, removed []ActionID) error {
	return a.update(ctx, added, removed)
}
