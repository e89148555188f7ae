package relay

import (
	"context"
	"io"
	"path/filepath"

	"github.com/arya-analytics/relay/internal/invoker"
	"github.com/arya-analytics/relay/internal/membership"
	"github.com/arya-analytics/relay/internal/registry"
	"github.com/arya-analytics/relay/internal/version"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Open starts a relay for the member at addr, persisting versions under
// dirname. The relay runs until Close is called.
func Open(dirname string, addr Address, opts ...Option) (*Relay, error) {
	o := newOptions(dirname, addr, opts...)
	if err := o.validate(); err != nil {
		return nil, err
	}

	o.logger.Debug("configuration", zap.String("options", o.String()))

	versions, err := version.OpenPebble(filepath.Join(o.dirname, "versions"), o.fs)
	if err != nil {
		return nil, err
	}

	r := &Relay{Address: addr, Invokers: invoker.NewDirectory(addr), options: o, versions: versions}
	if err := r.open(); err != nil {
		return nil, errors.CombineErrors(err, r.Close())
	}
	return r, nil
}

func (r *Relay) open() (err error) {
	o := r.options
	var ctx context.Context
	ctx, r.cancel = context.WithCancel(context.Background())
	r.wg, ctx = errgroup.WithContext(ctx)

	rpcCfg := o.bucketConfig("rpc")
	rpcCfg.Versions = r.versions
	r.RPC, err = registry.NewRPC(r.Invokers.Register("rpc"), r.Invokers, o.rpcRegistrar, rpcCfg)
	if err != nil {
		return err
	}

	actionCfg := o.bucketConfig("action")
	actionCfg.Versions = r.versions
	r.Action, err = registry.NewAction(r.Invokers.Register("action"), r.Invokers, o.actionRegistrar, actionCfg)
	if err != nil {
		return err
	}

	if err := o.transport.Configure(ctx, r.Address); err != nil {
		return err
	}
	if err := r.RPC.Start(ctx); err != nil {
		return err
	}
	if err := r.Action.Start(ctx); err != nil {
		return err
	}

	sources := o.sources
	if len(o.peers) > 0 {
		seed := membership.NewFeed()
		for _, peer := range o.peers {
			seed.Publish(membership.Event{Address: peer, Kind: membership.Joined})
		}
		r.closers = append(r.closers, closerFunc(func() error { seed.Close(); return nil }))
		sources = append(sources, seed)
	}
	for _, src := range sources {
		src := src
		r.wg.Go(func() error {
			err := membership.Watch(ctx, src, o.logger, r.RPC, r.Action)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	if c, ok := o.transport.(io.Closer); ok {
		r.closers = append(r.closers, c)
	}
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
