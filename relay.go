// Package relay replicates the routing tables of a cluster's members. Each
// member advertises the RPCs and Actions it serves, and learns which members
// serve what through gossip. Changes are reported to a local registrar as
// remote endpoints.
package relay

import (
	"context"
	"io"
	"sync"

	"github.com/arya-analytics/relay/internal/invoker"
	"github.com/arya-analytics/relay/internal/registry"
	"github.com/arya-analytics/relay/internal/version"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Relay is a running member of a routing cluster.
type Relay struct {
	// Address is the member's gossip address.
	Address Address
	// RPC advertises the member's RPCs.
	RPC *registry.RPC
	// Action advertises the member's Actions.
	Action *registry.Action
	// Invokers holds the member's invokers and resolves those of its peers.
	Invokers *invoker.Directory

	options   *options
	versions  *version.Pebble
	cancel    context.CancelFunc
	wg        *errgroup.Group
	closers   []io.Closer
	closeOnce sync.Once
	closeErr  error
}

// Close stops gossiping and releases the relay's resources. Close is
// idempotent.
func (r *Relay) Close() error {
	r.closeOnce.Do(func() { r.closeErr = r.close() })
	return r.closeErr
}

func (r *Relay) close() error {
	var err error
	if r.cancel != nil {
		r.cancel()
	}
	if r.RPC != nil {
		err = errors.CombineErrors(err, r.RPC.Stop())
	}
	if r.Action != nil {
		err = errors.CombineErrors(err, r.Action.Stop())
	}
	if r.wg != nil {
		err = errors.CombineErrors(err, r.wg.Wait())
	}
	for _, c := range r.closers {
		err = errors.CombineErrors(err, c.Close())
	}
	if r.versions != nil {
		err = errors.CombineErrors(err, r.versions.Close())
	}
	return err
}
