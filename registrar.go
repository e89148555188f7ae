package relay

import (
	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/registry"
	"go.uber.org/zap"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type (
	RPCID           = registry.RPCID
	ActionID        = registry.ActionID
	RPCEndpoint     = registry.Endpoint[RPCID]
	ActionEndpoint  = registry.Endpoint[ActionID]
	RPCEndpoints    = registry.Endpoints[RPCID]
	ActionEndpoints = registry.Endpoints[ActionID]
	RPCRegistrar    = registry.RPCRegistrar
	ActionRegistrar = registry.ActionRegistrar
	Address         = address.Address
)

// ErrInvalidArgument is returned when an update changes nothing.
var ErrInvalidArgument = registry.ErrInvalidArgument

// LogRegistrar logs the remote endpoints it receives. It is the default
// registrar for relays opened without one.
type LogRegistrar struct {
	Logger *zap.Logger
}

var (
	_ RPCRegistrar    = (*LogRegistrar)(nil)
	_ ActionRegistrar = (*LogRegistrar)(nil)
)

// UpdateRemoteEndpoints implements RPCRegistrar.
func (l *LogRegistrar) UpdateRemoteEndpoints(endpoints RPCEndpoints) {
	for _, addr := range sortedAddresses(endpoints) {
		ep := endpoints[addr]
		if ep == nil {
			l.Logger.Info("rpc endpoint withdrawn", zap.Stringer("peer", addr))
			continue
		}
		l.Logger.Info("rpc endpoint",
			zap.Stringer("peer", addr),
			zap.String("invoker", ep.Invoker.Path()),
			zap.Int("rpcs", len(ep.Items)),
		)
	}
}

// UpdateRemoteActionEndpoints implements ActionRegistrar.
func (l *LogRegistrar) UpdateRemoteActionEndpoints(endpoints ActionEndpoints) {
	for _, addr := range sortedAddresses(endpoints) {
		ep := endpoints[addr]
		if ep == nil {
			l.Logger.Info("action endpoint withdrawn", zap.Stringer("peer", addr))
			continue
		}
		l.Logger.Info("action endpoint",
			zap.Stringer("peer", addr),
			zap.String("invoker", ep.Invoker.Path()),
			zap.Int("actions", len(ep.Items)),
		)
	}
}

func sortedAddresses[V any](m map[address.Address]V) []address.Address {
	addrs := maps.Keys(m)
	slices.Sort(addrs)
	return addrs
}
