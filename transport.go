package relay

import (
	"context"
	"fmt"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/bucket"
)

// Transport carries relay's gossip between members.
type Transport interface {
	fmt.Stringer
	// Gossip returns the transport for the store with the given name. Every
	// store is created before Configure is called.
	Gossip(name string) bucket.Transport
	// Configure starts accepting gossip at addr until ctx is cancelled.
	Configure(ctx context.Context, addr address.Address) error
}
