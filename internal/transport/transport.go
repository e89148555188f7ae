// Package transport defines the request/response contract relay's gossip
// travels over, independent of the wire implementation.
package transport

import (
	"context"
	"fmt"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/cockroachdb/errors"
)

// ErrUnreachable is returned by a Sender when the target member can't be
// reached.
var ErrUnreachable = errors.New("[transport] - target unreachable")

// Sender sends a request to the member at addr and waits for its response.
type Sender[I, O any] interface {
	Send(ctx context.Context, addr address.Address, req I) (O, error)
}

// Handler registers the function used to process requests arriving at the
// local member. Only one handler may be registered.
type Handler[I, O any] interface {
	Handle(func(ctx context.Context, req I) (O, error))
}

// Unary is a bidirectional request/response transport.
type Unary[I, O any] interface {
	fmt.Stringer
	Sender[I, O]
	Handler[I, O]
}
