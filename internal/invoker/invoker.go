// Package invoker defines references to the processes that execute RPCs and
// Actions, along with the service that turns their serialized path form back
// into live references.
package invoker

import (
	"fmt"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/cockroachdb/errors"
)

// Scheme is the URL scheme of every invoker path.
const Scheme = "relay"

// Ref is an opaque handle to a process able to execute calls for a set of
// routed items. Two refs with the same Path refer to the same invoker.
type Ref interface {
	// Path is the serialized form of the reference. Peers resolve it back into
	// a Ref with a Resolver.
	Path() string
	// Address is the cluster member hosting the invoker.
	Address() address.Address
}

// Resolver turns invoker paths back into references.
type Resolver interface {
	Resolve(path string) (Ref, error)
}

// Encode returns the serialized form of ref.
func Encode(ref Ref) string { return ref.Path() }

// Equal returns true if both refs point to the same invoker.
func Equal(a, b Ref) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Path() == b.Path()
}

var (
	// ErrMalformed is the cause of a ResolutionError for paths that don't parse.
	ErrMalformed = errors.New("malformed invoker path")
	// ErrGone is the cause of a ResolutionError for paths pointing to a local
	// invoker that no longer exists.
	ErrGone = errors.New("invoker no longer exists")
)

// ResolutionError is returned when an invoker path can't be resolved into a
// reference.
type ResolutionError struct {
	Path  string
	Cause error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("[invoker] - failed to resolve %q: %v", e.Path, e.Cause)
}

func (e *ResolutionError) Unwrap() error { return e.Cause }

// IsResolutionError returns true if err or any error it wraps is a
// ResolutionError.
func IsResolutionError(err error) bool {
	var re *ResolutionError
	return errors.As(err, &re)
}

func newResolutionError(path string, cause error) error {
	return &ResolutionError{Path: path, Cause: cause}
}
