// Package bucket implements the gossip engine that replicates a single
// versioned value, a bucket, per cluster member. Each member owns exactly one
// bucket and is the only one allowed to change it. Every other member holds a
// read-only copy of the most recent version it has seen, learned through
// pushes on local change and periodic digest based anti-entropy.
package bucket

import (
	"github.com/arya-analytics/relay/internal/transport"
	"github.com/arya-analytics/relay/internal/version"
	"github.com/cockroachdb/errors"
)

// Bucket is one member's versioned data.
type Bucket[T any] struct {
	Data    T
	Version version.Counter
}

// Codec encodes and decodes bucket data for transmission to peers.
type Codec[T any] interface {
	Encode(data T) ([]byte, error)
	Decode(b []byte) (T, error)
}

// Transport carries gossip messages between members.
type Transport = transport.Unary[Message, Message]

// State is the lifecycle state of a Store.
type State int32

const (
	// StateInitializing is the state of a Store that has not been started.
	// Callbacks may only be registered in this state.
	StateInitializing State = iota
	// StateActive is the state of a running Store.
	StateActive
	// StateStopped is the terminal state of a Store.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

var (
	// ErrStopped is returned by every Store operation after it has stopped.
	ErrStopped = errors.New("[bucket] - store stopped")
	// ErrNotStarted is returned to peers that gossip with a Store before it
	// has started.
	ErrNotStarted = errors.New("[bucket] - store not started")
	// ErrStaleVersion marks an incoming bucket whose version is not newer than
	// the cached one. Such buckets are discarded.
	ErrStaleVersion = errors.Wrap(version.ErrOld, "[bucket] - stale bucket version")
	// ErrNotMember marks an incoming bucket owned by an address that isn't a
	// current cluster member.
	ErrNotMember = errors.New("[bucket] - owner is not a cluster member")
	// ErrSelfOwned marks an incoming copy of the local member's own bucket.
	ErrSelfOwned = errors.New("[bucket] - bucket is owned by the local member")
)
