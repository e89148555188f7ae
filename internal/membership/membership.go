// Package membership translates cluster membership changes into the join and
// leave notifications relay's stores act on.
package membership

import (
	"context"

	"github.com/arya-analytics/relay/internal/address"
	"github.com/arya-analytics/relay/internal/bucket"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Kind is the kind of a membership change.
type Kind uint8

const (
	// Joined is emitted when a member joins the cluster.
	Joined Kind = iota + 1
	// Left is emitted when a member leaves the cluster or is declared dead.
	Left
)

func (k Kind) String() string {
	switch k {
	case Joined:
		return "joined"
	case Left:
		return "left"
	}
	return "unknown"
}

// Event is a single membership change.
type Event struct {
	Address address.Address
	Kind    Kind
}

// Source emits membership events. The channel is closed when the source shuts
// down.
type Source interface {
	Events() <-chan Event
}

// Sink acts on membership changes.
type Sink interface {
	MemberJoined(ctx context.Context, addr address.Address) error
	MemberLeft(ctx context.Context, addr address.Address) error
}

// Watch forwards events from src to every sink until ctx is cancelled or src
// closes. A sink that has stopped is skipped silently.
func Watch(ctx context.Context, src Source, logger *zap.Logger, sinks ...Sink) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-src.Events():
			if !ok {
				return nil
			}
			logger.Debug("membership", zap.Stringer("peer", e.Address), zap.Stringer("kind", e.Kind))
			for _, s := range sinks {
				if err := dispatch(ctx, s, e); err != nil {
					if errors.Is(err, bucket.ErrStopped) || errors.Is(err, context.Canceled) {
						logger.Debug("membership event dropped", zap.Error(err))
						continue
					}
					logger.Warn("failed to apply membership event", zap.Stringer("peer", e.Address), zap.Error(err))
				}
			}
		}
	}
}

func dispatch(ctx context.Context, s Sink, e Event) error {
	switch e.Kind {
	case Joined:
		return s.MemberJoined(ctx, e.Address)
	case Left:
		return s.MemberLeft(ctx, e.Address)
	}
	return errors.Newf("[membership] - unknown event kind %d", e.Kind)
}
