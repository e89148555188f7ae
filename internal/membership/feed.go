package membership

import "sync"

// Feed is a Source that emits the events published to it, in order. Publish
// never blocks, so it is safe to call from callbacks that must return quickly.
type Feed struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	signal chan struct{}
	done   chan struct{}
	events chan Event
}

var _ Source = (*Feed)(nil)

func NewFeed() *Feed {
	f := &Feed{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		events: make(chan Event),
	}
	go f.pump()
	return f
}

// Events implements Source.
func (f *Feed) Events() <-chan Event { return f.events }

// Publish queues events for delivery. Events published after Close are
// dropped.
func (f *Feed) Publish(events ...Event) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.queue = append(f.queue, events...)
	f.mu.Unlock()
	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Close stops delivery and closes the events channel. Queued events that
// haven't been delivered are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.done)
}

func (f *Feed) pump() {
	defer close(f.events)
	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.mu.Unlock()
			select {
			case <-f.signal:
				continue
			case <-f.done:
				return
			}
		}
		e := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		select {
		case f.events <- e:
		case <-f.done:
			return
		}
	}
}
