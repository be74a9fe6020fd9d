// Package events provides a process-wide bus for named, payload-less signals.
package events

import "sync"

// Name identifies a signal on the bus.
type Name string

// Logout asks every listener to end the current session.
const Logout Name = "logout"

// Publisher emits named signals.
type Publisher interface {
	Publish(name Name) int
}

// Subscriber receives named signals.
type Subscriber interface {
	Subscribe(name Name) (func(), <-chan struct{})
}

// Bus fans signals out to subscribers. Each subscriber channel buffers one
// pending signal, so repeated publishes before a receive coalesce.
type Bus struct {
	mu   sync.Mutex
	subs map[Name]map[chan struct{}]struct{}
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Name]map[chan struct{}]struct{})}
}

// Subscribe registers interest in name. The returned func unsubscribes and
// closes the channel; calling it more than once is safe.
func (b *Bus) Subscribe(name Name) (func(), <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs == nil {
		b.subs = make(map[Name]map[chan struct{}]struct{})
	}
	ch := make(chan struct{}, 1)
	if b.subs[name] == nil {
		b.subs[name] = make(map[chan struct{}]struct{})
	}
	b.subs[name][ch] = struct{}{}

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subscribers := b.subs[name]
		if subscribers == nil {
			return
		}
		if _, ok := subscribers[ch]; !ok {
			return
		}
		delete(subscribers, ch)
		drainAndClose(ch)
		if len(subscribers) == 0 {
			delete(b.subs, name)
		}
	}

	return unsub, ch
}

// Publish signals every subscriber of name without blocking and returns how
// many subscribers were registered. A publish with no subscribers is a no-op.
func (b *Bus) Publish(name Name) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers := b.subs[name]
	for ch := range subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return len(subscribers)
}

// Subscribers reports the number of live subscriptions for name.
func (b *Bus) Subscribers(name Name) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}

// StopAll closes every subscriber channel.
func (b *Bus) StopAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, subscribers := range b.subs {
		for ch := range subscribers {
			drainAndClose(ch)
		}
		delete(b.subs, name)
	}
}

// drainAndClose removes any buffered signal before closing the channel so
// receivers observe a closed channel immediately.
func drainAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var (
	_ Publisher  = (*Bus)(nil)
	_ Subscriber = (*Bus)(nil)
)
