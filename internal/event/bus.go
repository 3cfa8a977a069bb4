package event

import (
	"sync"
	"sync/atomic"

	"github.com/copydesk/copydesk/internal/errors"
)

const (
	// DefaultQueueCapacity is the per-subscriber queue size.
	DefaultQueueCapacity = 100

	// DefaultMaxSubscribers caps concurrent subscriptions.
	DefaultMaxSubscribers = 10
)

// Bus is a bounded publish/subscribe broadcast bus.
// All methods are safe for concurrent use.
type Bus struct {
	mu       sync.Mutex
	subs     map[uint64]*Subscription
	nextID   uint64
	capacity int
	maxSubs  int
}

// Option configures a Bus.
type Option func(*Bus)

// WithQueueCapacity overrides the per-subscriber queue capacity.
func WithQueueCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.capacity = n
		}
	}
}

// WithMaxSubscribers overrides the subscriber cap.
func WithMaxSubscribers(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.maxSubs = n
		}
	}
}

// NewBus creates a bus with the default capacity and subscriber cap.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:     make(map[uint64]*Subscription),
		capacity: DefaultQueueCapacity,
		maxSubs:  DefaultMaxSubscribers,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new subscriber and returns its Subscription.
// Returns errors.ErrSubscriberLimit when the cap is reached; callers beyond
// the cap receive no events.
//
// The caller must Close the subscription on every exit path of its read
// loop, or the queue slot stays occupied for the life of the process.
func (b *Bus) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.subs) >= b.maxSubs {
		return nil, errors.ErrSubscriberLimit
	}

	b.nextID++
	sub := &Subscription{
		id:  b.nextID,
		ch:  make(chan Event, b.capacity),
		bus: b,
	}
	b.subs[sub.id] = sub
	return sub, nil
}

// Publish delivers the event to every subscriber whose queue has room.
// It never blocks: a full subscriber queue drops the event for that
// subscriber while other subscribers still receive it.
//
// The bus lock is held across the sends so that a concurrent Close can
// never close a channel mid-send. Sends are non-blocking, so holding the
// lock costs a bounded amount of work.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		select {
		case s.ch <- e:
		default:
			s.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// removeAndClose releases a subscription's slot and closes its channel
// while holding the bus lock, so no publish can send on the closed channel.
func (b *Bus) removeAndClose(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, s.id)
	close(s.ch)
}

// Subscription is one subscriber's bounded event queue. Consumers pull from
// Events() in a loop and must call Close on every exit path.
type Subscription struct {
	id      uint64
	ch      chan Event
	bus     *Bus
	once    sync.Once
	dropped atomic.Uint64
}

// Events returns the receive side of the subscriber's queue.
// The channel is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close releases the queue slot and closes the event channel.
// It is safe to call multiple times and from any goroutine.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.removeAndClose(s)
	})
}

// Dropped returns how many events were dropped because this subscriber's
// queue was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}
