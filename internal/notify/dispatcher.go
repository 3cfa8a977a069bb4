// Package notify fans events out to the event bus and to registered
// asynchronous notification channels. A failing channel is logged and
// isolated: it never blocks or fails the publish path or other channels.
package notify

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/copydesk/copydesk/internal/event"
	"github.com/copydesk/copydesk/internal/logging"
)

// channelTimeout bounds how long one channel callback may run.
const channelTimeout = 10 * time.Second

// Channel is an asynchronous notification sink (chat integration, webhook).
type Channel interface {
	// Name identifies the channel in logs.
	Name() string

	// Notify delivers one event. Errors are logged by the dispatcher and
	// never propagated.
	Notify(ctx context.Context, e event.Event) error
}

// Dispatcher always publishes to the event bus and additionally fans out to
// zero or more registered channels. Safe for concurrent use.
type Dispatcher struct {
	bus *event.Bus
	log *logging.Logger

	mu       sync.RWMutex
	channels []Channel
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher bound to the given bus.
func NewDispatcher(bus *event.Bus, log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Dispatcher{bus: bus, log: log}
}

// Register adds a notification channel.
func (d *Dispatcher) Register(c Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels = append(d.channels, c)
}

// Dispatch publishes the event to the bus and notifies every registered
// channel on its own goroutine. It never blocks on channel delivery.
func (d *Dispatcher) Dispatch(e event.Event) {
	d.bus.Publish(e)

	d.mu.RLock()
	channels := make([]Channel, len(d.channels))
	copy(channels, d.channels)
	d.mu.RUnlock()

	for _, c := range channels {
		d.wg.Add(1)
		go func(c Channel) {
			defer d.wg.Done()
			d.safeNotify(c, e)
		}(c)
	}
}

// Wait blocks until all in-flight channel notifications have finished.
// Used by tests and during shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// safeNotify invokes one channel, recovering panics and logging errors so a
// misbehaving channel cannot affect delivery elsewhere.
func (d *Dispatcher) safeNotify(c Channel, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("notification channel panicked",
				"channel", c.Name(), "event", e.EventType(), "panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), channelTimeout)
	defer cancel()

	if err := c.Notify(ctx, e); err != nil {
		d.log.Warn("notification channel failed",
			"channel", c.Name(), "event", e.EventType(), "error", err)
	}
}
