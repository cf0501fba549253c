package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// AsyncOptions tunes the delivery worker pool.
type AsyncOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// AsyncNotifier queues events and delivers them to a Sink from a fixed pool
// of workers. A full queue or a failed delivery is logged and the event dropped.
type AsyncNotifier struct {
	sink    Sink
	queue   chan Event
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAsyncNotifier starts the workers. Call Close to drain and stop them.
func NewAsyncNotifier(sink Sink, opts AsyncOptions) *AsyncNotifier {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	n := &AsyncNotifier{
		sink:    sink,
		queue:   make(chan Event, opts.QueueSize),
		timeout: opts.Timeout,
	}
	n.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go n.work()
	}
	return n
}

// Notify enqueues the event without waiting for delivery. The request context
// is not carried over because delivery outlives the request.
func (n *AsyncNotifier) Notify(_ context.Context, event Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		log.Warn().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Notifier closed, dropping event")
		return
	}
	select {
	case n.queue <- event:
	default:
		log.Error().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Notification queue full, dropping event")
	}
}

func (n *AsyncNotifier) work() {
	defer n.wg.Done()
	for event := range n.queue {
		n.deliver(event)
	}
}

func (n *AsyncNotifier) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	if err := n.sink.Deliver(ctx, event); err != nil {
		log.Error().Err(err).
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Str("order_id", event.OrderID).
			Msg("Failed to deliver notification")
		return
	}
	log.Debug().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Notification delivered")
}

// Close stops accepting events and waits until the queued ones are delivered.
func (n *AsyncNotifier) Close() {
	n.once.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
		n.wg.Wait()
	})
}
