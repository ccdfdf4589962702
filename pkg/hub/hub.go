package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned by Subscribe once Run has exited.
var ErrStopped = errors.New("hub: stopped")

// Subscriber receives broadcast messages on a buffered channel.
type Subscriber struct {
	send chan Message
}

// C returns the receive side of the subscriber queue. It is closed when the
// hub drops the subscriber.
func (s *Subscriber) C() <-chan Message {
	return s.send
}

// Hub maintains the set of active subscribers and broadcasts messages to them
type Hub struct {
	name   string
	logger *slog.Logger

	subscribers map[*Subscriber]bool

	broadcast  chan Message
	register   chan *Subscriber
	unregister chan *Subscriber

	// done is closed when Run exits; register and unregister have no reader after that.
	done     chan struct{}
	doneOnce sync.Once

	// Read-only count for callers outside the run loop
	mu    sync.RWMutex
	count int

	running atomic.Bool
	dropped atomic.Uint64
}

// New creates a new Hub
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:        name,
		logger:      logger.With("hub", name),
		subscribers: make(map[*Subscriber]bool),
		broadcast:   make(chan Message, 256),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		done:        make(chan struct{}),
	}
}

// Run owns the subscriber set until ctx is cancelled, then closes every
// subscriber queue. Call it in its own goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		h.doneOnce.Do(func() { close(h.done) })
	}()

	for {
		select {
		case <-ctx.Done():
			for sub := range h.subscribers {
				close(sub.send)
				delete(h.subscribers, sub)
			}
			h.setCount(0)
			return

		case sub := <-h.register:
			h.subscribers[sub] = true
			h.setCount(len(h.subscribers))
			h.logger.Debug("subscriber connected", "total", len(h.subscribers))

		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.send)
			}
			h.setCount(len(h.subscribers))
			h.logger.Debug("subscriber disconnected", "remaining", len(h.subscribers))

		case msg := <-h.broadcast:
			for sub := range h.subscribers {
				select {
				case sub.send <- msg:
				default:
					// Subscriber's buffer is full - drop it
					close(sub.send)
					delete(h.subscribers, sub)
					h.logger.Warn("dropped slow subscriber")
				}
			}
			h.setCount(len(h.subscribers))
		}
	}
}

// Subscribe registers a new subscriber. It blocks until the run loop accepts
// it or ctx is done.
func (h *Hub) Subscribe(ctx context.Context) (*Subscriber, error) {
	sub := &Subscriber{send: make(chan Message, 64)}
	select {
	case h.register <- sub:
		return sub, nil
	case <-h.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe removes sub. Safe to call after the hub dropped it.
func (h *Hub) Unsubscribe(ctx context.Context, sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	case <-ctx.Done():
	}
}

// Broadcast queues a message for all subscribers without blocking.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v any) error {
	msg, err := Encode(v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// BroadcastBinary broadcasts binary data
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(Frame(data))
}

// SubscriberCount returns the number of connected subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Dropped returns how many broadcasts were discarded because the queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}
