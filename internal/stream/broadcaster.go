// Package stream fans annotated frames out to MJPEG viewers.
package stream

import (
	"log/slog"
	"sync"

	"github.com/silenttalk/signlens/internal/lgr"
)

// clientBuffer is how many frames a viewer may lag before frames are dropped.
const clientBuffer = 2

// Broadcaster delivers each published frame to every subscriber. Slow
// subscribers miss frames instead of blocking the publisher.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[int]chan []byte
	nextID  int
	latest  []byte
	dropped uint64
	closed  bool
}

// NewBroadcaster returns a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[int]chan []byte)}
}

// Subscribe adds a client and returns its id and frame channel. The
// channel is closed by Unsubscribe or Close.
func (b *Broadcaster) Subscribe() (int, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan []byte, clientBuffer)
	if b.closed {
		close(ch)
		return id, ch
	}
	b.clients[id] = ch

	lgr.Logger.Debug("viewer subscribed", slog.Int("client", id), slog.Int("clients", len(b.clients)))
	return id, ch
}

// Unsubscribe removes a client.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.clients[id]; ok {
		close(ch)
		delete(b.clients, id)
		lgr.Logger.Debug("viewer unsubscribed", slog.Int("client", id), slog.Int("clients", len(b.clients)))
	}
}

// Publish sends data to every client that has room for it.
func (b *Broadcaster) Publish(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.latest = data
	for _, ch := range b.clients {
		select {
		case ch <- data:
		default:
			b.dropped++
		}
	}
}

// Latest returns the last published frame, or nil.
func (b *Broadcaster) Latest() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest
}

// Clear forgets the last frame, so new viewers get the placeholder.
func (b *Broadcaster) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.latest = nil
}

// Clients returns the number of subscribers.
func (b *Broadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Dropped returns how many frames were skipped for slow clients.
func (b *Broadcaster) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close disconnects every client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.clients {
		close(ch)
		delete(b.clients, id)
	}
}
