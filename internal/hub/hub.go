package hub

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/vkornev/logbay/internal/model"
)

const clientBuffer = 256

// Client is one live connection's view of the hub: a buffered channel the
// connection's write loop drains. The channel is closed on Unregister.
type Client struct {
	ch     chan model.ServerMessage
	closed bool
}

// Messages returns the channel of pushes destined for this client.
func (c *Client) Messages() <-chan model.ServerMessage {
	return c.ch
}

// Hub routes newly created records to the clients subscribed to their file.
// Each client is bound to at most one file at a time; a later subscribe
// replaces the earlier binding. There is no replay: clients fetch history
// from the store and receive only the live tail here.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*Client]string // client -> subscribed fileID ("" = none yet)
	dropped atomic.Int64       // publishers increment under the shared read lock
}

func New() *Hub {
	return &Hub{subs: make(map[*Client]string)}
}

// Register adds a connection with no subscription yet.
func (h *Hub) Register() *Client {
	c := &Client{ch: make(chan model.ServerMessage, clientBuffer)}
	h.mu.Lock()
	h.subs[c] = ""
	h.mu.Unlock()
	return c
}

// Subscribe binds the client to a file, replacing any prior binding.
func (h *Hub) Subscribe(c *Client, fileID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[c]; !ok {
		return // already unregistered
	}
	h.subs[c] = fileID
}

// Unregister removes the client from all future publishes and closes its
// channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[c]; !ok {
		return
	}
	delete(h.subs, c)
	c.closed = true
	close(c.ch)
}

// Send queues a message for one client regardless of subscription, used for
// connection-level status and subscribe acks. Drops if the client's buffer
// is full or the client is gone.
func (h *Hub) Send(c *Client, msg model.ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- msg:
	default:
		h.dropped.Add(1)
	}
}

// Publish delivers a record to every client subscribed to its file. Delivery
// is non-blocking per client: a saturated client loses the message rather
// than stalling ingestion or other subscribers.
func (h *Hub) Publish(fileID string, rec model.LogRecord) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg := model.LogEntryMessage(rec)
	for c, id := range h.subs {
		if id != fileID {
			continue
		}
		select {
		case c.ch <- msg:
		default:
			log.Printf("hub: dropped push for slow subscriber (total dropped: %d)", h.dropped.Add(1))
		}
	}
}

// Dropped returns the total number of pushes lost to slow subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Subscribers returns the number of registered connections.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
