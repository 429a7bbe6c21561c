package websocket

import (
	"sync"
	"time"

	"novascp/types"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

// AllJobs is the subscription key of clients following every transfer
const AllJobs = "all"

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run()
	Stop()
	BroadcastProgress(msg types.ProgressMessage)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
	ClientCount() int
	Dropped() uint64
}

// hub maintains the set of active clients and broadcasts messages to them
type hub struct {
	// Registered clients mapped by job ID
	clients map[string]map[*Client]bool

	// Broadcast channel for sending messages to all clients of a job
	broadcast chan types.ProgressMessage

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	done     chan struct{}
	stopOnce sync.Once

	// Messages dropped because the hub or a client fell behind
	dropped *atomic.Uint64

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.ProgressMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		dropped:    atomic.NewUint64(0),
	}
}

// Run starts the hub's main event loop and returns once Stop is called
func (h *hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.jobID] == nil {
				h.clients[client.jobID] = make(map[*Client]bool)
			}
			h.clients[client.jobID][client] = true
			h.mu.Unlock()
			logrus.WithField("job_id", client.jobID).Debug("WebSocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
			logrus.WithField("job_id", client.jobID).Debug("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			h.deliverLocked(message.JobID, message)
			h.deliverLocked(AllJobs, message)
			h.mu.Unlock()
		}
	}
}

func (h *hub) deliverLocked(key string, message types.ProgressMessage) {
	clients, ok := h.clients[key]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.send <- message:
		default:
			// slow consumer; cut it loose rather than stall everyone else
			h.dropped.Inc()
			close(client.send)
			delete(clients, client)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, key)
	}
}

func (h *hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.jobID]
	if !ok {
		return
	}
	if _, ok := clients[client]; ok {
		delete(clients, client)
		close(client.send)
		if len(clients) == 0 {
			delete(h.clients, client.jobID)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, clients := range h.clients {
		for client := range clients {
			close(client.send)
		}
		delete(h.clients, key)
	}
}

// Stop terminates Run and disconnects every client
func (h *hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// BroadcastProgress sends a progress message to the clients of its job and
// to clients following all jobs. It never blocks the caller.
func (h *hub) BroadcastProgress(msg types.ProgressMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Inc()
		logrus.WithField("job_id", msg.JobID).Warn("WebSocket broadcast channel full, dropping message")
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// Dropped returns how many messages were discarded
func (h *hub) Dropped() uint64 {
	return h.dropped.Load()
}
