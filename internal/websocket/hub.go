// internal/websocket/hub.go
package websocket

import (
	"context"
	"log"

	"telemetry-dashboard/internal/data"
	"telemetry-dashboard/internal/metrics"
	"telemetry-dashboard/internal/storage"
)

const broadcastBuffer = 256

// outbound is one message for every client. When state is set it is the
// store state the message leads to, and becomes the snapshot handed to
// clients that register afterwards.
type outbound struct {
	payload []byte
	state   *data.Telemetry
}

// Hub maintains the set of active dashboard clients and broadcasts
// telemetry to them. All client bookkeeping happens on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// latest is the state as of the last broadcast, so a new client's
	// initial snapshot lines up exactly with the updates that follow it.
	latest data.Telemetry
	logger *log.Logger
}

func NewHub(initial data.Telemetry, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		latest:     initial,
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for client := range h.clients {
			h.remove(client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			metrics.WebSocketClients.Set(float64(len(h.clients)))
			h.logger.Printf("WebSocket client registered: %s (%s)", client.ID, client.RemoteAddr())
			h.sendInitialData(client)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				h.logger.Printf("WebSocket client unregistered: %s", client.ID)
			}

		case msg := <-h.broadcast:
			if msg.state != nil {
				h.latest = *msg.state
			}
			for client := range h.clients {
				select {
				case client.send <- msg.payload:
				default:
					// Assume client is blocked or gone, unregister
					h.logger.Printf("WebSocket client %s send buffer full, removing", client.ID)
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)
	metrics.WebSocketClients.Set(float64(len(h.clients)))
}

// sendInitialData queues the full state on a freshly registered client.
func (h *Hub) sendInitialData(client *Client) {
	payload, err := data.EncodeData(h.latest)
	if err != nil {
		h.logger.Printf("Error marshalling initial data: %v", err)
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.Printf("WebSocket client %s send buffer full on connect", client.ID)
	}
}

// RegisterClient hands a client to the Run loop. It returns false once the
// hub has stopped.
func (h *Hub) RegisterClient(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// OnChange is a store subscriber. Update packets are forwarded with only
// the fields the store applied; every other change is sent as a full data
// packet so clients resync.
func (h *Hub) OnChange(change storage.Change) {
	state := change.Telemetry

	if change.Op == storage.OpUpdate && change.Applied != nil && len(change.Applied.Raw) > 0 {
		h.enqueue(outbound{payload: change.Applied.Raw, state: &state})
		return
	}

	payload, err := data.EncodeData(state)
	if err != nil {
		h.logger.Printf("Error marshalling data for broadcast: %v", err)
		return
	}
	h.enqueue(outbound{payload: payload, state: &state})
}

// BroadcastAlert sends an alert message to all clients
func (h *Hub) BroadcastAlert(alert data.Alert) {
	payload, err := data.EncodeAlert(alert)
	if err != nil {
		h.logger.Printf("Error marshalling alert for broadcast: %v", err)
		return
	}
	h.enqueue(outbound{payload: payload})
}

func (h *Hub) enqueue(msg outbound) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}
