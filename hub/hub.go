// Package hub fans workspace change notifications out to connected
// websocket clients. Clients subscribe to named channels and only
// receive frames published on those channels.
package hub

import (
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024
)

// Frame is the wire format exchanged with websocket clients.
type Frame struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type publication struct {
	channel string
	data    []byte
}

type subscription struct {
	client  *Client
	channel string
}

type directMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and routes published frames
// to the clients subscribed to the frame's channel. The Run loop is the
// only goroutine that writes to or closes a client's send channel, so a
// dropped client can never race a concurrent send.
type Hub struct {
	logger *log.Logger

	clients    map[*Client]map[string]bool
	publish    chan publication
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	direct     chan directMessage
}

// New creates a hub. Run must be started on its own goroutine.
func New(logger *log.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]map[string]bool),
		publish:    make(chan publication),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		direct:     make(chan directMessage),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish sends a frame to every client subscribed to its channel.
func (h *Hub) Publish(frame Frame) {
	data, err := sonic.Marshal(frame)
	if err != nil {
		h.logger.WithError(err).Error("marshal frame")
		return
	}
	h.publish <- publication{channel: frame.Channel, data: data}
}

// sendTo queues a frame for one client. The message is dropped when the
// client has already been removed from the hub.
func (h *Hub) sendTo(client *Client, data []byte) {
	h.direct <- directMessage{client: client, data: data}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = make(map[string]bool)
			h.logger.WithField("remote", client.remote).Debug("client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.WithField("remote", client.remote).Debug("client disconnected")
			}
		case sub := <-h.subscribe:
			if channels, ok := h.clients[sub.client]; ok {
				channels[sub.channel] = true
				h.logger.WithFields(log.Fields{
					"remote":  sub.client.remote,
					"channel": sub.channel,
				}).Debug("client subscribed")
			}
		case dm := <-h.direct:
			if _, ok := h.clients[dm.client]; !ok {
				continue
			}
			select {
			case dm.client.send <- dm.data:
			default:
				close(dm.client.send)
				delete(h.clients, dm.client)
			}
		case pub := <-h.publish:
			for client, channels := range h.clients {
				if !channels[pub.channel] {
					continue
				}
				select {
				case client.send <- pub.data:
				default:
					// send buffer full, assume the peer is gone
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}
