// Package realtime maintains the client's subscription to a named server
// channel over a websocket. Inbound messages are notifications to re-fetch,
// not deltas: the handler is expected to reload the affected document from
// the remote store rather than merge fields.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const defaultReconnectDelay = 3 * time.Second

// Message is the wire frame in both directions. Outbound it carries the
// subscribe request; inbound it carries a channel name and an opaque payload.
type Message struct {
	Type    string          `json:"type,omitempty"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Handler receives the payload of every message on the subscribed channel.
type Handler func(payload []byte)

// Channel is a persistent, auto-reconnecting subscription to one server
// channel. It retries with a fixed delay until Close tears it down.
type Channel struct {
	url     string
	name    string
	handler Handler
	logger  *log.Logger
	delay   time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	done      chan struct{}
}

// ChannelOption configures a Channel.
type ChannelOption func(*Channel)

// WithReconnectDelay overrides the fixed delay between reconnect attempts.
func WithReconnectDelay(d time.Duration) ChannelOption {
	return func(c *Channel) { c.delay = d }
}

// Open dials the websocket endpoint, subscribes to the named channel and
// keeps the subscription alive until Close.
func Open(url, channel string, handler Handler, logger *log.Logger, opts ...ChannelOption) *Channel {
	c := &Channel{
		url:     url,
		name:    channel,
		handler: handler,
		logger:  logger,
		delay:   defaultReconnectDelay,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

// Connected reports whether the subscription currently has a live socket.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears down the connection and cancels any pending reconnect.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Channel) run() {
	for {
		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			c.logger.WithError(err).WithField("channel", c.name).Error("realtime dial failed")
			if !c.waitReconnect() {
				return
			}
			continue
		}

		sub, err := sonic.Marshal(Message{Type: "subscribe", Channel: c.name})
		if err == nil {
			err = conn.WriteMessage(websocket.TextMessage, sub)
		}
		if err != nil {
			c.logger.WithError(err).WithField("channel", c.name).Error("realtime subscribe failed")
			_ = conn.Close()
			if !c.waitReconnect() {
				return
			}
			continue
		}

		if !c.attach(conn) {
			_ = conn.Close()
			return
		}
		c.logger.WithField("channel", c.name).Info("realtime channel connected")

		c.readLoop(conn)
		c.detach()

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		c.logger.WithField("channel", c.name).Warn("realtime channel disconnected, reconnecting")
		if !c.waitReconnect() {
			return
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			c.logger.WithError(err).Warn("realtime message unreadable")
			continue
		}
		if msg.Channel != c.name {
			continue
		}
		c.handler(msg.Payload)
	}
}

// attach publishes the live socket; it refuses when Close already ran so
// run() can bail out instead of leaking the connection.
func (c *Channel) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	c.connected = true
	return true
}

func (c *Channel) detach() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// waitReconnect sleeps for the fixed backoff and reports false when Close
// cancelled the wait.
func (c *Channel) waitReconnect() bool {
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-c.done:
		return false
	}
}
