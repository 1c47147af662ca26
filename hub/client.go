package hub

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client represents a connected websocket peer.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
}

// Handler returns the echo handler upgrading requests to websocket
// connections served by the hub.
func Handler(h *Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		client := &Client{
			hub:    h,
			conn:   conn,
			send:   make(chan []byte, 16),
			remote: c.RealIP(),
		}
		h.Register(client)
		go client.writePump()
		go client.readPump()
		return nil
	}
}

// readPump consumes frames from the peer. The only frame a peer may
// send is a subscribe request naming a channel.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).Debug("websocket read")
			}
			return
		}

		var frame Frame
		if err := sonic.Unmarshal(message, &frame); err != nil {
			c.hub.logger.WithError(err).Warn("bad websocket frame")
			continue
		}
		switch frame.Type {
		case "subscribe":
			if frame.Channel != "" {
				c.hub.subscribe <- subscription{client: c, channel: frame.Channel}
			}
		case "ping":
			// routed through the hub loop: it owns the send channel and
			// may have closed it after dropping this client
			pong, err := sonic.Marshal(Frame{Type: "pong"})
			if err == nil {
				c.hub.sendTo(c, pong)
			}
		default:
			c.hub.logger.WithField("type", frame.Type).Debug("ignoring websocket frame")
		}
	}
}

// writePump pushes hub messages and keepalive pings to the peer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
