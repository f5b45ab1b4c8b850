package hub

import (
	"context"
	"sync"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// tuning parameters
	writeWait      = 10 * time.Second    // time allowed to write a message to the peer
	pongWait       = 60 * time.Second    // time allowed to read the next pong message from the peer
	pingInterval   = (pongWait * 9) / 10 // send pings to peer with this period
	maxMessageSize = 512 * 1024          // max inbound message size, messages may carry file metadata
	sendBufSize    = 256                 // per-connection outbound buffer size
	inboundBufSize = 64                  // per-connection inbound queue
	sendTimeout    = 2 * time.Second     // timeout for enqueuing outbound messages
	kickOnFull     = true                // when true, disconnect client when egress is full
)

// Client is one WebSocket connection. Inbound events are handled one at a
// time in arrival order; outbound events leave in the order they were sent.
type Client struct {
	id          string
	connectedAt time.Time

	conn    *websocket.Conn
	hub     *Hub
	egress  chan event.WsEvent
	inbound chan event.WsEvent

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newClient(conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	return &Client{
		id:          uuid.New().String(),
		connectedAt: time.Now(),
		conn:        conn,
		hub:         h,
		egress:      make(chan event.WsEvent, sendBufSize),
		inbound:     make(chan event.WsEvent, inboundBufSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// readPump reads events until the socket fails, then queues the disconnect
// behind whatever is still pending.
func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.inbound <- event.WsEvent{Event: event.Disconnect}
		close(c.inbound)
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		var ev event.WsEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		if ev.Event == event.Disconnect {
			// reserved for the hub
			continue
		}

		select {
		case c.inbound <- ev:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) dispatchLoop() {
	for ev := range c.inbound {
		c.hub.dispatch(c, ev)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case ev := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.hub.logger.Warn("write failed", zap.String("conn_id", c.id), zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// ID implements router.Sink.
func (c *Client) ID() string { return c.id }

// Send implements router.Sink. It enqueues ev on the egress queue and
// reports false once the client is closed or stays saturated.
func (c *Client) Send(ev event.WsEvent) bool {
	if c.ctx.Err() != nil {
		return false
	}

	select {
	case c.egress <- ev:
		return true
	case <-c.ctx.Done():
		return false
	case <-time.After(sendTimeout):
		c.hub.logger.Warn("egress full", zap.String("conn_id", c.id), zap.String("event", ev.Event))
		if kickOnFull {
			c.Close()
		}
		return false
	}
}

// Close stops the pumps. The egress channel is never closed, so a late Send
// cannot panic.
func (c *Client) Close() {
	c.once.Do(c.cancel)
}
