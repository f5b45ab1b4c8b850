package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"net/http"
	"slices"
	"sync"

	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/router"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

// Dispatcher handles one inbound event for a connection.
type Dispatcher interface {
	Dispatch(ctx context.Context, connID string, ev event.WsEvent) error
}

type clientBucket struct {
	sync.RWMutex
	clients map[string]*Client
}

// Hub owns every live WebSocket connection. It implements
// router.Connections so the router can reach clients by id.
type Hub struct {
	shards     [shardCount]*clientBucket
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

var _ router.Connections = (*Hub)(nil)

func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		logger: logger.Named("hub"),
		ctx:    ctx,
		cancel: cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &clientBucket{
			clients: make(map[string]*Client),
		}
	}

	return h
}

// SetDispatcher wires the event handler. It must be called before ServeWS.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		return slices.Contains(allowed, origin) || slices.Contains(allowed, "*")
	}
}

func getShard(connID string) uint32 {
	if connID == "" {
		return 0
	}

	h := sha1.Sum([]byte(connID))
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (h *Hub) addClient(c *Client) {
	b := h.shards[getShard(c.id)]
	b.Lock()
	b.clients[c.id] = c
	b.Unlock()

	h.logger.Debug("client registered", zap.String("conn_id", c.id))
}

func (h *Hub) removeClient(c *Client) {
	b := h.shards[getShard(c.id)]
	b.Lock()
	delete(b.clients, c.id)
	b.Unlock()

	h.logger.Debug("client removed", zap.String("conn_id", c.id))
}

// Connection implements router.Connections.
func (h *Hub) Connection(connID string) (router.Sink, bool) {
	b := h.shards[getShard(connID)]
	b.RLock()
	defer b.RUnlock()

	c, ok := b.clients[connID]
	if !ok {
		return nil, false
	}
	return c, true
}

// All implements router.Connections.
func (h *Hub) All() []router.Sink {
	out := make([]router.Sink, 0)
	for _, c := range h.clients() {
		out = append(out, c)
	}
	return out
}

func (h *Hub) clients() []*Client {
	out := make([]*Client, 0)
	for _, b := range h.shards {
		b.RLock()
		for _, c := range b.clients {
			out = append(out, c)
		}
		b.RUnlock()
	}
	return out
}

// ServeWS upgrades the request and starts the connection's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(conn, h)
	h.addClient(c)

	h.wg.Add(3)
	go func() { defer h.wg.Done(); c.readPump() }()
	go func() { defer h.wg.Done(); c.writePump() }()
	go func() { defer h.wg.Done(); c.dispatchLoop() }()
}

// dispatch runs one inbound event. Handlers get a context that outlives the
// connection so persistence calls are never cut short by a disconnect.
func (h *Hub) dispatch(c *Client, ev event.WsEvent) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling event",
				zap.String("conn_id", c.id),
				zap.String("event", ev.Event),
				zap.Any("panic", r),
			)
		}
	}()

	if h.dispatcher == nil {
		h.logger.Error("no dispatcher configured", zap.String("event", ev.Event))
		return
	}
	_ = h.dispatcher.Dispatch(context.WithoutCancel(c.ctx), c.id, ev)
}

// Stop closes every connection and waits for their handlers to drain,
// including each connection's disconnect handling, or until ctx expires.
func (h *Hub) Stop(ctx context.Context) error {
	h.cancel()

	for _, c := range h.clients() {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub stopped")
		return nil
	case <-ctx.Done():
		h.logger.Warn("hub stop timed out", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
