package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/presence"
	"github.com/dhairya9370/wispr-backend/internal/receipt"
	"github.com/dhairya9370/wispr-backend/internal/repo"
	"github.com/dhairya9370/wispr-backend/internal/router"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type recordingSink struct {
	id     string
	mu     sync.Mutex
	events []event.WsEvent
	closed bool
}

func (s *recordingSink) ID() string { return s.id }

func (s *recordingSink) Send(ev event.WsEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func (s *recordingSink) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// named returns the events called name, in arrival order.
func (s *recordingSink) named(name string) []event.WsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.WsEvent
	for _, ev := range s.events {
		if ev.Event == name {
			out = append(out, ev)
		}
	}
	return out
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

type sinkSet struct {
	mu    sync.RWMutex
	sinks map[string]*recordingSink
}

func (c *sinkSet) Connection(id string) (router.Sink, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sinks[id]
	if !ok {
		return nil, false
	}
	return s, true
}

func (c *sinkSet) All() []router.Sink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]router.Sink, 0, len(c.sinks))
	for _, s := range c.sinks {
		out = append(out, s)
	}
	return out
}

type harness struct {
	t        *testing.T
	ctx      context.Context
	store    *repo.MemoryGateway
	registry *presence.Registry
	engine   *Engine
	conns    *sinkSet
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	logger := zap.NewNop()
	store := repo.NewMemoryGateway()
	registry := presence.NewRegistry(store, logger)
	conns := &sinkSet{sinks: make(map[string]*recordingSink)}
	rt := router.New(conns, registry, logger)
	return &harness{
		t:        t,
		ctx:      context.Background(),
		store:    store,
		registry: registry,
		engine:   New(store, registry, receipt.NewTracker(store, logger), rt, logger, opts...),
		conns:    conns,
	}
}

func (h *harness) user(name string) primitive.ObjectID {
	return h.store.PutUser(model.User{Name: name}).ID
}

func (h *harness) chat(participants ...primitive.ObjectID) model.Chat {
	return h.store.PutChat(model.Chat{IsGroup: len(participants) > 2, Participants: participants})
}

// open attaches a socket without identifying it.
func (h *harness) open(connID string) *recordingSink {
	h.conns.mu.Lock()
	defer h.conns.mu.Unlock()
	s := &recordingSink{id: connID}
	h.conns.sinks[connID] = s
	return s
}

// connect opens a socket and sends user-connect on it.
func (h *harness) connect(connID string, userID primitive.ObjectID) *recordingSink {
	s := h.open(connID)
	require.NoError(h.t, h.dispatch(connID, event.UserConnect, userID))
	return s
}

// drop closes the socket and runs the disconnect handler.
func (h *harness) drop(connID string) {
	h.conns.mu.Lock()
	s := h.conns.sinks[connID]
	delete(h.conns.sinks, connID)
	h.conns.mu.Unlock()
	if s != nil {
		s.close()
	}
	require.NoError(h.t, h.engine.Dispatch(h.ctx, connID, event.WsEvent{Event: event.Disconnect}))
}

func (h *harness) dispatch(connID, name string, payload any) error {
	ev, err := event.New(name, payload)
	require.NoError(h.t, err)
	return h.engine.Dispatch(h.ctx, connID, ev)
}

// seedMessage stores a message from author in chat, bypassing the socket flow.
func (h *harness) seedMessage(chat model.Chat, author primitive.ObjectID, content string) model.Message {
	msg, err := h.store.SaveMessage(h.ctx, &model.Message{
		From:        author,
		Content:     content,
		SentTo:      model.SentTo{ChatID: chat.ID, At: h.engine.now()},
		DeliveredTo: []model.Receipt{},
		SeenBy:      []model.Receipt{},
	})
	require.NoError(h.t, err)
	require.NoError(h.t, h.store.AppendMessageToChat(h.ctx, chat.ID, msg.ID))
	return *msg
}

func (h *harness) message(id primitive.ObjectID) *model.Message {
	msg, err := h.store.FindMessage(h.ctx, id)
	require.NoError(h.t, err)
	return msg
}

func decodeAs[T any](t *testing.T, ev event.WsEvent) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Payload, &v))
	return v
}

func progressValues(t *testing.T, s *recordingSink) []int {
	t.Helper()
	var out []int
	for _, ev := range s.named(event.BackupProgress) {
		out = append(out, decodeAs[int](t, ev))
	}
	return out
}
