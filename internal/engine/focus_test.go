package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/receipt"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func activePayload(chatID primitive.ObjectID) model.ChatActivePayload {
	var p model.ChatActivePayload
	p.ActiveChat.ID = chatID
	return p
}

func (h *harness) deliver(msg model.Message, recipient primitive.ObjectID) {
	_, _, err := h.store.AppendDelivered(h.ctx, msg.ID, recipient, time.Now())
	require.NoError(h.t, err)
}

func TestEngine_ChatActive_Sends_One_Aggregated_Seen_Event(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	chat := h.chat(alice, bob)
	m1 := h.seedMessage(chat, alice, "one")
	m2 := h.seedMessage(chat, alice, "two")
	own := h.seedMessage(chat, bob, "mine")
	h.deliver(m1, bob)
	h.deliver(m2, bob)
	h.deliver(own, alice)
	a1 := h.connect("a1", alice)
	h.connect("b1", bob)

	req.NoError(h.dispatch("b1", event.ChatActive, activePayload(chat.ID)))

	seen := a1.named(event.SeenMessages)
	req.Len(seen, 1)
	payload := decodeAs[model.SeenMessagesEvent](t, seen[0])
	req.Equal(chat.ID, payload.ChatID)
	req.Len(payload.Msgs, 2)
	req.Equal(m1.ID, payload.Msgs[0].ID)
	req.Equal(m2.ID, payload.Msgs[1].ID)

	req.Equal(receipt.Seen, receipt.StateOf(h.message(m1.ID), bob))
	// bob's own message is untouched
	req.Empty(h.message(own.ID).SeenBy)
}

func TestEngine_ChatActive_Skips_Undelivered_Messages(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	chat := h.chat(alice, bob)
	delivered := h.seedMessage(chat, alice, "delivered")
	pending := h.seedMessage(chat, alice, "still pending")
	h.deliver(delivered, bob)
	a1 := h.connect("a1", alice)
	h.connect("b1", bob)

	req.NoError(h.dispatch("b1", event.ChatActive, activePayload(chat.ID)))

	req.Equal(receipt.Seen, receipt.StateOf(h.message(delivered.ID), bob))
	req.Equal(receipt.Pending, receipt.StateOf(h.message(pending.ID), bob))
	// alice still has an unseen message, so she is not told yet
	req.Empty(a1.named(event.SeenMessages))
}

func TestEngine_ChatActive_Group_Waits_For_Every_Member(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob, carol := h.user("Alice"), h.user("Bob"), h.user("Carol")
	chat := h.chat(alice, bob, carol)
	msg := h.seedMessage(chat, alice, "group hello")
	h.deliver(msg, bob)
	h.deliver(msg, carol)
	a1 := h.connect("a1", alice)
	h.connect("b1", bob)
	h.connect("c1", carol)

	req.NoError(h.dispatch("b1", event.ChatActive, activePayload(chat.ID)))
	req.Empty(a1.named(event.SeenMessages))

	req.NoError(h.dispatch("c1", event.ChatActive, activePayload(chat.ID)))
	seen := a1.named(event.SeenMessages)
	req.Len(seen, 1)
	req.Len(decodeAs[model.SeenMessagesEvent](t, seen[0]).Msgs, 1)
	req.True(receipt.IsFullySeen(h.message(msg.ID), chat.Participants))
}

func TestEngine_ChatActive_Concurrent_Passes_Do_Not_Duplicate(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	chat := h.chat(alice, bob)
	var msgs []model.Message
	for i := 0; i < 10; i++ {
		msg := h.seedMessage(chat, alice, "m")
		h.deliver(msg, bob)
		msgs = append(msgs, msg)
	}
	a1 := h.connect("a1", alice)
	h.connect("b1", bob)
	h.connect("b2", bob)

	var wg sync.WaitGroup
	for _, connID := range []string{"b1", "b2", "b1", "b2"} {
		wg.Add(1)
		go func(connID string) {
			defer wg.Done()
			_ = h.dispatch(connID, event.ChatActive, activePayload(chat.ID))
		}(connID)
	}
	wg.Wait()

	req.Len(a1.named(event.SeenMessages), 1)
	for _, msg := range msgs {
		req.Len(h.message(msg.ID).SeenBy, 1)
	}
	req.Zero(h.engine.chatLocks.size())
}

func TestEngine_ChatActive_Outsider_And_Unidentified(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	chat := h.chat(alice, bob)
	msg := h.seedMessage(chat, alice, "private")
	h.deliver(msg, bob)

	// An anonymous socket is ignored
	anon := h.open("anon")
	req.NoError(h.dispatch("anon", event.ChatActive, activePayload(chat.ID)))
	req.Empty(anon.named(event.Error))

	// A connected outsider is rejected
	h.connect("m1", h.user("Mallory"))
	err := h.dispatch("m1", event.ChatActive, activePayload(chat.ID))
	req.ErrorIs(err, apperr.ErrInvalidRecipient)
	req.Empty(h.message(msg.ID).SeenBy)
}
