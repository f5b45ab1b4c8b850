package engine

import (
	"errors"
	"testing"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/receipt"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func sendPayload(from, chatID primitive.ObjectID, content string) model.SendMessagePayload {
	return model.SendMessagePayload{
		UUID:    "client-" + content,
		From:    from,
		Content: content,
		SentTo:  model.SentToPayload{ChatID: chatID},
	}
}

func TestEngine_SendMessage_To_Online_Recipient(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	chat := h.chat(alice, bob)
	a1 := h.connect("a1", alice)
	a2 := h.connect("a2", alice)
	b1 := h.connect("b1", bob)

	err := h.dispatch("a1", event.SendMessage, sendPayload(alice, chat.ID, "hello"))
	req.NoError(err)

	// Then the caller gets the echo with its correlation id
	sent := a1.named(event.MessageSent)
	req.Len(sent, 1)
	echo := decodeAs[model.MessageSentEvent](t, sent[0])
	req.Equal("client-hello", echo.UUID)
	req.Empty(echo.Msg.DeliveredTo)
	req.Empty(a2.named(event.MessageSent))

	// And bob receives it already marked delivered
	received := b1.named(event.ReceivedMessage)
	req.Len(received, 1)
	msg := decodeAs[model.Message](t, received[0])
	req.True(msg.IsDeliveredTo(bob))

	// And every device of alice learns it is fully delivered, once
	for _, sink := range []*recordingSink{a1, a2} {
		delivered := sink.named(event.MessageDelivered)
		req.Len(delivered, 1)
		req.Equal(echo.Msg.ID, decodeAs[model.Message](t, delivered[0]).ID)
	}
	req.True(receipt.IsFullyDelivered(h.message(echo.Msg.ID), chat.Participants))
}

func TestEngine_SendMessage_Group_With_Offline_Member(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob, carol := h.user("Alice"), h.user("Bob"), h.user("Carol")
	chat := h.chat(alice, bob, carol)
	a1 := h.connect("a1", alice)
	b1 := h.connect("b1", bob)

	req.NoError(h.dispatch("a1", event.SendMessage, sendPayload(alice, chat.ID, "hi all")))

	req.Len(b1.named(event.ReceivedMessage), 1)
	req.Empty(a1.named(event.MessageDelivered))

	echo := decodeAs[model.MessageSentEvent](t, a1.named(event.MessageSent)[0])
	stored := h.message(echo.Msg.ID)
	req.Equal(receipt.Delivered, receipt.StateOf(stored, bob))
	req.Equal(receipt.Pending, receipt.StateOf(stored, carol))
	req.False(receipt.IsFullyDelivered(stored, chat.Participants))
}

func TestEngine_SendMessage_Failures_Reach_Caller_Only(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	chat := h.chat(alice, bob)
	a1 := h.connect("a1", alice)
	b1 := h.connect("b1", bob)
	h.store.Fault = func(op string) error {
		if op == "save message" {
			return errors.New("disk full")
		}
		return nil
	}

	err := h.dispatch("a1", event.SendMessage, sendPayload(alice, chat.ID, "lost"))

	req.ErrorIs(err, apperr.ErrPersistence)
	req.Empty(a1.named(event.MessageSent))
	req.Len(a1.named(event.Error), 1)
	req.Empty(b1.named(event.ReceivedMessage))
	req.Empty(b1.named(event.Error))

	stored, err := h.store.FindChat(h.ctx, chat.ID)
	req.NoError(err)
	req.Empty(stored.Messages)
}

func TestEngine_SendMessage_Rejects_Outsider_And_Impersonation(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob, mallory := h.user("Alice"), h.user("Bob"), h.user("Mallory")
	chat := h.chat(alice, bob)
	m1 := h.connect("m1", mallory)

	err := h.dispatch("m1", event.SendMessage, sendPayload(mallory, chat.ID, "let me in"))
	req.ErrorIs(err, apperr.ErrInvalidRecipient)
	req.Equal(apperr.CodeInvalidRecipient, decodeAs[model.ErrorPayload](t, m1.named(event.Error)[0]).Code)

	err = h.dispatch("m1", event.SendMessage, sendPayload(alice, chat.ID, "it's me alice"))
	req.ErrorIs(err, apperr.ErrInvalidPayload)

	stored, err := h.store.FindChat(h.ctx, chat.ID)
	req.NoError(err)
	req.Empty(stored.Messages)
}
