package engine

import (
	"encoding/json"
	"testing"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEngine_DeleteMessage_Notifies_Each_Recipient_Once(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob, carol := h.user("Alice"), h.user("Bob"), h.user("Carol")
	h.connect("a1", alice)
	b1 := h.connect("b1", bob)
	b2 := h.connect("b2", bob)
	c1 := h.connect("c1", carol)

	err := h.dispatch("a1", event.DeleteMessage, model.DeleteMessagePayload{
		SenderID:     alice.Hex(),
		Msg:          json.RawMessage(`{"_id":"x"}`),
		ChatID:       "chat-1",
		RecipientIDs: []string{bob.Hex(), bob.Hex(), "garbage", h.user("Offline").Hex()},
	})

	req.NoError(err)
	for _, sink := range []*recordingSink{b1, b2} {
		deleted := sink.named(event.MessageDeleted)
		req.Len(deleted, 1)
		payload := decodeAs[model.MessageDeletedEvent](t, deleted[0])
		req.Equal("chat-1", payload.ChatID)
		req.JSONEq(`{"_id":"x"}`, string(payload.Msg))
	}
	req.Empty(c1.named(event.MessageDeleted))
}

func TestEngine_Echo_Events(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	a1 := h.connect("a1", h.user("Alice"))

	req.NoError(h.dispatch("a1", event.PinUnpinChat, nil))
	req.NoError(h.dispatch("a1", event.SetChatOverviewOpen, model.ChatOverviewPayload{ChatID: "c-9", OnNewGroup: true}))

	req.Len(a1.named(event.ChatPinnedUnpinned), 1)
	open := a1.named(event.OpenChatOverview)
	req.Len(open, 1)
	req.Equal(model.ChatOverviewPayload{ChatID: "c-9", OnNewGroup: true}, decodeAs[model.ChatOverviewPayload](t, open[0]))
}

func TestEngine_NewGroup_Notifies_Members_But_Creator(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob, carol := h.user("Alice"), h.user("Bob"), h.user("Carol")
	group, err := h.store.CreateGroupChat(h.ctx, alice, []primitive.ObjectID{alice, bob, carol})
	req.NoError(err)
	a1 := h.connect("a1", alice)
	b1 := h.connect("b1", bob)
	c1 := h.connect("c1", carol)

	req.NoError(h.dispatch("a1", event.NotifyNewGroupCreated, model.NewGroupPayload{Chat: *group}))

	req.Empty(a1.named(event.AddedInGroup))
	for _, sink := range []*recordingSink{b1, c1} {
		added := sink.named(event.AddedInGroup)
		req.Len(added, 1)
		req.Equal(group.ID, decodeAs[model.AddedInGroupEvent](t, added[0]).Chat.ID)
	}
}

func TestEngine_NewGroup_Rejects_Direct_Chat(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	direct := h.chat(alice, bob)
	h.connect("a1", alice)
	b1 := h.connect("b1", bob)

	err := h.dispatch("a1", event.NotifyNewGroupCreated, model.NewGroupPayload{Chat: direct})

	req.ErrorIs(err, apperr.ErrInvalidPayload)
	req.Empty(b1.named(event.AddedInGroup))
}
