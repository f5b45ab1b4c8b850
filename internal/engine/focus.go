package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/receipt"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// chatActive marks as seen everything the viewer already received in the
// focused chat. A sender hears about it in one seen-messages event, and only
// once all of that sender's messages in the chat are seen by everyone.
func (e *Engine) chatActive(ctx context.Context, connID string, raw json.RawMessage) error {
	viewer, ok := e.presence.UserOf(connID)
	if !ok {
		e.logger.Debug("chat-active from unidentified connection", zap.String("conn_id", connID))
		return nil
	}

	var p model.ChatActivePayload
	if err := e.decode(raw, &p); err != nil {
		return err
	}
	chatID := p.ActiveChat.ID

	unlock := e.chatLocks.Lock(chatID.Hex())
	defer unlock()

	chat, err := e.store.FindChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("chat active: %w", err)
	}
	if !chat.HasParticipant(viewer) {
		return fmt.Errorf("chat active: viewer %s of chat %s: %w", viewer.Hex(), chatID.Hex(), apperr.ErrInvalidRecipient)
	}

	msgs, err := e.store.LoadMessages(ctx, chat)
	if err != nil {
		return fmt.Errorf("chat active: %w", err)
	}

	newlySeen := make(map[primitive.ObjectID][]model.Message)
	for i := range msgs {
		msg := &msgs[i]
		if msg.From == viewer || !msg.IsDeliveredTo(viewer) || msg.IsSeenBy(viewer) {
			continue
		}
		updated, fact, err := e.receipts.See(ctx, msg, chat.Participants, viewer, e.now())
		if err != nil {
			e.logger.Warn("failed to mark message seen",
				zap.String("message_id", msg.ID.Hex()),
				zap.String("viewer_id", viewer.Hex()),
				zap.Error(err),
			)
			continue
		}
		msgs[i] = *updated
		if fact != nil {
			newlySeen[msg.From] = append(newlySeen[msg.From], *updated)
		}
	}

	for _, sender := range chat.Participants {
		seen, ok := newlySeen[sender]
		if !ok {
			continue
		}
		authored := lo.Filter(msgs, func(m model.Message, _ int) bool { return m.From == sender })
		allSeen := lo.EveryBy(authored, func(m model.Message) bool {
			return receipt.IsFullySeen(&m, chat.Participants)
		})
		if !allSeen {
			continue
		}
		e.notifier.Notify(sender, event.SeenMessages, model.SeenMessagesEvent{Msgs: seen, ChatID: chat.ID})
	}
	return nil
}
