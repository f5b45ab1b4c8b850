package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// deleteMessage forwards a deletion to each listed recipient once. The
// deletion itself already happened over HTTP.
func (e *Engine) deleteMessage(_ context.Context, connID string, raw json.RawMessage) error {
	var p model.DeleteMessagePayload
	if err := e.decode(raw, &p); err != nil {
		return err
	}

	out := model.MessageDeletedEvent{Msg: p.Msg, ChatID: p.ChatID}
	for _, hex := range lo.Uniq(p.RecipientIDs) {
		recipient, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			e.logger.Warn("skipping malformed recipient id",
				zap.String("conn_id", connID),
				zap.String("recipient_id", hex),
			)
			continue
		}
		e.notifier.Notify(recipient, event.MessageDeleted, out)
	}
	return nil
}

func (e *Engine) openChatOverview(connID string, raw json.RawMessage) error {
	var p model.ChatOverviewPayload
	if err := e.decode(raw, &p); err != nil {
		return err
	}
	e.notifier.NotifySender(connID, event.OpenChatOverview, p)
	return nil
}

// newGroupCreated announces a group to its members other than the creator.
// The chat is reloaded so members and creator come from storage.
func (e *Engine) newGroupCreated(ctx context.Context, raw json.RawMessage) error {
	var p model.NewGroupPayload
	if err := e.decode(raw, &p); err != nil {
		return err
	}

	chat, err := e.store.FindChat(ctx, p.Chat.ID)
	if err != nil {
		return fmt.Errorf("new group: %w", err)
	}
	if !chat.IsGroup || chat.Group == nil {
		return fmt.Errorf("new group: chat %s is not a group: %w", chat.ID.Hex(), apperr.ErrInvalidPayload)
	}

	out := model.AddedInGroupEvent{Chat: *chat}
	for _, member := range lo.Without(lo.Uniq(chat.Participants), chat.Group.CreatedBy) {
		e.notifier.Notify(member, event.AddedInGroup, out)
	}
	return nil
}
