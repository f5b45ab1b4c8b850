package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const fullProgress = 100

type pendingDelivery struct {
	msg          model.Message
	participants []primitive.ObjectID
}

// startBackup applies every delivery receipt the user missed while offline.
// Progress goes to the requesting connection only; it never decreases and
// always ends with a single 100. The pass runs to completion even if the
// connection closes halfway.
func (e *Engine) startBackup(ctx context.Context, connID string, raw json.RawMessage) error {
	userID, err := decodeUserID(raw)
	if err != nil {
		return err
	}
	if err := e.actingAs(connID, userID); err != nil {
		return err
	}

	pending, err := e.collectPending(ctx, userID)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		e.notifier.NotifySender(connID, event.BackupProgress, fullProgress)
		return nil
	}

	total := len(pending)
	done, lastEmitted, failed := 0, 0, 0
	for i := range pending {
		item := &pending[i]
		_, fact, err := e.receipts.Deliver(ctx, &item.msg, item.participants, userID, e.now())
		switch {
		case err != nil:
			failed++
			e.logger.Warn("backup delivery failed",
				zap.String("user_id", userID.Hex()),
				zap.String("message_id", item.msg.ID.Hex()),
				zap.Error(err),
			)
		case fact != nil:
			e.notifier.Notify(item.msg.From, event.MessageDelivered, fact.Message)
		}

		done++
		percent := done * fullProgress / total
		if percent < fullProgress && percent-lastEmitted >= e.backupStep {
			e.notifier.NotifySender(connID, event.BackupProgress, percent)
			lastEmitted = percent
		}
	}
	e.notifier.NotifySender(connID, event.BackupProgress, fullProgress)

	e.logger.Info("backup finished",
		zap.String("user_id", userID.Hex()),
		zap.Int("pending", total),
		zap.Int("failed", failed),
	)
	return nil
}

// collectPending lists, in chat order then message order, the messages
// authored by someone else that were never delivered to userID.
func (e *Engine) collectPending(ctx context.Context, userID primitive.ObjectID) ([]pendingDelivery, error) {
	chats, err := e.store.FindChatsByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}

	var pending []pendingDelivery
	for i := range chats {
		msgs, err := e.store.LoadMessages(ctx, &chats[i])
		if err != nil {
			return nil, fmt.Errorf("backup: chat %s: %w", chats[i].ID.Hex(), err)
		}
		for _, msg := range msgs {
			if msg.From == userID || msg.IsDeliveredTo(userID) {
				continue
			}
			pending = append(pending, pendingDelivery{msg: msg, participants: chats[i].Participants})
		}
	}
	return pending, nil
}
