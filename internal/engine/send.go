package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/receipt"
	"go.uber.org/zap"
)

// sendMessage stores the message, echoes it to the author, delivers it to
// every recipient that is online right now and tells the author once nobody
// is left pending.
func (e *Engine) sendMessage(ctx context.Context, connID string, raw json.RawMessage) error {
	var p model.SendMessagePayload
	if err := e.decode(raw, &p); err != nil {
		return err
	}
	if err := e.actingAs(connID, p.From); err != nil {
		return err
	}

	at := p.SentTo.At
	if at.IsZero() {
		at = e.now()
	}

	saved, err := e.receipts.RecordSent(ctx, &model.Message{
		From:    p.From,
		Content: p.Content,
		File:    p.File,
		ReplyTo: p.ReplyTo,
		SentTo:  model.SentTo{ChatID: p.SentTo.ChatID, At: at},
	})
	if err != nil {
		return err
	}
	e.notifier.NotifySender(connID, event.MessageSent, model.MessageSentEvent{Msg: saved, UUID: p.UUID})

	chat, err := e.store.FindChat(ctx, saved.SentTo.ChatID)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	current := saved
	delivered := 0
	for _, recipient := range receipt.Recipients(saved, chat.Participants) {
		if !e.presence.IsOnline(recipient) {
			continue
		}
		updated, fact, err := e.receipts.Deliver(ctx, current, chat.Participants, recipient, e.now())
		if err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		current = updated
		if fact == nil {
			continue
		}
		delivered++
		e.notifier.Notify(recipient, event.ReceivedMessage, updated)
	}

	if delivered > 0 && receipt.IsFullyDelivered(current, chat.Participants) {
		e.notifier.Notify(current.From, event.MessageDelivered, current)
	}

	e.logger.Debug("message sent",
		zap.String("message_id", saved.ID.Hex()),
		zap.String("chat_id", chat.ID.Hex()),
		zap.Int("delivered_now", delivered),
	)
	return nil
}
