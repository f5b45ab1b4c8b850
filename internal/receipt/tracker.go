// Package receipt advances messages through Sent → Delivered → Seen, once
// per recipient. It records transitions and reports them as facts; pushing
// those facts to peers is the router's job.
package receipt

import (
	"context"
	"fmt"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/repo"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type State int

const (
	Pending State = iota
	Delivered
	Seen
)

func (s State) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Seen:
		return "seen"
	default:
		return "pending"
	}
}

// Fact is one recorded transition. Message is the document after the write.
type Fact struct {
	MessageID   primitive.ObjectID
	RecipientID primitive.ObjectID
	State       State
	At          time.Time
	Message     *model.Message
}

type Tracker struct {
	store  repo.Gateway
	logger *zap.Logger
}

func NewTracker(store repo.Gateway, logger *zap.Logger) *Tracker {
	return &Tracker{store: store, logger: logger.Named("receipt")}
}

// RecordSent stores msg and appends it to its chat. If the append fails the
// stored message is deleted again so no orphan is left behind.
func (t *Tracker) RecordSent(ctx context.Context, msg *model.Message) (*model.Message, error) {
	chat, err := t.store.FindChat(ctx, msg.SentTo.ChatID)
	if err != nil {
		return nil, fmt.Errorf("record sent: %w", err)
	}
	if !chat.HasParticipant(msg.From) {
		return nil, fmt.Errorf("record sent: author %s: %w", msg.From.Hex(), apperr.ErrInvalidRecipient)
	}

	draft := msg.Clone()
	draft.DeliveredTo = []model.Receipt{}
	draft.SeenBy = []model.Receipt{}

	saved, err := t.store.SaveMessage(ctx, &draft)
	if err != nil {
		return nil, fmt.Errorf("record sent: %w", err)
	}

	if err := t.store.AppendMessageToChat(ctx, chat.ID, saved.ID); err != nil {
		if delErr := t.store.DeleteMessage(ctx, saved.ID); delErr != nil {
			t.logger.Error("failed to roll back orphaned message",
				zap.String("message_id", saved.ID.Hex()),
				zap.Error(delErr),
			)
		}
		return nil, fmt.Errorf("record sent: %w", err)
	}

	return saved, nil
}

// RecordDelivered loads the message and its chat, then applies Deliver.
func (t *Tracker) RecordDelivered(ctx context.Context, messageID, recipientID primitive.ObjectID, at time.Time) (*model.Message, *Fact, error) {
	msg, participants, err := t.load(ctx, messageID)
	if err != nil {
		return nil, nil, fmt.Errorf("record delivered: %w", err)
	}
	return t.Deliver(ctx, msg, participants, recipientID, at)
}

// Deliver records that recipient received msg. Repeating it is a no-op that
// returns the message unchanged and a nil fact.
func (t *Tracker) Deliver(ctx context.Context, msg *model.Message, participants []primitive.ObjectID, recipientID primitive.ObjectID, at time.Time) (*model.Message, *Fact, error) {
	if err := checkRecipient(msg, participants, recipientID); err != nil {
		return nil, nil, fmt.Errorf("record delivered: %w", err)
	}
	if msg.IsDeliveredTo(recipientID) {
		return msg, nil, nil
	}

	updated, appended, err := t.store.AppendDelivered(ctx, msg.ID, recipientID, at)
	if err != nil {
		return nil, nil, fmt.Errorf("record delivered: %w", err)
	}
	if !appended {
		return updated, nil, nil
	}

	return updated, &Fact{
		MessageID:   msg.ID,
		RecipientID: recipientID,
		State:       Delivered,
		At:          at,
		Message:     updated,
	}, nil
}

// RecordSeen loads the message and its chat, then applies See.
func (t *Tracker) RecordSeen(ctx context.Context, messageID, recipientID primitive.ObjectID, at time.Time) (*model.Message, *Fact, error) {
	msg, participants, err := t.load(ctx, messageID)
	if err != nil {
		return nil, nil, fmt.Errorf("record seen: %w", err)
	}
	return t.See(ctx, msg, participants, recipientID, at)
}

// See records that recipient viewed msg. It fails with
// apperr.ErrDeliveryPrecondition unless msg was delivered to recipient, and
// never stamps seen earlier than delivered.
func (t *Tracker) See(ctx context.Context, msg *model.Message, participants []primitive.ObjectID, recipientID primitive.ObjectID, at time.Time) (*model.Message, *Fact, error) {
	if err := checkRecipient(msg, participants, recipientID); err != nil {
		return nil, nil, fmt.Errorf("record seen: %w", err)
	}
	if msg.IsSeenBy(recipientID) {
		return msg, nil, nil
	}

	deliveredAt, ok := msg.DeliveredAt(recipientID)
	if !ok {
		// the held copy may predate a concurrent delivery
		fresh, err := t.store.FindMessage(ctx, msg.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("record seen: %w", err)
		}
		if deliveredAt, ok = fresh.DeliveredAt(recipientID); !ok {
			return nil, nil, fmt.Errorf("record seen: message %s: %w", msg.ID.Hex(), apperr.ErrDeliveryPrecondition)
		}
	}
	if at.Before(deliveredAt) {
		at = deliveredAt
	}

	updated, appended, err := t.store.AppendSeen(ctx, msg.ID, recipientID, at)
	if err != nil {
		return nil, nil, fmt.Errorf("record seen: %w", err)
	}
	if !appended {
		if updated.IsSeenBy(recipientID) {
			return updated, nil, nil
		}
		return nil, nil, fmt.Errorf("record seen: message %s: %w", msg.ID.Hex(), apperr.ErrDeliveryPrecondition)
	}

	return updated, &Fact{
		MessageID:   msg.ID,
		RecipientID: recipientID,
		State:       Seen,
		At:          at,
		Message:     updated,
	}, nil
}

// StateOf reports how far msg has progressed for recipient.
func StateOf(msg *model.Message, recipientID primitive.ObjectID) State {
	switch {
	case msg.IsSeenBy(recipientID):
		return Seen
	case msg.IsDeliveredTo(recipientID):
		return Delivered
	default:
		return Pending
	}
}

// IsFullyDelivered reports whether the deliveredTo recipients are exactly the
// chat participants other than the author.
func IsFullyDelivered(msg *model.Message, participants []primitive.ObjectID) bool {
	return sameRecipients(msg.DeliveredTo, msg.From, participants)
}

// IsFullySeen is IsFullyDelivered for seenBy.
func IsFullySeen(msg *model.Message, participants []primitive.ObjectID) bool {
	return sameRecipients(msg.SeenBy, msg.From, participants)
}

// Recipients returns the participants a message has to reach.
func Recipients(msg *model.Message, participants []primitive.ObjectID) []primitive.ObjectID {
	return lo.Without(lo.Uniq(participants), msg.From)
}

func sameRecipients(receipts []model.Receipt, from primitive.ObjectID, participants []primitive.ObjectID) bool {
	got := lo.Uniq(lo.Map(receipts, func(r model.Receipt, _ int) primitive.ObjectID { return r.RecipientID }))
	want := lo.Without(lo.Uniq(participants), from)
	return len(got) == len(want) && lo.Every(want, got)
}

func checkRecipient(msg *model.Message, participants []primitive.ObjectID, recipientID primitive.ObjectID) error {
	if recipientID == msg.From || !lo.Contains(participants, recipientID) {
		return fmt.Errorf("recipient %s of message %s: %w", recipientID.Hex(), msg.ID.Hex(), apperr.ErrInvalidRecipient)
	}
	return nil
}

func (t *Tracker) load(ctx context.Context, messageID primitive.ObjectID) (*model.Message, []primitive.ObjectID, error) {
	msg, err := t.store.FindMessage(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}
	chat, err := t.store.FindChat(ctx, msg.SentTo.ChatID)
	if err != nil {
		return nil, nil, err
	}
	return msg, chat.Participants, nil
}
