// Package engine handles inbound socket events: it ties the presence
// registry, the receipt state machine and the router together.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/presence"
	"github.com/dhairya9370/wispr-backend/internal/receipt"
	"github.com/dhairya9370/wispr-backend/internal/repo"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const defaultBackupStep = 5

// Presence is the part of the registry the handlers need.
type Presence interface {
	Register(ctx context.Context, connID string, userID primitive.ObjectID) (*model.User, bool, error)
	Unregister(ctx context.Context, connID string) *presence.Departure
	UserOf(connID string) (primitive.ObjectID, bool)
	IsOnline(userID primitive.ObjectID) bool
}

// Notifier pushes events to connections.
type Notifier interface {
	Notify(userID primitive.ObjectID, name string, payload any) int
	NotifySender(connID, name string, payload any) bool
	BroadcastPresenceChange(userID primitive.ObjectID, online bool, at time.Time) int
}

type Engine struct {
	store      repo.Gateway
	presence   Presence
	receipts   *receipt.Tracker
	notifier   Notifier
	logger     *zap.Logger
	validate   *validator.Validate
	chatLocks  *keyedMutex
	backupStep int
	now        func() time.Time
}

type Option func(*Engine)

// WithBackupStep sets the minimum percent advance between two
// backup-progress events.
func WithBackupStep(step int) Option {
	return func(e *Engine) {
		if step > 0 && step <= 100 {
			e.backupStep = step
		}
	}
}

// WithClock replaces time.Now for receipt timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(store repo.Gateway, presence Presence, receipts *receipt.Tracker, notifier Notifier, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		presence:   presence,
		receipts:   receipts,
		notifier:   notifier,
		logger:     logger.Named("engine"),
		validate:   validator.New(),
		chatLocks:  newKeyedMutex(),
		backupStep: defaultBackupStep,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dispatch runs the handler for ev on behalf of connID. A failure is logged
// and reported to connID alone as an error event.
func (e *Engine) Dispatch(ctx context.Context, connID string, ev event.WsEvent) error {
	var err error
	switch ev.Event {
	case event.UserConnect:
		err = e.userConnect(ctx, connID, ev.Payload)
	case event.Disconnect:
		e.disconnect(ctx, connID)
	case event.StartBackup:
		err = e.startBackup(ctx, connID, ev.Payload)
	case event.SendMessage:
		err = e.sendMessage(ctx, connID, ev.Payload)
	case event.ChatActive:
		err = e.chatActive(ctx, connID, ev.Payload)
	case event.DeleteMessage:
		err = e.deleteMessage(ctx, connID, ev.Payload)
	case event.PinUnpinChat:
		e.notifier.NotifySender(connID, event.ChatPinnedUnpinned, nil)
	case event.SetChatOverviewOpen:
		err = e.openChatOverview(connID, ev.Payload)
	case event.NotifyNewGroupCreated:
		err = e.newGroupCreated(ctx, ev.Payload)
	default:
		err = fmt.Errorf("unknown event %q: %w", ev.Event, apperr.ErrInvalidPayload)
	}

	if err != nil {
		e.logger.Error("event handling failed",
			zap.String("event", ev.Event),
			zap.String("conn_id", connID),
			zap.String("code", apperr.Code(err)),
			zap.Error(err),
		)
		e.notifier.NotifySender(connID, event.Error, model.ErrorPayload{
			Event:   ev.Event,
			Code:    apperr.Code(err),
			Message: err.Error(),
		})
	}
	return err
}

// decode unmarshals and validates an inbound payload.
func (e *Engine) decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty payload: %w", apperr.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidPayload, err)
	}
	if err := e.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalidPayload, err)
	}
	return nil
}

// decodeUserID reads a bare user id payload ("<hex>").
func decodeUserID(raw json.RawMessage) (primitive.ObjectID, error) {
	var id primitive.ObjectID
	if err := json.Unmarshal(raw, &id); err != nil {
		return primitive.NilObjectID, fmt.Errorf("user id: %w: %w", apperr.ErrInvalidPayload, err)
	}
	if id.IsZero() {
		return primitive.NilObjectID, fmt.Errorf("user id: %w", apperr.ErrInvalidPayload)
	}
	return id, nil
}

// actingAs rejects payloads that claim a different user than the one the
// connection identified as. Unidentified connections are taken at their word.
func (e *Engine) actingAs(connID string, claimed primitive.ObjectID) error {
	if owner, ok := e.presence.UserOf(connID); ok && owner != claimed {
		return fmt.Errorf("connection belongs to %s, payload claims %s: %w",
			owner.Hex(), claimed.Hex(), apperr.ErrInvalidPayload)
	}
	return nil
}
