package engine

import (
	"context"
	"encoding/json"

	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"go.uber.org/zap"
)

func (e *Engine) userConnect(ctx context.Context, connID string, raw json.RawMessage) error {
	userID, err := decodeUserID(raw)
	if err != nil {
		return err
	}

	user, first, err := e.presence.Register(ctx, connID, userID)
	if err == nil {
		e.notifier.NotifySender(connID, event.SetUserUI, model.SetUserUIEvent{User: user})
	}
	if first {
		e.notifier.BroadcastPresenceChange(userID, true, e.now())
	}

	e.logger.Info("user connected",
		zap.String("conn_id", connID),
		zap.String("user_id", userID.Hex()),
		zap.Bool("first_connection", first),
	)
	return err
}

func (e *Engine) disconnect(ctx context.Context, connID string) {
	dep := e.presence.Unregister(ctx, connID)
	if dep == nil {
		return
	}
	if dep.Offline {
		e.notifier.BroadcastPresenceChange(dep.UserID, false, dep.Last)
	}

	e.logger.Info("user disconnected",
		zap.String("conn_id", connID),
		zap.String("user_id", dep.UserID.Hex()),
		zap.Bool("offline", dep.Offline),
	)
}
