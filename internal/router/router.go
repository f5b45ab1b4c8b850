// Package router pushes server events to the live connections of a user.
package router

import (
	"time"

	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Sink is one live connection. Send enqueues ev on the connection's egress
// queue and reports false when the connection is gone or saturated.
type Sink interface {
	ID() string
	Send(ev event.WsEvent) bool
}

// Connections looks up live sinks by connection id.
type Connections interface {
	Connection(connID string) (Sink, bool)
	All() []Sink
}

// Resolver maps a user to the ids of its live connections.
type Resolver interface {
	Resolve(userID primitive.ObjectID) []string
}

type Router struct {
	conns    Connections
	presence Resolver
	logger   *zap.Logger
}

func New(conns Connections, presence Resolver, logger *zap.Logger) *Router {
	return &Router{conns: conns, presence: presence, logger: logger.Named("router")}
}

// Notify sends the event to every live connection of userID and returns how
// many accepted it. An offline user is not an error.
func (r *Router) Notify(userID primitive.ObjectID, name string, payload any) int {
	connIDs := r.presence.Resolve(userID)
	if len(connIDs) == 0 {
		return 0
	}

	ev, ok := r.encode(name, payload)
	if !ok {
		return 0
	}

	reached := 0
	for _, connID := range connIDs {
		sink, found := r.conns.Connection(connID)
		if !found {
			continue
		}
		if sink.Send(ev) {
			reached++
		}
	}

	r.logger.Debug("event routed",
		zap.String("event", name),
		zap.String("user_id", userID.Hex()),
		zap.Int("reached", reached),
	)
	return reached
}

// NotifySender replies on the originating connection only.
func (r *Router) NotifySender(connID, name string, payload any) bool {
	sink, found := r.conns.Connection(connID)
	if !found {
		return false
	}
	ev, ok := r.encode(name, payload)
	if !ok {
		return false
	}
	return sink.Send(ev)
}

// Broadcast sends the event to every live connection except those in skip.
func (r *Router) Broadcast(name string, payload any, skip ...string) int {
	ev, ok := r.encode(name, payload)
	if !ok {
		return 0
	}

	excluded := make(map[string]struct{}, len(skip))
	for _, id := range skip {
		excluded[id] = struct{}{}
	}

	reached := 0
	for _, sink := range r.conns.All() {
		if _, skipped := excluded[sink.ID()]; skipped {
			continue
		}
		if sink.Send(ev) {
			reached++
		}
	}
	return reached
}

// BroadcastPresenceChange tells everyone but the user's own devices that the
// user came online or went offline.
func (r *Router) BroadcastPresenceChange(userID primitive.ObjectID, online bool, at time.Time) int {
	own := r.presence.Resolve(userID)
	if online {
		return r.Broadcast(event.UserOnline, model.UserOnlineEvent{UserID: userID.Hex()}, own...)
	}
	return r.Broadcast(event.UserOffline, model.UserOfflineEvent{UserID: userID.Hex(), Last: at}, own...)
}

func (r *Router) encode(name string, payload any) (event.WsEvent, bool) {
	ev, err := event.New(name, payload)
	if err != nil {
		r.logger.Error("failed to encode event payload",
			zap.String("event", name),
			zap.Error(err),
		)
		return event.WsEvent{}, false
	}
	return ev, true
}
