package engine

import (
	"errors"
	"testing"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/event"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/stretchr/testify/require"
)

func TestEngine_UserConnect_Announces_First_Device_Only(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	bobConn := h.connect("b1", bob)
	bobConn.reset()

	// When alice connects her first device
	a1 := h.connect("a1", alice)

	// Then she gets her profile and bob hears she is online
	ui := a1.named(event.SetUserUI)
	req.Len(ui, 1)
	req.Equal(alice, decodeAs[model.SetUserUIEvent](t, ui[0]).User.ID)
	req.True(decodeAs[model.SetUserUIEvent](t, ui[0]).User.Online.Is)
	online := bobConn.named(event.UserOnline)
	req.Len(online, 1)
	req.Equal(alice.Hex(), decodeAs[model.UserOnlineEvent](t, online[0]).UserID)
	req.Empty(a1.named(event.UserOnline))

	// When she connects a second device nobody is told again
	h.connect("a2", alice)
	req.Len(bobConn.named(event.UserOnline), 1)
}

func TestEngine_Disconnect_Announces_Last_Device_Only(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	h.connect("a1", alice)
	h.connect("a2", alice)
	bobConn := h.connect("b1", bob)

	h.drop("a1")
	req.Empty(bobConn.named(event.UserOffline))

	h.drop("a2")
	offline := bobConn.named(event.UserOffline)
	req.Len(offline, 1)
	payload := decodeAs[model.UserOfflineEvent](t, offline[0])
	req.Equal(alice.Hex(), payload.UserID)
	req.False(payload.Last.IsZero())

	stored, err := h.store.FindUser(h.ctx, alice)
	req.NoError(err)
	req.False(stored.Online.Is)
}

func TestEngine_Disconnect_Of_Unidentified_Socket_Is_Silent(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	bobConn := h.connect("b1", h.user("Bob"))
	h.open("anon")

	h.drop("anon")

	req.Empty(bobConn.named(event.UserOffline))
	req.Empty(bobConn.named(event.Error))
}

func TestEngine_UserConnect_Persistence_Failure_Acks_Error(t *testing.T) {
	req := require.New(t)
	h := newHarness(t)
	alice := h.user("Alice")
	bobConn := h.connect("b1", h.user("Bob"))
	h.store.Fault = func(op string) error {
		if op == "set user online" {
			return errors.New("primary stepped down")
		}
		return nil
	}
	a1 := h.open("a1")

	err := h.dispatch("a1", event.UserConnect, alice)

	// Then only the caller sees the error, but the presence still stands
	req.ErrorIs(err, apperr.ErrPersistence)
	errs := a1.named(event.Error)
	req.Len(errs, 1)
	req.Equal(apperr.CodePersistence, decodeAs[model.ErrorPayload](t, errs[0]).Code)
	req.Empty(bobConn.named(event.Error))
	req.True(h.registry.IsOnline(alice))
	req.Len(bobConn.named(event.UserOnline), 1)
}

func TestEngine_Malformed_And_Unknown_Events(t *testing.T) {
	tests := []struct {
		name string
		ev   event.WsEvent
	}{
		{name: "unknown event", ev: event.WsEvent{Event: "launch-rockets"}},
		{name: "bad user id", ev: event.WsEvent{Event: event.UserConnect, Payload: []byte(`"not-an-id"`)}},
		{name: "missing payload", ev: event.WsEvent{Event: event.SendMessage}},
		{name: "send without chat", ev: event.WsEvent{Event: event.SendMessage, Payload: []byte(`{"uuid":"u1","from":"65f000000000000000000001"}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			h := newHarness(t)
			sink := h.open("c1")

			err := h.engine.Dispatch(h.ctx, "c1", tt.ev)

			req.ErrorIs(err, apperr.ErrInvalidPayload)
			errs := sink.named(event.Error)
			req.Len(errs, 1)
			payload := decodeAs[model.ErrorPayload](t, errs[0])
			req.Equal(tt.ev.Event, payload.Event)
			req.Equal(apperr.CodeInvalidPayload, payload.Code)
		})
	}
}
