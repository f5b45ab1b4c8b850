// Package event defines the WebSocket wire envelope and the event names
// exchanged with clients.
package event

import "encoding/json"

// Client → server.
const (
	UserConnect           = "user-connect"
	StartBackup           = "start-backup"
	SendMessage           = "send-message"
	ChatActive            = "chat-active"
	DeleteMessage         = "delete-message"
	PinUnpinChat          = "pin-unpin-chat"
	SetChatOverviewOpen   = "set-chat-overview-open"
	NotifyNewGroupCreated = "notify-new-group-created"

	// Disconnect is never sent by a client; the hub enqueues it when the
	// socket goes away.
	Disconnect = "disconnect"
)

// Server → client.
const (
	SetUserUI          = "set-user-ui"
	UserOnline         = "user-online"
	UserOffline        = "user-offline"
	BackupProgress     = "backup-progress"
	MessageSent        = "message-sent"
	ReceivedMessage    = "received-message"
	MessageDelivered   = "message-delivered"
	SeenMessages       = "seen-messages"
	MessageDeleted     = "message-deleted"
	ChatPinnedUnpinned = "chat-pinned-unpinned"
	OpenChatOverview   = "open-chat-overview"
	AddedInGroup       = "added-in-group"
	Error              = "error"
)

type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New marshals payload into an envelope. A nil payload leaves Payload empty.
func New(name string, payload any) (WsEvent, error) {
	if payload == nil {
		return WsEvent{Event: name}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: name, Payload: raw}, nil
}
