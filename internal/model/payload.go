package model

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// -----------------------------------------------------------------
// WebSocket Event Payloads - Client to Server
// -----------------------------------------------------------------

// SendMessagePayload is sent by the author of a new message
type SendMessagePayload struct {
	UUID    string              `json:"uuid" validate:"required"`
	From    primitive.ObjectID  `json:"from" validate:"required"`
	Content string              `json:"content"`
	File    *File               `json:"file,omitempty"`
	ReplyTo *primitive.ObjectID `json:"replyTo,omitempty"`
	SentTo  SentToPayload       `json:"sentTo"`
}

type SentToPayload struct {
	ChatID primitive.ObjectID `json:"chatId" validate:"required"`
	At     time.Time          `json:"at"`
}

// ChatActivePayload is sent when a client focuses a conversation.
// Only the chat id is trusted; participants are reloaded from storage.
type ChatActivePayload struct {
	ActiveChat struct {
		ID primitive.ObjectID `json:"_id" validate:"required"`
	} `json:"activeChat"`
}

// DeleteMessagePayload is sent by the author after deleting a message
type DeleteMessagePayload struct {
	SenderID     string          `json:"senderId"`
	Msg          json.RawMessage `json:"msg"`
	ChatID       string          `json:"chatId" validate:"required"`
	RecipientIDs []string        `json:"recipientIds"`
}

type ChatOverviewPayload struct {
	ChatID     string `json:"chatId"`
	OnNewGroup bool   `json:"onNewGroup"`
}

// NewGroupPayload announces a freshly created group to its members
type NewGroupPayload struct {
	Chat Chat `json:"chat"`
}

// -----------------------------------------------------------------
// WebSocket Event Payloads - Server to Client
// -----------------------------------------------------------------

type SetUserUIEvent struct {
	User *User `json:"user"`
}

type UserOnlineEvent struct {
	UserID string `json:"userId"`
}

type UserOfflineEvent struct {
	UserID string    `json:"userId"`
	Last   time.Time `json:"last"`
}

// MessageSentEvent echoes the stored message with the client's correlation uuid
type MessageSentEvent struct {
	Msg  *Message `json:"msg"`
	UUID string   `json:"uuid"`
}

// SeenMessagesEvent batches every message that became seen in one focus pass
type SeenMessagesEvent struct {
	Msgs   []Message          `json:"msgs"`
	ChatID primitive.ObjectID `json:"chatId"`
}

type MessageDeletedEvent struct {
	Msg    json.RawMessage `json:"msg"`
	ChatID string          `json:"chatId"`
}

type AddedInGroupEvent struct {
	Chat Chat `json:"chat"`
}

// ErrorPayload represents an error response sent to client via WebSocket
type ErrorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
