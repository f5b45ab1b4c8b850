package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat represents a direct or group conversation in MongoDB.
// Messages holds message ids in insertion (chronological) order.
type Chat struct {
	ID           primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	IsGroup      bool                 `json:"isGroup" bson:"isGroup"`
	Group        *Group               `json:"group,omitempty" bson:"group,omitempty"`
	Participants []primitive.ObjectID `json:"participants" bson:"participants"`
	Messages     []primitive.ObjectID `json:"messages" bson:"messages"`
	LastActive   time.Time            `json:"lastActive" bson:"lastActive"`
}

// Group is the metadata carried only by group chats
type Group struct {
	Name      string               `json:"name" bson:"name"`
	DP        string               `json:"dp" bson:"dp"`
	CreatedBy primitive.ObjectID   `json:"createdBy" bson:"createdBy"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	Admins    []primitive.ObjectID `json:"admins" bson:"admins"`
}

// ChatHistory is a chat populated with its messages, in chat order.
type ChatHistory struct {
	Chat     Chat      `json:"chat"`
	Messages []Message `json:"messages"`
}

// IsDirect reports whether the chat is a one-to-one conversation.
func (c *Chat) IsDirect() bool {
	return !c.IsGroup && c.Group == nil && len(c.Participants) == 2
}

// HasParticipant reports whether id is one of the chat participants.
func (c *Chat) HasParticipant(id primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}
