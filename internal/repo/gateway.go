package repo

import (
	"context"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/db"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Gateway is the durable store the realtime engine reads and writes.
// Missing documents surface as apperr.ErrNotFound, every other failure as
// apperr.ErrPersistence.
type Gateway interface {
	UserRepository
	ChatRepository
	MessageRepository
}

type UserRepository interface {
	FindUser(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	SetUserOnline(ctx context.Context, id primitive.ObjectID, isOnline bool, at time.Time) (*model.User, error)
}

type ChatRepository interface {
	FindChat(ctx context.Context, id primitive.ObjectID) (*model.Chat, error)
	// FindChatsByParticipant returns the user's chats in a stable order (by id).
	FindChatsByParticipant(ctx context.Context, userID primitive.ObjectID) ([]model.Chat, error)
	AppendMessageToChat(ctx context.Context, chatID, messageID primitive.ObjectID) error
	RemoveMessageFromChat(ctx context.Context, chatID, messageID primitive.ObjectID) error
	// CreateDirectChat returns the existing direct chat between a and b when
	// there is one; created reports whether a new document was inserted.
	CreateDirectChat(ctx context.Context, a, b primitive.ObjectID) (chat *model.Chat, created bool, err error)
	CreateGroupChat(ctx context.Context, createdBy primitive.ObjectID, participants []primitive.ObjectID) (*model.Chat, error)
}

type MessageRepository interface {
	FindMessage(ctx context.Context, id primitive.ObjectID) (*model.Message, error)
	// LoadMessages returns the chat's messages in the chat's own order.
	// Ids that no longer resolve are skipped.
	LoadMessages(ctx context.Context, chat *model.Chat) ([]model.Message, error)
	PageMessages(ctx context.Context, chatID primitive.ObjectID, params db.PaginationParams) (*db.PaginatedResult[model.Message], error)
	SaveMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
	DeleteMessage(ctx context.Context, id primitive.ObjectID) error
	// AppendDelivered pushes a delivery receipt unless one exists for the
	// recipient. It returns the current document and whether it appended.
	AppendDelivered(ctx context.Context, messageID, recipientID primitive.ObjectID, at time.Time) (*model.Message, bool, error)
	// AppendSeen pushes a seen receipt only when the recipient is already in
	// deliveredTo and not yet in seenBy.
	AppendSeen(ctx context.Context, messageID, recipientID primitive.ObjectID, at time.Time) (*model.Message, bool, error)
}

type mongoGateway struct {
	UserRepository
	ChatRepository
	MessageRepository
}

// NewMongoGateway joins the three collection repositories into one Gateway.
func NewMongoGateway(users UserRepository, chats ChatRepository, messages MessageRepository) Gateway {
	return &mongoGateway{
		UserRepository:    users,
		ChatRepository:    chats,
		MessageRepository: messages,
	}
}
