package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/db"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrInvalidMessage = errors.New("invalid message: message cannot be nil")

type messageRepository struct {
	retrier
	mongoRepo *db.Repository[model.Message]
}

func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		retrier:   retrier{logger: logger},
		mongoRepo: repo,
	}
}

func (m *messageRepository) FindMessage(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	var msg *model.Message
	err := m.withRetry(ctx, "find message", defaultReadTimeout, func(ctx context.Context) error {
		var err error
		msg, err = m.mongoRepo.FindByID(ctx, id)
		return err
	})
	return msg, err
}

// -----------------------------------------------------------------------------
// LoadMessages - populates a chat's message sequence
// -----------------------------------------------------------------------------
func (m *messageRepository) LoadMessages(ctx context.Context, chat *model.Chat) ([]model.Message, error) {
	if chat == nil || len(chat.Messages) == 0 {
		return []model.Message{}, nil
	}

	filter := db.NewFilter().In("_id", chat.Messages).Build()

	var found []model.Message
	err := m.withRetry(ctx, "load messages", defaultReadTimeout, func(ctx context.Context) error {
		var err error
		found, err = m.mongoRepo.FindAll(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	// $in gives no order guarantee; restore the chat's sequence
	byID := lo.KeyBy(found, func(msg model.Message) primitive.ObjectID { return msg.ID })
	ordered := make([]model.Message, 0, len(found))
	for _, id := range chat.Messages {
		if msg, ok := byID[id]; ok {
			ordered = append(ordered, msg)
		}
	}

	m.logger.Debug("messages loaded",
		zap.String("chat_id", chat.ID.Hex()),
		zap.Int("count", len(ordered)),
	)
	return ordered, nil
}

// -----------------------------------------------------------------------------
// PageMessages
// -----------------------------------------------------------------------------
func (m *messageRepository) PageMessages(ctx context.Context, chatID primitive.ObjectID, params db.PaginationParams) (*db.PaginatedResult[model.Message], error) {
	filter := db.NewFilter().Eq("sentTo.chatId", chatID).Build()
	params.SortBy = "sentTo.at"

	var result *db.PaginatedResult[model.Message]
	err := m.withRetry(ctx, "page messages", defaultReadTimeout, func(ctx context.Context) error {
		var err error
		result, err = m.mongoRepo.FindWithPagination(ctx, filter, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Debug("messages paged",
		zap.String("chat_id", chatID.Hex()),
		zap.Int("count", len(result.Data)),
		zap.Int64("total", result.Total),
		zap.Int64("page", result.Page),
	)
	return result, nil
}

// -----------------------------------------------------------------------------
// SaveMessage
// -----------------------------------------------------------------------------

// SaveMessage inserts msg. The id is assigned before the first attempt so a
// retry after a lost acknowledgement hits the duplicate key instead of
// inserting twice.
func (m *messageRepository) SaveMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if msg == nil {
		return nil, fmt.Errorf("save message: %w: %w", apperr.ErrInvalidPayload, ErrInvalidMessage)
	}

	saved := msg.Clone()
	if saved.ID.IsZero() {
		saved.ID = primitive.NewObjectID()
	}

	err := m.withRetry(ctx, "save message", defaultWriteTimeout, func(ctx context.Context) error {
		_, err := m.mongoRepo.Create(ctx, saved)
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("message inserted successfully",
		zap.String("message_id", saved.ID.Hex()),
		zap.String("chat_id", saved.SentTo.ChatID.Hex()),
	)
	return &saved, nil
}

func (m *messageRepository) DeleteMessage(ctx context.Context, id primitive.ObjectID) error {
	return m.withRetry(ctx, "delete message", defaultWriteTimeout, func(ctx context.Context) error {
		_, err := m.mongoRepo.DeleteByID(ctx, id)
		return err
	})
}

// -----------------------------------------------------------------------------
// Receipts - append-if-absent, safe to retry and to race
// -----------------------------------------------------------------------------

func (m *messageRepository) AppendDelivered(ctx context.Context, messageID, recipientID primitive.ObjectID, at time.Time) (*model.Message, bool, error) {
	filter := db.NewFilter().
		Eq("_id", messageID).
		Ne("deliveredTo.recipientId", recipientID).
		Build()

	return m.appendReceipt(ctx, "append delivered", messageID, filter, "deliveredTo", model.Receipt{RecipientID: recipientID, At: at})
}

func (m *messageRepository) AppendSeen(ctx context.Context, messageID, recipientID primitive.ObjectID, at time.Time) (*model.Message, bool, error) {
	filter := db.NewFilter().
		Eq("_id", messageID).
		Eq("deliveredTo.recipientId", recipientID).
		Ne("seenBy.recipientId", recipientID).
		Build()

	return m.appendReceipt(ctx, "append seen", messageID, filter, "seenBy", model.Receipt{RecipientID: recipientID, At: at})
}

// appendReceipt pushes receipt when filter matches. When it does not, the
// current document is read back so the caller can tell "already recorded"
// (or "precondition unmet") from "missing".
func (m *messageRepository) appendReceipt(ctx context.Context, op string, messageID primitive.ObjectID, filter bson.M, field string, receipt model.Receipt) (*model.Message, bool, error) {
	update := bson.M{"$push": bson.M{field: receipt}}

	var msg *model.Message
	err := m.withRetry(ctx, op, defaultWriteTimeout, func(ctx context.Context) error {
		var err error
		msg, err = m.mongoRepo.FindOneAndUpdate(ctx, filter, update)
		return err
	})
	if err == nil {
		return msg, true, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	current, err := m.FindMessage(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}
