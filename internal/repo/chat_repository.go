package repo

import (
	"context"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/db"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const defaultGroupName = "Untitled Group"

type chatRepository struct {
	retrier
	mongoRepo *db.Repository[model.Chat]
}

func NewChatRepository(repo *db.Repository[model.Chat], logger *zap.Logger) ChatRepository {
	return &chatRepository{
		retrier:   retrier{logger: logger},
		mongoRepo: repo,
	}
}

// FindChat fetches a chat document by ID
func (r *chatRepository) FindChat(ctx context.Context, id primitive.ObjectID) (*model.Chat, error) {
	var chat *model.Chat
	err := r.withRetry(ctx, "find chat", defaultReadTimeout, func(ctx context.Context) error {
		var err error
		chat, err = r.mongoRepo.FindByID(ctx, id)
		return err
	})
	return chat, err
}

func (r *chatRepository) FindChatsByParticipant(ctx context.Context, userID primitive.ObjectID) ([]model.Chat, error) {
	filter := db.NewFilter().Eq("participants", userID).Build()
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	var chats []model.Chat
	err := r.withRetry(ctx, "find chats by participant", defaultReadTimeout, func(ctx context.Context) error {
		var err error
		chats, err = r.mongoRepo.FindAll(ctx, filter, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("chats retrieved",
		zap.String("user_id", userID.Hex()),
		zap.Int("count", len(chats)),
	)
	return chats, nil
}

// AppendMessageToChat adds the message id to the chat sequence. $addToSet
// keeps a retried append from duplicating the id.
func (r *chatRepository) AppendMessageToChat(ctx context.Context, chatID, messageID primitive.ObjectID) error {
	update := bson.M{
		"$addToSet": bson.M{"messages": messageID},
		"$set":      bson.M{"lastActive": time.Now()},
	}
	return r.withRetry(ctx, "append message to chat", defaultWriteTimeout, func(ctx context.Context) error {
		_, err := r.mongoRepo.FindOneAndUpdate(ctx, db.NewFilter().Eq("_id", chatID).Build(), update)
		return err
	})
}

func (r *chatRepository) RemoveMessageFromChat(ctx context.Context, chatID, messageID primitive.ObjectID) error {
	update := bson.M{"$pull": bson.M{"messages": messageID}}
	return r.withRetry(ctx, "remove message from chat", defaultWriteTimeout, func(ctx context.Context) error {
		_, err := r.mongoRepo.UpdateOne(ctx, db.NewFilter().Eq("_id", chatID).Build(), update)
		return err
	})
}

// CreateDirectChat looks the pair up before inserting. Two simultaneous
// creations for the same pair can still both insert.
func (r *chatRepository) CreateDirectChat(ctx context.Context, a, b primitive.ObjectID) (*model.Chat, bool, error) {
	filter := db.NewFilter().
		Eq("isGroup", false).
		ArrayExactly("participants", []interface{}{a, b}).
		Build()

	existing, err := r.findOptional(ctx, "find direct chat", filter)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	chat := model.Chat{
		ID:           primitive.NewObjectID(),
		Participants: []primitive.ObjectID{a, b},
		Messages:     []primitive.ObjectID{},
		LastActive:   time.Now(),
	}
	if err := r.insert(ctx, "create direct chat", chat); err != nil {
		return nil, false, err
	}
	return &chat, true, nil
}

func (r *chatRepository) CreateGroupChat(ctx context.Context, createdBy primitive.ObjectID, participants []primitive.ObjectID) (*model.Chat, error) {
	now := time.Now()
	chat := model.Chat{
		ID:      primitive.NewObjectID(),
		IsGroup: true,
		Group: &model.Group{
			Name:      defaultGroupName,
			CreatedBy: createdBy,
			CreatedAt: now,
			Admins:    []primitive.ObjectID{createdBy},
		},
		Participants: participants,
		Messages:     []primitive.ObjectID{},
		LastActive:   now,
	}
	if err := r.insert(ctx, "create group chat", chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) findOptional(ctx context.Context, op string, filter bson.M) (*model.Chat, error) {
	var chats []model.Chat
	err := r.withRetry(ctx, op, defaultReadTimeout, func(ctx context.Context) error {
		var err error
		chats, err = r.mongoRepo.FindAll(ctx, filter, options.Find().SetLimit(1))
		return err
	})
	if err != nil || len(chats) == 0 {
		return nil, err
	}
	return &chats[0], nil
}

func (r *chatRepository) insert(ctx context.Context, op string, chat model.Chat) error {
	return r.withRetry(ctx, op, defaultWriteTimeout, func(ctx context.Context) error {
		_, err := r.mongoRepo.Create(ctx, chat)
		if mongo.IsDuplicateKeyError(err) {
			// an earlier attempt landed
			return nil
		}
		return err
	})
}
