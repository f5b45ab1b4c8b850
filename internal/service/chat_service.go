package service

import (
	"context"
	"fmt"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/db"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/repo"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ChatService interface {
	GetActiveChat(ctx context.Context, chatID primitive.ObjectID) (*model.ChatHistory, error)
	GetAllChats(ctx context.Context, userID primitive.ObjectID) ([]model.ChatHistory, error)
	GetChatMessages(ctx context.Context, chatID primitive.ObjectID, page int64) (*db.PaginatedResult[model.Message], error)
	CreateDirectChat(ctx context.Context, participants []primitive.ObjectID) (*model.Chat, bool, error)
	CreateGroup(ctx context.Context, createdBy primitive.ObjectID, participants []primitive.ObjectID) (*model.Chat, error)
	DeleteMessage(ctx context.Context, messageID primitive.ObjectID) error
}

type chatService struct {
	store  repo.Gateway
	logger *zap.Logger
}

func NewChatService(store repo.Gateway, logger *zap.Logger) ChatService {
	return &chatService{
		store:  store,
		logger: logger.Named("chat_service"),
	}
}

func (s *chatService) GetActiveChat(ctx context.Context, chatID primitive.ObjectID) (*model.ChatHistory, error) {
	chat, err := s.store.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.store.LoadMessages(ctx, chat)
	if err != nil {
		return nil, err
	}
	return &model.ChatHistory{Chat: *chat, Messages: msgs}, nil
}

func (s *chatService) GetAllChats(ctx context.Context, userID primitive.ObjectID) ([]model.ChatHistory, error) {
	chats, err := s.store.FindChatsByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.ChatHistory, 0, len(chats))
	for i := range chats {
		msgs, err := s.store.LoadMessages(ctx, &chats[i])
		if err != nil {
			return nil, err
		}
		out = append(out, model.ChatHistory{Chat: chats[i], Messages: msgs})
	}
	return out, nil
}

func (s *chatService) GetChatMessages(ctx context.Context, chatID primitive.ObjectID, page int64) (*db.PaginatedResult[model.Message], error) {
	return s.store.PageMessages(ctx, chatID, db.PaginationParams{Page: page}.Normalize())
}

// CreateDirectChat returns the existing chat between the two users or makes
// a new one; created reports which.
func (s *chatService) CreateDirectChat(ctx context.Context, participants []primitive.ObjectID) (*model.Chat, bool, error) {
	members := lo.Uniq(participants)
	if len(members) != 2 {
		return nil, false, fmt.Errorf("direct chat needs 2 distinct participants, got %d: %w", len(members), apperr.ErrInvalidPayload)
	}
	return s.store.CreateDirectChat(ctx, members[0], members[1])
}

// CreateGroup makes a group whose members always include its creator.
func (s *chatService) CreateGroup(ctx context.Context, createdBy primitive.ObjectID, participants []primitive.ObjectID) (*model.Chat, error) {
	members := lo.Uniq(append(append([]primitive.ObjectID{}, participants...), createdBy))
	if len(members) < 2 {
		return nil, fmt.Errorf("group needs at least 2 members: %w", apperr.ErrInvalidPayload)
	}
	return s.store.CreateGroupChat(ctx, createdBy, members)
}

// DeleteMessage pulls the message out of its chat and removes it.
func (s *chatService) DeleteMessage(ctx context.Context, messageID primitive.ObjectID) error {
	msg, err := s.store.FindMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if err := s.store.RemoveMessageFromChat(ctx, msg.SentTo.ChatID, msg.ID); err != nil {
		return err
	}
	if err := s.store.DeleteMessage(ctx, msg.ID); err != nil {
		return err
	}

	s.logger.Info("message deleted",
		zap.String("message_id", msg.ID.Hex()),
		zap.String("chat_id", msg.SentTo.ChatID.Hex()),
	)
	return nil
}
