package service

import (
	"context"

	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reachability answers presence questions from the live registry.
type Reachability interface {
	IsOnline(userID primitive.ObjectID) bool
	OnlineAmong(ids []primitive.ObjectID) []primitive.ObjectID
}

type UserService interface {
	GetUserStatus(ctx context.Context, userID primitive.ObjectID) (model.OnlineStatus, error)
	OnlineParticipants(ids []primitive.ObjectID) []primitive.ObjectID
}

type userService struct {
	repo     repo.UserRepository
	presence Reachability
}

func NewUserService(repo repo.UserRepository, presence Reachability) UserService {
	return &userService{
		repo:     repo,
		presence: presence,
	}
}

// GetUserStatus returns the stored last-seen time with the live online flag.
func (s *userService) GetUserStatus(ctx context.Context, userID primitive.ObjectID) (model.OnlineStatus, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return model.OnlineStatus{}, err
	}
	status := user.Online
	status.Is = s.presence.IsOnline(userID)
	return status, nil
}

func (s *userService) OnlineParticipants(ids []primitive.ObjectID) []primitive.ObjectID {
	return s.presence.OnlineAmong(ids)
}
