package repo

import (
	"context"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/db"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type userRepository struct {
	retrier
	mongoRepo *db.Repository[model.User]
}

func NewUserRepository(repo *db.Repository[model.User], logger *zap.Logger) UserRepository {
	return &userRepository{
		retrier:   retrier{logger: logger},
		mongoRepo: repo,
	}
}

func (r *userRepository) FindUser(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var user *model.User
	err := r.withRetry(ctx, "find user", defaultReadTimeout, func(ctx context.Context) error {
		var err error
		user, err = r.mongoRepo.FindByID(ctx, id)
		return err
	})
	return user, err
}

// SetUserOnline overwrites the persisted online status and returns the updated user
func (r *userRepository) SetUserOnline(ctx context.Context, id primitive.ObjectID, isOnline bool, at time.Time) (*model.User, error) {
	update := bson.M{"$set": bson.M{"online": model.OnlineStatus{Is: isOnline, Last: at}}}

	var user *model.User
	err := r.withRetry(ctx, "set user online", defaultWriteTimeout, func(ctx context.Context) error {
		var err error
		user, err = r.mongoRepo.FindOneAndUpdate(ctx, db.NewFilter().Eq("_id", id).Build(), update)
		return err
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("user online status updated",
		zap.String("user_id", id.Hex()),
		zap.Bool("online", isOnline),
	)
	return user, nil
}
