package repo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/db"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryGateway_AppendDelivered_Is_Idempotent_Under_Race(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	g := NewMemoryGateway()
	recipient := primitive.NewObjectID()
	msg, err := g.SaveMessage(ctx, &model.Message{From: primitive.NewObjectID()})
	req.NoError(err)

	// When many goroutines append the same receipt
	var wg sync.WaitGroup
	var mu sync.Mutex
	appendedCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, appended, err := g.AppendDelivered(ctx, msg.ID, recipient, time.Now())
			req.NoError(err)
			if appended {
				mu.Lock()
				appendedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Then exactly one of them appended
	req.Equal(1, appendedCount)
	stored, err := g.FindMessage(ctx, msg.ID)
	req.NoError(err)
	req.Len(stored.DeliveredTo, 1)
}

func TestMemoryGateway_AppendSeen_Requires_Delivery(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	g := NewMemoryGateway()
	recipient := primitive.NewObjectID()
	msg, err := g.SaveMessage(ctx, &model.Message{From: primitive.NewObjectID()})
	req.NoError(err)

	// Given the message is not delivered, seen is not appended
	current, appended, err := g.AppendSeen(ctx, msg.ID, recipient, time.Now())
	req.NoError(err)
	req.False(appended)
	req.Empty(current.SeenBy)

	// When delivered, seen goes through once
	_, _, err = g.AppendDelivered(ctx, msg.ID, recipient, time.Now())
	req.NoError(err)
	_, appended, err = g.AppendSeen(ctx, msg.ID, recipient, time.Now())
	req.NoError(err)
	req.True(appended)
	current, appended, err = g.AppendSeen(ctx, msg.ID, recipient, time.Now())
	req.NoError(err)
	req.False(appended)
	req.Len(current.SeenBy, 1)
}

func TestMemoryGateway_Missing_Message_Is_NotFound(t *testing.T) {
	req := require.New(t)
	g := NewMemoryGateway()

	_, _, err := g.AppendDelivered(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(), time.Now())

	req.ErrorIs(err, apperr.ErrNotFound)
}

func TestMemoryGateway_CreateDirectChat_Does_Not_Duplicate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	g := NewMemoryGateway()
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	first, created, err := g.CreateDirectChat(ctx, a, b)
	req.NoError(err)
	req.True(created)

	// Order of participants does not matter
	second, created, err := g.CreateDirectChat(ctx, b, a)
	req.NoError(err)
	req.False(created)
	req.Equal(first.ID, second.ID)

	// A group with the same two members is not a direct chat
	group, err := g.CreateGroupChat(ctx, a, []primitive.ObjectID{a, b})
	req.NoError(err)
	req.NotEqual(first.ID, group.ID)
	req.False(group.IsDirect())
	req.True(second.IsDirect())
}

func TestMemoryGateway_LoadMessages_Follows_Chat_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	g := NewMemoryGateway()
	from := primitive.NewObjectID()
	chat := g.PutChat(model.Chat{Participants: []primitive.ObjectID{from, primitive.NewObjectID()}})

	var ids []primitive.ObjectID
	for i := 0; i < 5; i++ {
		msg, err := g.SaveMessage(ctx, &model.Message{From: from, SentTo: model.SentTo{ChatID: chat.ID}})
		req.NoError(err)
		req.NoError(g.AppendMessageToChat(ctx, chat.ID, msg.ID))
		ids = append(ids, msg.ID)
	}
	// appending twice keeps a single entry
	req.NoError(g.AppendMessageToChat(ctx, chat.ID, ids[0]))

	stored, err := g.FindChat(ctx, chat.ID)
	req.NoError(err)
	req.Equal(ids, stored.Messages)

	msgs, err := g.LoadMessages(ctx, stored)
	req.NoError(err)
	req.Len(msgs, 5)
	for i, msg := range msgs {
		req.Equal(ids[i], msg.ID)
	}
}

func TestMemoryGateway_PageMessages(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	g := NewMemoryGateway()
	chatID := primitive.NewObjectID()
	at := time.Now()
	for i := 0; i < 7; i++ {
		_, err := g.SaveMessage(ctx, &model.Message{SentTo: model.SentTo{ChatID: chatID, At: at.Add(time.Duration(i) * time.Second)}})
		req.NoError(err)
	}

	page, err := g.PageMessages(ctx, chatID, db.PaginationParams{Page: 2, PageSize: 5})
	req.NoError(err)

	req.Len(page.Data, 2)
	req.Equal(int64(7), page.Total)
	req.Equal(int64(2), page.TotalPages)
	req.True(page.Data[0].SentTo.At.Before(page.Data[1].SentTo.At))
}

func TestMemoryGateway_Fault_Is_Persistence_Failure(t *testing.T) {
	req := require.New(t)
	g := NewMemoryGateway()
	g.Fault = func(op string) error {
		if op == "find chat" {
			return errors.New("connection reset")
		}
		return nil
	}

	_, err := g.FindChat(context.Background(), primitive.NewObjectID())

	req.ErrorIs(err, apperr.ErrPersistence)
	req.Equal(apperr.CodePersistence, apperr.Code(err))
}
