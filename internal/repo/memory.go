package repo

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/apperr"
	"github.com/dhairya9370/wispr-backend/internal/db"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryGateway is a process-local Gateway. It backs the "memory" storage
// driver and the package tests. Documents are copied in and out so callers
// never share slices with the store.
type MemoryGateway struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]model.User
	chats    map[primitive.ObjectID]model.Chat
	messages map[primitive.ObjectID]model.Message

	// Fault, when set, is consulted before every operation; a non-nil return
	// is reported as a persistence failure of that operation.
	Fault func(op string) error
}

var _ Gateway = (*MemoryGateway)(nil)

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		users:    make(map[primitive.ObjectID]model.User),
		chats:    make(map[primitive.ObjectID]model.Chat),
		messages: make(map[primitive.ObjectID]model.Message),
	}
}

// PutUser stores or replaces a user document.
func (g *MemoryGateway) PutUser(user model.User) model.User {
	g.mu.Lock()
	defer g.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	g.users[user.ID] = user
	return user
}

// PutChat stores or replaces a chat document.
func (g *MemoryGateway) PutChat(chat model.Chat) model.Chat {
	g.mu.Lock()
	defer g.mu.Unlock()
	if chat.ID.IsZero() {
		chat.ID = primitive.NewObjectID()
	}
	chat = cloneChat(chat)
	g.chats[chat.ID] = chat
	return cloneChat(chat)
}

func (g *MemoryGateway) fault(op string) error {
	if g.Fault == nil {
		return nil
	}
	if err := g.Fault(op); err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrPersistence, err)
	}
	return nil
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
}

// -----------------------------------------------------------------
// Users
// -----------------------------------------------------------------

func (g *MemoryGateway) FindUser(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	if err := g.fault("find user"); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	user, ok := g.users[id]
	if !ok {
		return nil, notFound("find user")
	}
	return &user, nil
}

func (g *MemoryGateway) SetUserOnline(_ context.Context, id primitive.ObjectID, isOnline bool, at time.Time) (*model.User, error) {
	if err := g.fault("set user online"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	user, ok := g.users[id]
	if !ok {
		return nil, notFound("set user online")
	}
	user.Online = model.OnlineStatus{Is: isOnline, Last: at}
	g.users[id] = user
	return &user, nil
}

// -----------------------------------------------------------------
// Chats
// -----------------------------------------------------------------

func (g *MemoryGateway) FindChat(_ context.Context, id primitive.ObjectID) (*model.Chat, error) {
	if err := g.fault("find chat"); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	chat, ok := g.chats[id]
	if !ok {
		return nil, notFound("find chat")
	}
	chat = cloneChat(chat)
	return &chat, nil
}

func (g *MemoryGateway) FindChatsByParticipant(_ context.Context, userID primitive.ObjectID) ([]model.Chat, error) {
	if err := g.fault("find chats by participant"); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	chats := make([]model.Chat, 0)
	for _, chat := range g.chats {
		if chat.HasParticipant(userID) {
			chats = append(chats, cloneChat(chat))
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].ID.Hex() < chats[j].ID.Hex() })
	return chats, nil
}

func (g *MemoryGateway) AppendMessageToChat(_ context.Context, chatID, messageID primitive.ObjectID) error {
	if err := g.fault("append message to chat"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	chat, ok := g.chats[chatID]
	if !ok {
		return notFound("append message to chat")
	}
	if !slices.Contains(chat.Messages, messageID) {
		chat.Messages = append(chat.Messages, messageID)
	}
	chat.LastActive = time.Now()
	g.chats[chatID] = chat
	return nil
}

func (g *MemoryGateway) RemoveMessageFromChat(_ context.Context, chatID, messageID primitive.ObjectID) error {
	if err := g.fault("remove message from chat"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	chat, ok := g.chats[chatID]
	if !ok {
		return nil
	}
	chat.Messages = lo.Without(chat.Messages, messageID)
	g.chats[chatID] = chat
	return nil
}

func (g *MemoryGateway) CreateDirectChat(_ context.Context, a, b primitive.ObjectID) (*model.Chat, bool, error) {
	if err := g.fault("create direct chat"); err != nil {
		return nil, false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, chat := range g.chats {
		if !chat.IsGroup && len(chat.Participants) == 2 && chat.HasParticipant(a) && chat.HasParticipant(b) {
			chat = cloneChat(chat)
			return &chat, false, nil
		}
	}

	chat := model.Chat{
		ID:           primitive.NewObjectID(),
		Participants: []primitive.ObjectID{a, b},
		Messages:     []primitive.ObjectID{},
		LastActive:   time.Now(),
	}
	g.chats[chat.ID] = chat
	chat = cloneChat(chat)
	return &chat, true, nil
}

func (g *MemoryGateway) CreateGroupChat(_ context.Context, createdBy primitive.ObjectID, participants []primitive.ObjectID) (*model.Chat, error) {
	if err := g.fault("create group chat"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

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
		Participants: slices.Clone(participants),
		Messages:     []primitive.ObjectID{},
		LastActive:   now,
	}
	g.chats[chat.ID] = chat
	chat = cloneChat(chat)
	return &chat, nil
}

// -----------------------------------------------------------------
// Messages
// -----------------------------------------------------------------

func (g *MemoryGateway) FindMessage(_ context.Context, id primitive.ObjectID) (*model.Message, error) {
	if err := g.fault("find message"); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	msg, ok := g.messages[id]
	if !ok {
		return nil, notFound("find message")
	}
	msg = msg.Clone()
	return &msg, nil
}

func (g *MemoryGateway) LoadMessages(_ context.Context, chat *model.Chat) ([]model.Message, error) {
	if err := g.fault("load messages"); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]model.Message, 0, len(chat.Messages))
	for _, id := range chat.Messages {
		if msg, ok := g.messages[id]; ok {
			out = append(out, msg.Clone())
		}
	}
	return out, nil
}

func (g *MemoryGateway) PageMessages(_ context.Context, chatID primitive.ObjectID, params db.PaginationParams) (*db.PaginatedResult[model.Message], error) {
	if err := g.fault("page messages"); err != nil {
		return nil, err
	}
	params = params.Normalize()
	g.mu.RLock()
	defer g.mu.RUnlock()

	all := lo.Filter(lo.Values(g.messages), func(msg model.Message, _ int) bool {
		return msg.SentTo.ChatID == chatID
	})
	sort.SliceStable(all, func(i, j int) bool { return all[i].SentTo.At.Before(all[j].SentTo.At) })

	total := int64(len(all))
	start := min((params.Page-1)*params.PageSize, total)
	end := min(start+params.PageSize, total)
	page := lo.Map(all[start:end], func(msg model.Message, _ int) model.Message { return msg.Clone() })

	return db.NewPaginatedResult(page, total, params), nil
}

func (g *MemoryGateway) SaveMessage(_ context.Context, msg *model.Message) (*model.Message, error) {
	if err := g.fault("save message"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	saved := msg.Clone()
	if saved.ID.IsZero() {
		saved.ID = primitive.NewObjectID()
	}
	g.messages[saved.ID] = saved
	saved = saved.Clone()
	return &saved, nil
}

func (g *MemoryGateway) DeleteMessage(_ context.Context, id primitive.ObjectID) error {
	if err := g.fault("delete message"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.messages, id)
	return nil
}

func (g *MemoryGateway) AppendDelivered(_ context.Context, messageID, recipientID primitive.ObjectID, at time.Time) (*model.Message, bool, error) {
	if err := g.fault("append delivered"); err != nil {
		return nil, false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	msg, ok := g.messages[messageID]
	if !ok {
		return nil, false, notFound("append delivered")
	}
	appended := false
	if !msg.IsDeliveredTo(recipientID) {
		msg = msg.Clone()
		msg.DeliveredTo = append(msg.DeliveredTo, model.Receipt{RecipientID: recipientID, At: at})
		g.messages[messageID] = msg
		appended = true
	}
	msg = msg.Clone()
	return &msg, appended, nil
}

func (g *MemoryGateway) AppendSeen(_ context.Context, messageID, recipientID primitive.ObjectID, at time.Time) (*model.Message, bool, error) {
	if err := g.fault("append seen"); err != nil {
		return nil, false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	msg, ok := g.messages[messageID]
	if !ok {
		return nil, false, notFound("append seen")
	}
	appended := false
	if msg.IsDeliveredTo(recipientID) && !msg.IsSeenBy(recipientID) {
		msg = msg.Clone()
		msg.SeenBy = append(msg.SeenBy, model.Receipt{RecipientID: recipientID, At: at})
		g.messages[messageID] = msg
		appended = true
	}
	msg = msg.Clone()
	return &msg, appended, nil
}

func cloneChat(chat model.Chat) model.Chat {
	chat.Participants = slices.Clone(chat.Participants)
	chat.Messages = slices.Clone(chat.Messages)
	if chat.Group != nil {
		group := *chat.Group
		group.Admins = slices.Clone(group.Admins)
		chat.Group = &group
	}
	return chat
}
