// Package presence tracks which users are reachable right now.
//
// The registry is a multi-map: a user may hold several live connections
// (devices) and is online while at least one of them is open. Both indexes
// are sharded so that register/unregister for different connections never
// contend on a single lock.
package presence

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"sync"
	"time"

	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type connBucket struct {
	sync.RWMutex
	owners map[string]primitive.ObjectID // connID -> userID
}

type userBucket struct {
	sync.RWMutex
	conns map[primitive.ObjectID]map[string]struct{} // userID -> connIDs
}

// Departure describes the user a closed connection belonged to.
type Departure struct {
	UserID primitive.ObjectID
	// Offline is true when that was the user's last live connection.
	Offline bool
	Last    time.Time
}

type Registry struct {
	conns  [shardCount]*connBucket
	users  [shardCount]*userBucket
	store  repo.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewRegistry(store repo.UserRepository, logger *zap.Logger) *Registry {
	r := &Registry{
		store:  store,
		logger: logger.Named("presence"),
		now:    time.Now,
	}
	for i := 0; i < shardCount; i++ {
		r.conns[i] = &connBucket{owners: make(map[string]primitive.ObjectID)}
		r.users[i] = &userBucket{conns: make(map[primitive.ObjectID]map[string]struct{})}
	}
	return r
}

func getShard(key []byte) uint32 {
	if len(key) == 0 {
		return 0
	}

	h := sha1.Sum(key)
	return binary.BigEndian.Uint32(h[:4]) % shardCount
}

func (r *Registry) connShard(connID string) *connBucket {
	return r.conns[getShard([]byte(connID))]
}

func (r *Registry) userShard(userID primitive.ObjectID) *userBucket {
	return r.users[getShard(userID[:])]
}

// Register maps connID to userID and stamps the user online. first reports
// whether this is the user's only live connection. The mapping always
// stands; a non-nil error only means the persisted status could not be
// updated.
func (r *Registry) Register(ctx context.Context, connID string, userID primitive.ObjectID) (user *model.User, first bool, err error) {
	cb := r.connShard(connID)
	cb.Lock()
	prev, had := cb.owners[connID]
	cb.owners[connID] = userID
	cb.Unlock()

	if had && prev != userID {
		// the connection switched identity; the previous user loses it
		if dep := r.detach(ctx, connID, prev); dep.Offline {
			r.logger.Info("connection re-identified, previous user offline",
				zap.String("conn_id", connID),
				zap.String("user_id", prev.Hex()),
			)
		}
	}

	ub := r.userShard(userID)
	ub.Lock()
	set, ok := ub.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		ub.conns[userID] = set
	}
	first = len(set) == 0
	set[connID] = struct{}{}
	count := len(set)
	ub.Unlock()

	r.logger.Debug("connection registered",
		zap.String("conn_id", connID),
		zap.String("user_id", userID.Hex()),
		zap.Int("user_connections", count),
	)

	user, err = r.store.SetUserOnline(ctx, userID, true, r.now())
	if err != nil {
		r.logger.Error("failed to mark user online", zap.String("user_id", userID.Hex()), zap.Error(err))
		return nil, first, err
	}
	return user, first, nil
}

// Unregister forgets connID. It returns nil for a connection that was never
// registered (or already removed).
func (r *Registry) Unregister(ctx context.Context, connID string) *Departure {
	cb := r.connShard(connID)
	cb.Lock()
	userID, ok := cb.owners[connID]
	delete(cb.owners, connID)
	cb.Unlock()

	if !ok {
		return nil
	}
	dep := r.detach(ctx, connID, userID)
	return &dep
}

// detach removes connID from userID's set and persists the offline status
// when the set became empty.
func (r *Registry) detach(ctx context.Context, connID string, userID primitive.ObjectID) Departure {
	ub := r.userShard(userID)
	ub.Lock()
	last := false
	if set, ok := ub.conns[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			delete(ub.conns, userID)
			last = true
		}
	}
	ub.Unlock()

	dep := Departure{UserID: userID}
	if !last {
		return dep
	}

	dep.Last = r.now()
	if _, err := r.store.SetUserOnline(ctx, userID, false, dep.Last); err != nil {
		r.logger.Error("failed to mark user offline", zap.String("user_id", userID.Hex()), zap.Error(err))
	}

	// A device may have connected while the offline write was in flight;
	// make sure its online write is the one that sticks.
	if r.IsOnline(userID) {
		if _, err := r.store.SetUserOnline(ctx, userID, true, r.now()); err != nil {
			r.logger.Error("failed to restore user online", zap.String("user_id", userID.Hex()), zap.Error(err))
		}
		return dep
	}

	dep.Offline = true
	r.logger.Debug("user went offline", zap.String("user_id", userID.Hex()))
	return dep
}

// Resolve returns every live connection of userID; empty when offline.
func (r *Registry) Resolve(userID primitive.ObjectID) []string {
	ub := r.userShard(userID)
	ub.RLock()
	defer ub.RUnlock()

	set := ub.conns[userID]
	out := make([]string, 0, len(set))
	for connID := range set {
		out = append(out, connID)
	}
	return out
}

func (r *Registry) IsOnline(userID primitive.ObjectID) bool {
	ub := r.userShard(userID)
	ub.RLock()
	defer ub.RUnlock()
	return len(ub.conns[userID]) > 0
}

// UserOf returns the user a connection is registered for.
func (r *Registry) UserOf(connID string) (primitive.ObjectID, bool) {
	cb := r.connShard(connID)
	cb.RLock()
	defer cb.RUnlock()
	userID, ok := cb.owners[connID]
	return userID, ok
}

// OnlineAmong filters ids down to the users that are reachable, keeping order.
func (r *Registry) OnlineAmong(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if r.IsOnline(id) {
			out = append(out, id)
		}
	}
	return out
}

// ConnectionCounts returns the number of live connections per online user.
func (r *Registry) ConnectionCounts() map[primitive.ObjectID]int {
	counts := make(map[primitive.ObjectID]int)
	for _, ub := range r.users {
		ub.RLock()
		for userID, set := range ub.conns {
			counts[userID] = len(set)
		}
		ub.RUnlock()
	}
	return counts
}
