package moderation

import (
	"context"
	"sync"

	"github.com/wardenbot/warden/internal/db"
)

type statusKey struct {
	chatID int64
	userID int64
}

// cachedStatusStore is a write-through map in front of the status table.
// Reads for hot (user, chat) pairs skip the database; every successful
// mutation refreshes the cached copy.
type cachedStatusStore struct {
	store statusStore

	mu    sync.RWMutex
	cache map[statusKey]db.UserChatStatus
}

func newCachedStatusStore(store statusStore) *cachedStatusStore {
	return &cachedStatusStore{
		store: store,
		cache: map[statusKey]db.UserChatStatus{},
	}
}

func (c *cachedStatusStore) GetStatus(ctx context.Context, chatID, userID int64) (*db.UserChatStatus, error) {
	key := statusKey{chatID: chatID, userID: userID}

	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		copied := cached
		return &copied, nil
	}

	status, err := c.store.GetStatus(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if status != nil {
		c.put(key, *status)
	}
	return status, nil
}

func (c *cachedStatusStore) EnsureStatus(ctx context.Context, chatID, userID int64) (*db.UserChatStatus, error) {
	status, err := c.store.EnsureStatus(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	c.put(statusKey{chatID: chatID, userID: userID}, *status)
	return status, nil
}

func (c *cachedStatusStore) UpsertStatus(ctx context.Context, status *db.UserChatStatus) error {
	if err := c.store.UpsertStatus(ctx, status); err != nil {
		return err
	}
	c.put(statusKey{chatID: status.ChatID, userID: status.UserID}, *status)
	return nil
}

func (c *cachedStatusStore) put(key statusKey, status db.UserChatStatus) {
	c.mu.Lock()
	c.cache[key] = status
	c.mu.Unlock()
}
