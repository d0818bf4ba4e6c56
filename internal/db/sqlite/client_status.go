package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wardenbot/warden/internal/db"
)

func (c *sqliteClient) GetStatus(ctx context.Context, chatID, userID int64) (*db.UserChatStatus, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var status db.UserChatStatus
	err := c.db.GetContext(ctx, &status, `
		SELECT user_id, chat_id, is_muted, muted_until, is_banned, banned_until
		FROM user_chat_status
		WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &status, nil
}

// EnsureStatus returns the status row for (user, chat), creating a clean one
// if none exists yet. The insert is a no-op when another writer got there
// first.
func (c *sqliteClient) EnsureStatus(ctx context.Context, chatID, userID int64) (*db.UserChatStatus, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_chat_status (user_id, chat_id, is_muted, is_banned)
		VALUES (?, ?, 0, 0)
	`, userID, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure status: %w", err)
	}

	var status db.UserChatStatus
	err = c.db.GetContext(ctx, &status, `
		SELECT user_id, chat_id, is_muted, muted_until, is_banned, banned_until
		FROM user_chat_status
		WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ensured status: %w", err)
	}
	return &status, nil
}

func (c *sqliteClient) UpsertStatus(ctx context.Context, status *db.UserChatStatus) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO user_chat_status (user_id, chat_id, is_muted, muted_until, is_banned, banned_until)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, chat_id) DO UPDATE SET
		is_muted = excluded.is_muted,
		muted_until = excluded.muted_until,
		is_banned = excluded.is_banned,
		banned_until = excluded.banned_until
	`
	_, err := c.db.ExecContext(ctx, query,
		status.UserID,
		status.ChatID,
		status.IsMuted,
		status.MutedUntil,
		status.IsBanned,
		status.BannedUntil,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert status: %w", err)
	}
	return nil
}
