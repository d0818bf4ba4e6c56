package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/tool"

	"github.com/wardenbot/warden/internal/db"
)

func (c *sqliteClient) UpsertUser(ctx context.Context, user *db.User) (*db.User, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if user.Role == "" {
		user.Role = db.RoleOrdinary
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO users (id, username, first_name, role, created_at)
		VALUES (:id, :username, :first_name, :role, :created_at)
		ON CONFLICT(id) DO UPDATE SET
		username = excluded.username,
		first_name = excluded.first_name
	`
	if err := tool.Err(c.db.NamedExecContext(ctx, query, user)); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	var stored db.User
	if err := c.db.GetContext(ctx, &stored, `SELECT id, username, first_name, role, created_at FROM users WHERE id = ?`, user.ID); err != nil {
		return nil, fmt.Errorf("failed to read upserted user: %w", err)
	}
	return &stored, nil
}

// SetUserRole promotes or demotes a user. Rows are created on demand so
// bot admins can be granted before they are ever seen in a chat.
func (c *sqliteClient) SetUserRole(ctx context.Context, userID int64, role db.UserRole) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO users (id, username, first_name, role, created_at)
		VALUES (?, '', '', ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		role = excluded.role
	`
	if err := tool.Err(c.db.ExecContext(ctx, query, userID, role, time.Now())); err != nil {
		return fmt.Errorf("failed to set user role: %w", err)
	}
	return nil
}

func (c *sqliteClient) GetUser(ctx context.Context, userID int64) (*db.User, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var user db.User
	err := c.db.GetContext(ctx, &user, `SELECT id, username, first_name, role, created_at FROM users WHERE id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (c *sqliteClient) GetUserByUserName(ctx context.Context, username string) (*db.User, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var user db.User
	err := c.db.GetContext(ctx, &user, `SELECT id, username, first_name, role, created_at FROM users WHERE username = ? COLLATE NOCASE`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return &user, nil
}

func (c *sqliteClient) UpsertChat(ctx context.Context, chat *db.Chat) (*db.Chat, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO chats (id, title, audit_chat_id)
		VALUES (:id, :title, :audit_chat_id)
		ON CONFLICT(id) DO UPDATE SET
		title = excluded.title
	`
	if err := tool.Err(c.db.NamedExecContext(ctx, query, chat)); err != nil {
		return nil, fmt.Errorf("failed to upsert chat: %w", err)
	}

	var stored db.Chat
	if err := c.db.GetContext(ctx, &stored, `SELECT id, title, audit_chat_id FROM chats WHERE id = ?`, chat.ID); err != nil {
		return nil, fmt.Errorf("failed to read upserted chat: %w", err)
	}
	return &stored, nil
}

func (c *sqliteClient) GetChat(ctx context.Context, chatID int64) (*db.Chat, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var chat db.Chat
	err := c.db.GetContext(ctx, &chat, `SELECT id, title, audit_chat_id FROM chats WHERE id = ?`, chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	return &chat, nil
}

// ChatsKnownForUser returns every chat where the user has either violation
// history or a status row. Used by the multi-chat amnesty fan-out.
func (c *sqliteClient) ChatsKnownForUser(ctx context.Context, userID int64) ([]*db.Chat, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var chats []*db.Chat
	err := c.db.SelectContext(ctx, &chats, `
		SELECT id, title, audit_chat_id FROM chats
		WHERE id IN (
			SELECT chat_id FROM issued_punishments WHERE user_id = ?
			UNION
			SELECT chat_id FROM user_chat_status WHERE user_id = ?
		)
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats for user: %w", err)
	}
	return chats, nil
}
