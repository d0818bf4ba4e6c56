package sqlite

import (
	"context"
	"fmt"

	"github.com/wardenbot/warden/internal/db"
)

func (c *sqliteClient) AddPunishment(ctx context.Context, p *db.IssuedPunishment) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO issued_punishments (user_id, chat_id, step, sanction_type, duration_seconds, issuer_id, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := c.db.ExecContext(ctx, query,
		p.UserID,
		p.ChatID,
		p.Step,
		p.Type,
		p.DurationSeconds,
		p.IssuerID,
		p.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add punishment: %w", err)
	}
	return nil
}

func (c *sqliteClient) CountPunishments(ctx context.Context, chatID, userID int64) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	err := c.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM issued_punishments WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count punishments: %w", err)
	}
	return count, nil
}

// DeleteLastPunishment removes the most recently issued punishment for
// (user, chat). Returns false when there was nothing to delete.
func (c *sqliteClient) DeleteLastPunishment(ctx context.Context, chatID, userID int64) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		DELETE FROM issued_punishments
		WHERE id = (
			SELECT id FROM issued_punishments
			WHERE chat_id = ? AND user_id = ?
			ORDER BY issued_at DESC, id DESC
			LIMIT 1
		)
	`, chatID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete last punishment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (c *sqliteClient) DeletePunishments(ctx context.Context, chatID, userID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, err := c.db.ExecContext(ctx, `
		DELETE FROM issued_punishments WHERE chat_id = ? AND user_id = ?
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete punishments: %w", err)
	}
	return nil
}
