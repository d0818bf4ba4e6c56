package sqlite

import (
	"context"
	"fmt"

	"github.com/wardenbot/warden/internal/db"
)

func (c *sqliteClient) GetLadder(ctx context.Context, chatID int64) ([]*db.LadderStep, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var steps []*db.LadderStep
	err := c.db.SelectContext(ctx, &steps, `
		SELECT chat_id, step, sanction_type, duration_seconds
		FROM ladder_steps
		WHERE chat_id = ?
		ORDER BY step
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ladder for chat %d: %w", chatID, err)
	}
	return steps, nil
}

func (c *sqliteClient) GetGlobalLadder(ctx context.Context) ([]*db.LadderStep, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var steps []*db.LadderStep
	err := c.db.SelectContext(ctx, &steps, `
		SELECT chat_id, step, sanction_type, duration_seconds
		FROM ladder_steps
		WHERE chat_id IS NULL
		ORDER BY step
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get global ladder: %w", err)
	}
	return steps, nil
}

// SeedGlobalLadder inserts the given steps into the global scope, but only
// when the global scope is still empty.
func (c *sqliteClient) SeedGlobalLadder(ctx context.Context, steps []*db.LadderStep) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var count int
	if err := c.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM ladder_steps WHERE chat_id IS NULL`); err != nil {
		return fmt.Errorf("failed to count global ladder steps: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO ladder_steps (chat_id, step, sanction_type, duration_seconds)
		VALUES (NULL, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, step := range steps {
		if _, err = stmt.ExecContext(ctx, step.Step, step.Type, step.DurationSeconds); err != nil {
			return err
		}
	}

	return tx.Commit()
}
