package db

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

type (
	SanctionType string

	UserRole string
)

const (
	SanctionWarning SanctionType = "warning"
	SanctionMute    SanctionType = "mute"
	SanctionBan     SanctionType = "ban"

	RoleOrdinary  UserRole = "ordinary"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

type (
	User struct {
		ID        int64     `db:"id"`
		UserName  string    `db:"username"`
		FirstName string    `db:"first_name"`
		Role      UserRole  `db:"role"`
		CreatedAt time.Time `db:"created_at"`
	}

	Chat struct {
		ID          int64         `db:"id"`
		Title       string        `db:"title"`
		AuditChatID sql.NullInt64 `db:"audit_chat_id"`
	}

	// LadderStep is one rung of an escalation ladder. A null ChatID marks
	// the global default scope.
	LadderStep struct {
		ChatID          sql.NullInt64 `db:"chat_id"`
		Step            int           `db:"step"`
		Type            SanctionType  `db:"sanction_type"`
		DurationSeconds int64         `db:"duration_seconds"`
	}

	// IssuedPunishment is immutable once written. The row count per
	// (user, chat) is the user's violation count in that chat.
	IssuedPunishment struct {
		ID              int64        `db:"id"`
		UserID          int64        `db:"user_id"`
		ChatID          int64        `db:"chat_id"`
		Step            int          `db:"step"`
		Type            SanctionType `db:"sanction_type"`
		DurationSeconds int64        `db:"duration_seconds"`
		IssuerID        int64        `db:"issuer_id"`
		IssuedAt        time.Time    `db:"issued_at"`
	}

	UserChatStatus struct {
		UserID      int64        `db:"user_id"`
		ChatID      int64        `db:"chat_id"`
		IsMuted     bool         `db:"is_muted"`
		MutedUntil  sql.NullTime `db:"muted_until"`
		IsBanned    bool         `db:"is_banned"`
		BannedUntil sql.NullTime `db:"banned_until"`
	}
)

// AuditChat returns the configured audit chat id, or false if none is set.
func (c *Chat) AuditChat() (int64, bool) {
	if c == nil || !c.AuditChatID.Valid {
		return 0, false
	}
	return c.AuditChatID.Int64, true
}

func (t SanctionType) Valid() error {
	switch t {
	case SanctionWarning, SanctionMute, SanctionBan:
		return nil
	}
	return errors.Errorf("unknown sanction type %q", string(t))
}

// ActivelyMuted reports whether the mute is still in force. A timed mute
// past its expiry is inactive even if the row has not been refreshed: the
// platform lifts timed restrictions on its own.
func (s *UserChatStatus) ActivelyMuted() bool {
	if s == nil || !s.IsMuted {
		return false
	}
	if s.MutedUntil.Valid && !s.MutedUntil.Time.After(time.Now()) {
		return false
	}
	return true
}

// Restricted reports whether the status carries any active restriction.
func (s *UserChatStatus) Restricted() bool {
	if s == nil {
		return false
	}
	return s.ActivelyMuted() || s.IsBanned
}
