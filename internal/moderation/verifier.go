package moderation

import (
	"context"
	"fmt"

	"github.com/wardenbot/warden/internal/db"
)

const capabilityRestrictMembers = "can_restrict_members"

// Verifier runs the precondition chain before any stateful change. Checks
// run strictly in order and short-circuit on the first failure; the cheap
// identity checks come before any gateway call.
type Verifier struct {
	gateway  Gateway
	statuses statusStore
}

func NewVerifier(gateway Gateway, statuses statusStore) *Verifier {
	return &Verifier{gateway: gateway, statuses: statuses}
}

// Verify returns the violator's status row (created lazily) once every
// precondition holds. On failure nothing has been written.
func (v *Verifier) Verify(ctx context.Context, chat *db.Chat, violator, admin *db.User) (*db.UserChatStatus, error) {
	if violator.ID == admin.ID {
		return nil, ErrSelfPunishment
	}

	auditChatID, ok := chat.AuditChat()
	if !ok {
		return nil, ErrNoAuditChat
	}

	sourcePerms, err := v.gateway.CheckBotPermissions(ctx, chat.ID)
	if err != nil {
		return nil, fmt.Errorf("check bot permissions in chat %d: %w", chat.ID, err)
	}
	if !sourcePerms.IsAdmin || missing(sourcePerms, capabilityRestrictMembers) {
		return nil, ErrBotInsufficientRights
	}

	auditPerms, err := v.gateway.CheckBotPermissions(ctx, auditChatID)
	if err != nil {
		return nil, fmt.Errorf("check bot permissions in audit chat %d: %w", auditChatID, err)
	}
	if !auditPerms.IsMember {
		return nil, ErrBotNotInAuditChat
	}
	if !auditPerms.IsAdmin {
		return nil, ErrBotNotAuditChatAdmin
	}

	isChatAdmin, err := v.gateway.IsChatAdmin(ctx, chat.ID, violator.ID)
	if err != nil {
		return nil, fmt.Errorf("check chat admin status: %w", err)
	}
	if isChatAdmin {
		return nil, ErrProtectedChatAdmin
	}

	if violator.Role == db.RoleAdmin {
		return nil, ErrProtectedBotAdmin
	}

	status, err := v.statuses.EnsureStatus(ctx, chat.ID, violator.ID)
	if err != nil {
		return nil, fmt.Errorf("ensure status row: %w", err)
	}
	return status, nil
}

func missing(perms BotPermissions, capability string) bool {
	for _, c := range perms.MissingCapabilities {
		if c == capability {
			return true
		}
	}
	return false
}
