package moderation

import "errors"

// Precondition errors. All of them stop the request before any side effect.
var (
	ErrSelfPunishment        = errors.New("admins cannot sanction themselves")
	ErrNoAuditChat           = errors.New("chat has no audit chat configured, ask an admin to set one up")
	ErrBotInsufficientRights = errors.New("bot lacks restriction rights in this chat")
	ErrBotNotInAuditChat     = errors.New("bot is not a member of the audit chat")
	ErrBotNotAuditChatAdmin  = errors.New("bot is not an admin of the audit chat")
	ErrProtectedChatAdmin    = errors.New("chat administrators cannot be sanctioned")
	ErrProtectedBotAdmin     = errors.New("bot administrators cannot be sanctioned")
)

// ErrMessageTooOld is returned by the gateway when the offending message is
// past the platform's 48h edit window. Non-fatal: the sanction proceeds and
// the audit report records the message as kept.
var ErrMessageTooOld = errors.New("message is older than the platform edit window")
