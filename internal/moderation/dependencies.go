package moderation

import (
	"context"
	"time"

	"github.com/wardenbot/warden/internal/db"
)

// Gateway is the chat-platform boundary. No sanction is considered applied
// until the corresponding call returns without error.
type Gateway interface {
	ApplyRestriction(ctx context.Context, chatID, userID int64, sanction Sanction) error
	LiftRestrictions(ctx context.Context, chatID, userID int64) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int, sentAt time.Time) error
	ForwardMessage(ctx context.Context, fromChatID, toChatID int64, messageID int) error
	SendMessage(ctx context.Context, chatID int64, text string) error
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
	CheckBotPermissions(ctx context.Context, chatID int64) (BotPermissions, error)
}

// BotPermissions describes what the bot itself may do in a chat.
type BotPermissions struct {
	IsMember            bool
	IsAdmin             bool
	MissingCapabilities []string
}

type ladderStore interface {
	GetLadder(ctx context.Context, chatID int64) ([]*db.LadderStep, error)
	GetGlobalLadder(ctx context.Context) ([]*db.LadderStep, error)
}

type historyStore interface {
	AddPunishment(ctx context.Context, p *db.IssuedPunishment) error
	CountPunishments(ctx context.Context, chatID, userID int64) (int, error)
	DeleteLastPunishment(ctx context.Context, chatID, userID int64) (bool, error)
	DeletePunishments(ctx context.Context, chatID, userID int64) error
}

type statusStore interface {
	GetStatus(ctx context.Context, chatID, userID int64) (*db.UserChatStatus, error)
	EnsureStatus(ctx context.Context, chatID, userID int64) (*db.UserChatStatus, error)
	UpsertStatus(ctx context.Context, status *db.UserChatStatus) error
}

type chatStore interface {
	GetChat(ctx context.Context, chatID int64) (*db.Chat, error)
	ChatsKnownForUser(ctx context.Context, userID int64) ([]*db.Chat, error)
}

// Store is the persistence surface the engine needs. db.Client satisfies it.
type Store interface {
	ladderStore
	historyStore
	statusStore
	chatStore
}
