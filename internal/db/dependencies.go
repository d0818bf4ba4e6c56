package db

import "context"

// Client is the full persistence surface. Consumers declare the narrow
// slices they need; the sqlite client implements all of them.
type Client interface {
	Close() error

	// Ladder configuration. Read-only from the engine's point of view,
	// except for seeding the global default ladder on first start.
	GetLadder(ctx context.Context, chatID int64) ([]*LadderStep, error)
	GetGlobalLadder(ctx context.Context) ([]*LadderStep, error)
	SeedGlobalLadder(ctx context.Context, steps []*LadderStep) error

	// Violation history.
	AddPunishment(ctx context.Context, p *IssuedPunishment) error
	CountPunishments(ctx context.Context, chatID, userID int64) (int, error)
	DeleteLastPunishment(ctx context.Context, chatID, userID int64) (bool, error)
	DeletePunishments(ctx context.Context, chatID, userID int64) error

	// Restriction status.
	GetStatus(ctx context.Context, chatID, userID int64) (*UserChatStatus, error)
	EnsureStatus(ctx context.Context, chatID, userID int64) (*UserChatStatus, error)
	UpsertStatus(ctx context.Context, status *UserChatStatus) error

	// Identity resolution.
	UpsertUser(ctx context.Context, user *User) (*User, error)
	SetUserRole(ctx context.Context, userID int64, role UserRole) error
	GetUser(ctx context.Context, userID int64) (*User, error)
	GetUserByUserName(ctx context.Context, username string) (*User, error)
	UpsertChat(ctx context.Context, chat *Chat) (*Chat, error)
	GetChat(ctx context.Context, chatID int64) (*Chat, error)
	ChatsKnownForUser(ctx context.Context, userID int64) ([]*Chat, error)
}
