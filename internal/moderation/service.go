package moderation

import (
	"context"

	"github.com/wardenbot/warden/internal/db"
)

// Engine bundles the issue and reversal orchestrators behind one constructor.
// Everything is injected explicitly; there is no service registry.
type Engine struct {
	Escalator *Escalator
	Amnesty   *Amnesty
	Resolver  *Resolver
	Verifier  *Verifier
}

type EngineOptions struct {
	NotifyIssuer bool
}

func NewEngine(gateway Gateway, store Store, opts EngineOptions) *Engine {
	statuses := newCachedStatusStore(store)
	resolver := NewResolver(store)
	verifier := NewVerifier(gateway, statuses)
	return &Engine{
		Escalator: NewEscalator(gateway, verifier, resolver, store, statuses, opts.NotifyIssuer),
		Amnesty:   NewAmnesty(gateway, resolver, store, statuses, store),
		Resolver:  resolver,
		Verifier:  verifier,
	}
}

// IssueWarning applies the violator's next ladder step in one chat.
func (e *Engine) IssueWarning(ctx context.Context, req SanctionRequest) (*SanctionOutcome, error) {
	return e.Escalator.Warn(ctx, req)
}

// IssueBan applies a permanent restriction regardless of ladder position.
func (e *Engine) IssueBan(ctx context.Context, req SanctionRequest) (*SanctionOutcome, error) {
	return e.Escalator.Ban(ctx, req)
}

func (e *Engine) Unmute(ctx context.Context, violator *db.User, chats []*db.Chat) (AmnestyResult, error) {
	return e.Amnesty.Unmute(ctx, violator, chats)
}

func (e *Engine) Unban(ctx context.Context, violator *db.User, chats []*db.Chat) (AmnestyResult, error) {
	return e.Amnesty.Unban(ctx, violator, chats)
}

func (e *Engine) CancelLastWarning(ctx context.Context, violator *db.User, chats []*db.Chat) (AmnestyResult, error) {
	return e.Amnesty.CancelLastWarning(ctx, violator, chats)
}

func (e *Engine) PreviewNextSanction(ctx context.Context, chatID, userID int64) (SanctionDecision, error) {
	return e.Amnesty.PreviewNextSanction(ctx, chatID, userID)
}
