package moderation

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wardenbot/warden/internal/db"
	"github.com/wardenbot/warden/internal/observability"
)

const fanOutConcurrency = 4

// ChatPreview pairs a chat with what the next sanction there would now be.
type ChatPreview struct {
	ChatTitle string
	Next      SanctionDecision
}

// AmnestyResult aggregates per-chat outcomes of a reversal. Chats where the
// operation did not apply are skipped, not failed.
type AmnestyResult struct {
	Succeeded    int
	FailedChats  []string
	SkippedChats []string
	Previews     []ChatPreview
}

// NothingToDo reports that no selected chat had anything to reverse.
func (r AmnestyResult) NothingToDo() bool {
	return r.Succeeded == 0 && len(r.FailedChats) == 0
}

// Amnesty is the reversal-path orchestrator. Every operation fans out over
// the selected chats independently: one chat's failure never aborts the
// others.
type Amnesty struct {
	gateway  Gateway
	resolver *Resolver
	history  historyStore
	statuses statusStore
	chats    chatStore
}

func NewAmnesty(gateway Gateway, resolver *Resolver, history historyStore, statuses statusStore, chats chatStore) *Amnesty {
	return &Amnesty{
		gateway:  gateway,
		resolver: resolver,
		history:  history,
		statuses: statuses,
		chats:    chats,
	}
}

// TargetsForUser resolves the "all chats" selection: every chat where the
// violator has history or a status row.
func (a *Amnesty) TargetsForUser(ctx context.Context, userID int64) ([]*db.Chat, error) {
	return a.chats.ChatsKnownForUser(ctx, userID)
}

// Unmute lifts the mute in every selected chat where the violator is muted.
// Violation history stays untouched: the ladder position is unchanged.
func (a *Amnesty) Unmute(ctx context.Context, violator *db.User, chats []*db.Chat) (AmnestyResult, error) {
	result := a.fanOut(ctx, chats, func(ctx context.Context, chat *db.Chat) (applied bool, err error) {
		status, err := a.statuses.GetStatus(ctx, chat.ID, violator.ID)
		if err != nil {
			return false, err
		}
		if status == nil || !status.ActivelyMuted() {
			return false, nil
		}
		if err := a.gateway.LiftRestrictions(ctx, chat.ID, violator.ID); err != nil {
			return false, err
		}
		status.IsMuted = false
		status.MutedUntil = sql.NullTime{}
		if err := a.statuses.UpsertStatus(ctx, status); err != nil {
			return false, fmt.Errorf("restriction lifted but status write failed: %w", err)
		}
		return true, nil
	})
	observability.RecordAmnesty("unmute", result.outcomeLabel())
	return result, nil
}

// Unban is the full amnesty: lift every restriction, clear both mute and ban
// fields, and erase the violator's history in the chat — a full ladder reset.
func (a *Amnesty) Unban(ctx context.Context, violator *db.User, chats []*db.Chat) (AmnestyResult, error) {
	result := a.fanOut(ctx, chats, func(ctx context.Context, chat *db.Chat) (applied bool, err error) {
		status, err := a.statuses.GetStatus(ctx, chat.ID, violator.ID)
		if err != nil {
			return false, err
		}
		if status == nil || !status.Restricted() {
			return false, nil
		}
		if err := a.gateway.LiftRestrictions(ctx, chat.ID, violator.ID); err != nil {
			return false, err
		}
		status.IsMuted = false
		status.MutedUntil = sql.NullTime{}
		status.IsBanned = false
		status.BannedUntil = sql.NullTime{}
		if err := a.statuses.UpsertStatus(ctx, status); err != nil {
			return false, fmt.Errorf("restriction lifted but status write failed: %w", err)
		}
		if err := a.history.DeletePunishments(ctx, chat.ID, violator.ID); err != nil {
			return false, fmt.Errorf("reset violation history: %w", err)
		}
		return true, nil
	})
	observability.RecordAmnesty("unban", result.outcomeLabel())
	return result, nil
}

// CancelLastWarning removes the single most recent punishment per selected
// chat and previews what the next sanction would now be. Status rows are not
// touched.
func (a *Amnesty) CancelLastWarning(ctx context.Context, violator *db.User, chats []*db.Chat) (AmnestyResult, error) {
	var (
		mu       sync.Mutex
		previews []ChatPreview
	)
	result := a.fanOut(ctx, chats, func(ctx context.Context, chat *db.Chat) (applied bool, err error) {
		deleted, err := a.history.DeleteLastPunishment(ctx, chat.ID, violator.ID)
		if err != nil {
			return false, err
		}
		if !deleted {
			return false, nil
		}
		count, err := a.history.CountPunishments(ctx, chat.ID, violator.ID)
		if err != nil {
			return true, nil // cancellation already happened, preview is best-effort
		}
		next, err := a.resolver.Resolve(ctx, chat.ID, count)
		if err != nil {
			return true, nil
		}
		mu.Lock()
		previews = append(previews, ChatPreview{ChatTitle: chat.Title, Next: next})
		mu.Unlock()
		return true, nil
	})
	result.Previews = previews
	observability.RecordAmnesty("cancel_last_warning", result.outcomeLabel())
	return result, nil
}

// PreviewNextSanction is the read-only half of the reversal flow: what would
// the violator get next, with history as it stands.
func (a *Amnesty) PreviewNextSanction(ctx context.Context, chatID, userID int64) (SanctionDecision, error) {
	count, err := a.history.CountPunishments(ctx, chatID, userID)
	if err != nil {
		return SanctionDecision{}, fmt.Errorf("count violations: %w", err)
	}
	return a.resolver.Resolve(ctx, chatID, count)
}

type chatOp func(ctx context.Context, chat *db.Chat) (applied bool, err error)

// fanOut runs op once per chat with bounded concurrency, collecting per-chat
// outcomes. Errors are recorded per chat and never propagate to siblings.
func (a *Amnesty) fanOut(ctx context.Context, chats []*db.Chat, op chatOp) AmnestyResult {
	var (
		mu     sync.Mutex
		result AmnestyResult
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutConcurrency)
	for _, chat := range chats {
		chat := chat
		g.Go(func() error {
			applied, err := op(groupCtx, chat)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				log.WithError(err).WithField("chat_id", chat.ID).Error("amnesty failed in chat")
				result.FailedChats = append(result.FailedChats, chat.Title)
			case applied:
				result.Succeeded++
			default:
				result.SkippedChats = append(result.SkippedChats, chat.Title)
			}
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func (r AmnestyResult) outcomeLabel() string {
	switch {
	case r.NothingToDo():
		return "nothing_to_do"
	case len(r.FailedChats) > 0:
		return "partial"
	default:
		return "success"
	}
}
