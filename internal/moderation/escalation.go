package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wardenbot/warden/internal/db"
	"github.com/wardenbot/warden/internal/observability"
)

// SanctionRequest carries everything the issue path needs. Chat, violator
// and admin must be pre-resolved by the caller.
type SanctionRequest struct {
	Chat     *db.Chat
	Violator *db.User
	Admin    *db.User
	Reason   string
	Origin   Origin
}

// SanctionOutcome reports one successfully applied sanction.
type SanctionOutcome struct {
	IncidentID     string
	Decision       SanctionDecision
	MessageDeleted bool
}

// Escalator is the issue-path orchestrator: verify, resolve, apply, persist,
// report, notify — strictly in that order.
type Escalator struct {
	gateway      Gateway
	verifier     *Verifier
	resolver     *Resolver
	history      historyStore
	statuses     statusStore
	notifyIssuer bool
}

func NewEscalator(gateway Gateway, verifier *Verifier, resolver *Resolver, history historyStore, statuses statusStore, notifyIssuer bool) *Escalator {
	return &Escalator{
		gateway:      gateway,
		verifier:     verifier,
		resolver:     resolver,
		history:      history,
		statuses:     statuses,
		notifyIssuer: notifyIssuer,
	}
}

// Warn resolves the violator's next rung on the ladder and applies it.
func (e *Escalator) Warn(ctx context.Context, req SanctionRequest) (*SanctionOutcome, error) {
	status, err := e.verifier.Verify(ctx, req.Chat, req.Violator, req.Admin)
	if err != nil {
		return nil, err
	}

	count, err := e.history.CountPunishments(ctx, req.Chat.ID, req.Violator.ID)
	if err != nil {
		return nil, fmt.Errorf("count violations: %w", err)
	}

	decision, err := e.resolver.Resolve(ctx, req.Chat.ID, count)
	if err != nil {
		return nil, err
	}

	return e.apply(ctx, req, status, decision)
}

// Ban skips the ladder entirely and applies a permanent restriction.
func (e *Escalator) Ban(ctx context.Context, req SanctionRequest) (*SanctionOutcome, error) {
	status, err := e.verifier.Verify(ctx, req.Chat, req.Violator, req.Admin)
	if err != nil {
		return nil, err
	}

	count, err := e.history.CountPunishments(ctx, req.Chat.ID, req.Violator.ID)
	if err != nil {
		return nil, fmt.Errorf("count violations: %w", err)
	}

	decision := SanctionDecision{Step: count + 1, Sanction: Ban()}
	return e.apply(ctx, req, status, decision)
}

func (e *Escalator) apply(ctx context.Context, req SanctionRequest, status *db.UserChatStatus, decision SanctionDecision) (*SanctionOutcome, error) {
	logger := log.WithField("chat_id", req.Chat.ID).WithField("user_id", req.Violator.ID)

	// External side effect first. A gateway rejection leaves no trace.
	switch decision.Sanction.Type {
	case db.SanctionWarning:
		// A warning carries no platform restriction.
	case db.SanctionMute, db.SanctionBan:
		if err := e.gateway.ApplyRestriction(ctx, req.Chat.ID, req.Violator.ID, decision.Sanction); err != nil {
			logger.WithError(err).Error("gateway rejected sanction")
			return nil, fmt.Errorf("apply %s: %w", decision.Sanction.Type, err)
		}
	default:
		return nil, fmt.Errorf("unknown sanction type %q", decision.Sanction.Type)
	}

	now := time.Now()
	punishment := &db.IssuedPunishment{
		UserID:          req.Violator.ID,
		ChatID:          req.Chat.ID,
		Step:            decision.Step,
		Type:            decision.Sanction.Type,
		DurationSeconds: int64(decision.Sanction.Duration / time.Second),
		IssuerID:        req.Admin.ID,
		IssuedAt:        now,
	}
	// The restriction is already live on the platform, so the record write
	// gets one retry before giving up loudly.
	if err := e.persistWithRetry(ctx, punishment); err != nil {
		logger.WithError(err).Error("sanction applied externally but history write failed")
		return nil, fmt.Errorf("record punishment: %w", err)
	}

	if err := e.updateStatus(ctx, status, decision, now); err != nil {
		logger.WithError(err).Error("sanction applied externally but status write failed")
		return nil, fmt.Errorf("update status: %w", err)
	}

	observability.RecordSanction(string(decision.Sanction.Type))

	outcome := &SanctionOutcome{
		IncidentID: uuid.NewRandom().String(),
		Decision:   decision,
	}

	auditChatID, _ := req.Chat.AuditChat()
	deletion := deletionNotAttempted
	if req.Origin.Kind == OriginReply {
		deletion = e.deleteOffendingMessage(ctx, req, logger)
		outcome.MessageDeleted = deletion == deletionDone
		if err := e.gateway.ForwardMessage(ctx, req.Chat.ID, auditChatID, req.Origin.MessageID); err != nil {
			logger.WithError(err).Warn("cant forward offending message to audit chat")
		}
	}

	report := buildAuditReport(outcome.IncidentID, req, decision, deletion)
	if err := e.gateway.SendMessage(ctx, auditChatID, report); err != nil {
		logger.WithError(err).Warn("cant post audit report")
	}

	if err := e.gateway.SendMessage(ctx, req.Chat.ID, buildChatNotice(req, decision)); err != nil {
		logger.WithError(err).Warn("cant notify source chat")
	}

	if e.notifyIssuer {
		if err := e.gateway.SendMessage(ctx, req.Admin.ID, buildIssuerNotice(req, decision)); err != nil {
			logger.WithError(err).Debug("cant notify issuing admin")
		}
	}

	return outcome, nil
}

func (e *Escalator) persistWithRetry(ctx context.Context, punishment *db.IssuedPunishment) error {
	err := e.history.AddPunishment(ctx, punishment)
	if err == nil {
		return nil
	}
	log.WithError(err).Warn("history write failed, retrying once")
	return e.history.AddPunishment(ctx, punishment)
}

// updateStatus mutates the single status row according to the sanction type.
// Banning clears the mute fields so a user is never both muted and banned.
func (e *Escalator) updateStatus(ctx context.Context, status *db.UserChatStatus, decision SanctionDecision, now time.Time) error {
	switch decision.Sanction.Type {
	case db.SanctionWarning:
		return nil
	case db.SanctionMute:
		status.IsMuted = true
		status.MutedUntil = sql.NullTime{Time: now.Add(decision.Sanction.Duration), Valid: true}
		status.IsBanned = false
		status.BannedUntil = sql.NullTime{}
	case db.SanctionBan:
		status.IsBanned = true
		status.BannedUntil = sql.NullTime{}
		status.IsMuted = false
		status.MutedUntil = sql.NullTime{}
	}
	return e.statuses.UpsertStatus(ctx, status)
}

// deletionResult distinguishes why a message survived: the audit report
// must not blame the edit window for an ordinary platform error.
type deletionResult int

const (
	deletionNotAttempted deletionResult = iota
	deletionDone
	deletionPastEditWindow
	deletionFailed
)

func (e *Escalator) deleteOffendingMessage(ctx context.Context, req SanctionRequest, logger *log.Entry) deletionResult {
	err := e.gateway.DeleteMessage(ctx, req.Chat.ID, req.Origin.MessageID, req.Origin.SentAt)
	if err == nil {
		return deletionDone
	}
	if errors.Is(err, ErrMessageTooOld) {
		logger.WithField("message_id", req.Origin.MessageID).Info("offending message kept, older than edit window")
		return deletionPastEditWindow
	}
	logger.WithError(err).Warn("cant delete offending message")
	return deletionFailed
}
