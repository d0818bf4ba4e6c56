package handlers

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/wardenbot/warden/internal/db"
	"github.com/wardenbot/warden/internal/moderation"
)

// identityStore is the slice of the persistence layer the command handler
// needs to resolve users and chats.
type identityStore interface {
	UpsertUser(ctx context.Context, user *db.User) (*db.User, error)
	GetUser(ctx context.Context, userID int64) (*db.User, error)
	GetUserByUserName(ctx context.Context, username string) (*db.User, error)
	UpsertChat(ctx context.Context, chat *db.Chat) (*db.Chat, error)
}

// Commands maps moderation commands to engine calls. Parsing and dispatch
// only; all policy lives in the engine.
type Commands struct {
	bot     *api.BotAPI
	engine  *moderation.Engine
	gateway moderation.Gateway
	store   identityStore
	logger  *log.Entry
}

func NewCommands(bot *api.BotAPI, engine *moderation.Engine, gateway moderation.Gateway, store identityStore) *Commands {
	return &Commands{
		bot:     bot,
		engine:  engine,
		gateway: gateway,
		store:   store,
		logger:  log.WithField("handler", "moderation"),
	}
}

// Handle processes one update. Returns true when the update was consumed.
func (h *Commands) Handle(ctx context.Context, u *api.Update) (bool, error) {
	msg := u.Message
	if msg == nil || !msg.IsCommand() || msg.From == nil {
		return false, nil
	}

	switch msg.Command() {
	case "warn", "ban", "unmute", "unban", "pardon", "next":
	default:
		return false, nil
	}

	issuerIsAdmin, err := h.gateway.IsChatAdmin(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		return true, fmt.Errorf("check issuer admin status: %w", err)
	}
	if !issuerIsAdmin {
		h.reply(msg, "moderation commands are for chat admins only")
		return true, nil
	}

	chat, err := h.store.UpsertChat(ctx, &db.Chat{ID: msg.Chat.ID, Title: msg.Chat.Title})
	if err != nil {
		return true, fmt.Errorf("resolve chat: %w", err)
	}
	admin, err := h.store.UpsertUser(ctx, &db.User{
		ID:        msg.From.ID,
		UserName:  msg.From.UserName,
		FirstName: msg.From.FirstName,
	})
	if err != nil {
		return true, fmt.Errorf("resolve admin: %w", err)
	}

	violator, err := h.resolveViolator(ctx, msg)
	if err != nil {
		h.reply(msg, err.Error())
		return true, nil
	}

	switch msg.Command() {
	case "warn":
		return true, h.warn(ctx, msg, chat, violator, admin, false)
	case "ban":
		return true, h.warn(ctx, msg, chat, violator, admin, true)
	case "unmute":
		return true, h.amnesty(ctx, msg, chat, violator, h.engine.Unmute, "unmuted")
	case "unban":
		return true, h.amnesty(ctx, msg, chat, violator, h.engine.Unban, "amnestied")
	case "pardon":
		return true, h.amnesty(ctx, msg, chat, violator, h.engine.CancelLastWarning, "pardoned")
	case "next":
		return true, h.preview(ctx, msg, chat, violator)
	}
	return false, nil
}

func (h *Commands) warn(ctx context.Context, msg *api.Message, chat *db.Chat, violator, admin *db.User, directBan bool) error {
	req := moderation.SanctionRequest{
		Chat:     chat,
		Violator: violator,
		Admin:    admin,
		Reason:   reasonFromArgs(msg.CommandArguments()),
		Origin:   originOf(msg),
	}

	var (
		outcome *moderation.SanctionOutcome
		err     error
	)
	if directBan {
		outcome, err = h.engine.IssueBan(ctx, req)
	} else {
		outcome, err = h.engine.IssueWarning(ctx, req)
	}
	if err != nil {
		h.logger.WithError(err).WithField("chat_id", chat.ID).Warn("sanction failed")
		h.reply(msg, fmt.Sprintf("failed: %v", err))
		return nil
	}
	h.logger.WithField("incident_id", outcome.IncidentID).Info("sanction applied")
	return nil
}

type amnestyOp func(ctx context.Context, violator *db.User, chats []*db.Chat) (moderation.AmnestyResult, error)

func (h *Commands) amnesty(ctx context.Context, msg *api.Message, chat *db.Chat, violator *db.User, op amnestyOp, verb string) error {
	chats := []*db.Chat{chat}
	if wantsAllChats(msg.CommandArguments()) {
		all, err := h.engine.Amnesty.TargetsForUser(ctx, violator.ID)
		if err != nil {
			return fmt.Errorf("resolve target chats: %w", err)
		}
		if len(all) > 0 {
			chats = all
		}
	}

	result, err := op(ctx, violator, chats)
	if err != nil {
		return err
	}

	switch {
	case result.NothingToDo():
		h.reply(msg, "nothing to do")
	case len(result.FailedChats) > 0:
		h.reply(msg, fmt.Sprintf("%s in %d of %d chats, failed in: %s",
			verb, result.Succeeded, result.Succeeded+len(result.FailedChats), strings.Join(result.FailedChats, ", ")))
	default:
		h.reply(msg, fmt.Sprintf("%s in %d chat(s)", verb, result.Succeeded))
	}

	for _, preview := range result.Previews {
		h.reply(msg, fmt.Sprintf("%s: next sanction would be step %d (%s)",
			preview.ChatTitle, preview.Next.Step, preview.Next.Sanction.Type))
	}
	return nil
}

func (h *Commands) preview(ctx context.Context, msg *api.Message, chat *db.Chat, violator *db.User) error {
	next, err := h.engine.PreviewNextSanction(ctx, chat.ID, violator.ID)
	if err != nil {
		return err
	}
	h.reply(msg, fmt.Sprintf("next sanction for %s: step %d (%s)", violator.UserName, next.Step, next.Sanction.Type))
	return nil
}

// resolveViolator prefers the replied-to message author, falling back to a
// @handle or numeric id in the command arguments.
func (h *Commands) resolveViolator(ctx context.Context, msg *api.Message) (*db.User, error) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		from := msg.ReplyToMessage.From
		return h.store.UpsertUser(ctx, &db.User{
			ID:        from.ID,
			UserName:  from.UserName,
			FirstName: from.FirstName,
		})
	}

	args := strings.Fields(msg.CommandArguments())
	for _, arg := range args {
		if handle, ok := strings.CutPrefix(arg, "@"); ok {
			user, err := h.store.GetUserByUserName(ctx, handle)
			if err != nil {
				return nil, fmt.Errorf("lookup @%s: %w", handle, err)
			}
			if user == nil {
				return nil, fmt.Errorf("unknown user @%s", handle)
			}
			return user, nil
		}
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
			user, err := h.store.GetUser(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("lookup id %d: %w", id, err)
			}
			if user == nil {
				return nil, fmt.Errorf("unknown user id %d", id)
			}
			return user, nil
		}
	}
	return nil, fmt.Errorf("reply to the offender's message or pass @handle / id")
}

func originOf(msg *api.Message) moderation.Origin {
	if msg.ReplyToMessage == nil {
		return moderation.Origin{Kind: moderation.OriginCommand}
	}
	return moderation.Origin{
		Kind:      moderation.OriginReply,
		MessageID: msg.ReplyToMessage.MessageID,
		SentAt:    time.Unix(int64(msg.ReplyToMessage.Date), 0),
	}
}

// wantsAllChats reports whether the arguments carry a bare "all" selector.
// Substring matches would trip on handles like @allan.
func wantsAllChats(args string) bool {
	return slices.Contains(strings.Fields(args), "all")
}

// reasonFromArgs strips target selectors, keeping the free-form reason text.
func reasonFromArgs(args string) string {
	fields := strings.Fields(args)
	kept := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, "@") {
			continue
		}
		if _, err := strconv.ParseInt(f, 10, 64); err == nil {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func (h *Commands) reply(msg *api.Message, text string) {
	response := api.NewMessage(msg.Chat.ID, text)
	response.ReplyParameters.MessageID = msg.MessageID
	response.ReplyParameters.ChatID = msg.Chat.ID
	response.ReplyParameters.AllowSendingWithoutReply = true
	if _, err := h.bot.Send(response); err != nil {
		h.logger.WithError(err).Debug("cant send reply")
	}
}
