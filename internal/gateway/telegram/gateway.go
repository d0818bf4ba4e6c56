package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/wardenbot/warden/internal/db"
	"github.com/wardenbot/warden/internal/moderation"
	"github.com/wardenbot/warden/internal/observability"
)

const (
	// Telegram refuses to delete messages older than this.
	editWindow = 48 * time.Hour

	msgNoPrivileges = "not enough rights"
)

// Gateway implements moderation.Gateway on top of the Telegram bot API.
type Gateway struct {
	bot *api.BotAPI
}

func NewGateway(bot *api.BotAPI) *Gateway {
	return &Gateway{bot: bot}
}

func (g *Gateway) ApplyRestriction(ctx context.Context, chatID, userID int64, sanction moderation.Sanction) error {
	done := observability.TimeGatewayCall("apply_restriction")
	defer done()

	switch sanction.Type {
	case db.SanctionWarning:
		// Warnings carry no platform restriction.
		return nil
	case db.SanctionMute:
		config := api.RestrictChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{ChatID: chatID},
				UserID:     userID,
			},
			Permissions: &api.ChatPermissions{},
			UntilDate:   time.Now().Add(sanction.Duration).Unix(),

			UseIndependentChatPermissions: true,
		}
		if _, err := g.bot.Request(config); err != nil {
			return withPrivilegeError(err, "restrict")
		}
		return nil
	case db.SanctionBan:
		config := api.BanChatMemberConfig{
			ChatMemberConfig: api.ChatMemberConfig{
				ChatConfig: api.ChatConfig{ChatID: chatID},
				UserID:     userID,
			},
			RevokeMessages: true,
		}
		if _, err := g.bot.Request(config); err != nil {
			return withPrivilegeError(err, "ban")
		}
		return nil
	}
	return fmt.Errorf("unknown sanction type %q", sanction.Type)
}

// LiftRestrictions removes both a ban and a mute in one go: unban is a no-op
// for merely muted users, and restoring default permissions is a no-op for
// banned ones.
func (g *Gateway) LiftRestrictions(ctx context.Context, chatID, userID int64) error {
	done := observability.TimeGatewayCall("lift_restrictions")
	defer done()

	unban := api.UnbanChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
		OnlyIfBanned: true,
	}
	if _, err := g.bot.Request(unban); err != nil {
		return withPrivilegeError(err, "unban")
	}

	unrestrict := api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
		Permissions: &api.ChatPermissions{
			CanSendMessages:       true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
		},
	}
	if _, err := g.bot.Request(unrestrict); err != nil {
		return withPrivilegeError(err, "unrestrict")
	}
	return nil
}

func (g *Gateway) DeleteMessage(ctx context.Context, chatID int64, messageID int, sentAt time.Time) error {
	done := observability.TimeGatewayCall("delete_message")
	defer done()

	if !sentAt.IsZero() && time.Since(sentAt) > editWindow {
		return moderation.ErrMessageTooOld
	}
	if _, err := g.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (g *Gateway) ForwardMessage(ctx context.Context, fromChatID, toChatID int64, messageID int) error {
	done := observability.TimeGatewayCall("forward_message")
	defer done()

	if _, err := g.bot.Send(api.NewForward(toChatID, fromChatID, messageID)); err != nil {
		return fmt.Errorf("failed to forward message: %w", err)
	}
	return nil
}

func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string) error {
	done := observability.TimeGatewayCall("send_message")
	defer done()

	if _, err := g.bot.Send(api.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (g *Gateway) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	done := observability.TimeGatewayCall("is_chat_admin")
	defer done()

	member, err := g.getChatMember(chatID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get chat member: %w", err)
	}
	return member.IsCreator() || member.IsAdministrator(), nil
}

func (g *Gateway) CheckBotPermissions(ctx context.Context, chatID int64) (moderation.BotPermissions, error) {
	done := observability.TimeGatewayCall("check_bot_permissions")
	defer done()

	member, err := g.getChatMember(chatID, g.bot.Self.ID)
	if err != nil {
		if isNotMemberError(err) {
			return moderation.BotPermissions{}, nil
		}
		return moderation.BotPermissions{}, fmt.Errorf("failed to get own membership: %w", err)
	}

	perms := moderation.BotPermissions{
		IsMember: member.Status != "left" && member.Status != "kicked",
		IsAdmin:  member.IsCreator() || member.IsAdministrator(),
	}
	if member.IsAdministrator() {
		if !member.CanRestrictMembers {
			perms.MissingCapabilities = append(perms.MissingCapabilities, "can_restrict_members")
		}
		if !member.CanDeleteMessages {
			perms.MissingCapabilities = append(perms.MissingCapabilities, "can_delete_messages")
		}
	}
	return perms, nil
}

func (g *Gateway) getChatMember(chatID, userID int64) (api.ChatMember, error) {
	return g.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{ChatID: chatID},
			UserID:     userID,
		},
	})
}

func isNotMemberError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "user not found") ||
		strings.Contains(msg, "chat not found") ||
		strings.Contains(msg, "bot is not a member")
}

func withPrivilegeError(err error, operation string) error {
	if strings.Contains(err.Error(), msgNoPrivileges) {
		return ErrNoPrivileges
	}
	return fmt.Errorf("failed to %s user: %w", operation, err)
}

var ErrNoPrivileges = fmt.Errorf("no privileges")
