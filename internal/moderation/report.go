package moderation

import (
	"fmt"
	"strings"

	"github.com/wardenbot/warden/internal/db"
)

func describeSanction(s Sanction) string {
	switch s.Type {
	case db.SanctionWarning:
		return "warning"
	case db.SanctionMute:
		return fmt.Sprintf("mute for %s", s.Duration)
	case db.SanctionBan:
		return "permanent ban"
	}
	return string(s.Type)
}

func displayName(u *db.User) string {
	if u.UserName != "" {
		return "@" + u.UserName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("id:%d", u.ID)
}

func buildAuditReport(incidentID string, req SanctionRequest, decision SanctionDecision, deletion deletionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "incident %s\n", incidentID)
	fmt.Fprintf(&b, "chat: %s\n", req.Chat.Title)
	fmt.Fprintf(&b, "violator: %s\n", displayName(req.Violator))
	fmt.Fprintf(&b, "issued by: %s\n", displayName(req.Admin))
	fmt.Fprintf(&b, "step %d: %s\n", decision.Step, describeSanction(decision.Sanction))
	if req.Reason != "" {
		fmt.Fprintf(&b, "reason: %s\n", req.Reason)
	}
	switch deletion {
	case deletionDone:
		b.WriteString("offending message: deleted\n")
	case deletionPastEditWindow:
		b.WriteString("offending message: not deleted, over the platform's edit window\n")
	case deletionFailed:
		b.WriteString("offending message: not deleted, platform error\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildChatNotice(req SanctionRequest, decision SanctionDecision) string {
	reason := req.Reason
	if reason == "" {
		reason = "rule violation"
	}
	return fmt.Sprintf("%s received a %s (%s)", displayName(req.Violator), describeSanction(decision.Sanction), reason)
}

func buildIssuerNotice(req SanctionRequest, decision SanctionDecision) string {
	return fmt.Sprintf("applied step %d (%s) to %s in %s",
		decision.Step, describeSanction(decision.Sanction), displayName(req.Violator), req.Chat.Title)
}
