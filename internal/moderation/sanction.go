package moderation

import (
	"time"

	"github.com/wardenbot/warden/internal/db"
)

// Sanction is one concrete consequence: a warning carries no restriction,
// a mute is always timed, a ban is permanent.
type Sanction struct {
	Type     db.SanctionType
	Duration time.Duration
}

// SanctionDecision is the resolver's answer for one violation count.
type SanctionDecision struct {
	Step     int
	Sanction Sanction
}

func Warning() Sanction {
	return Sanction{Type: db.SanctionWarning}
}

func Mute(duration time.Duration) Sanction {
	return Sanction{Type: db.SanctionMute, Duration: duration}
}

func Ban() Sanction {
	return Sanction{Type: db.SanctionBan}
}

// OriginKind distinguishes a sanction issued as a reply to an offending
// message from one issued as a bare command (admin panel, direct command).
type OriginKind int

const (
	OriginCommand OriginKind = iota
	OriginReply
)

// Origin tells the orchestrator whether there is an offending message to
// delete and forward.
type Origin struct {
	Kind      OriginKind
	MessageID int
	SentAt    time.Time
}

func decisionFromStep(step *db.LadderStep) SanctionDecision {
	return SanctionDecision{
		Step: step.Step,
		Sanction: Sanction{
			Type:     step.Type,
			Duration: time.Duration(step.DurationSeconds) * time.Second,
		},
	}
}
