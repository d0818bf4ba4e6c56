package moderation

import (
	"context"
	"fmt"
)

// Resolver maps a violation count to the next sanction on the chat's ladder.
// Pure lookup: no side effects, safe for previews.
type Resolver struct {
	ladders ladderStore
}

func NewResolver(ladders ladderStore) *Resolver {
	return &Resolver{ladders: ladders}
}

// Resolve picks the chat-scoped ladder, falling back to the global one. With
// no ladder configured at all it synthesizes a warning decision; the caller
// decides whether to persist it. Counts at or past the ladder's ceiling keep
// getting the ceiling step.
func (r *Resolver) Resolve(ctx context.Context, chatID int64, violationCount int) (SanctionDecision, error) {
	ladder, err := r.ladders.GetLadder(ctx, chatID)
	if err != nil {
		return SanctionDecision{}, fmt.Errorf("load chat ladder: %w", err)
	}
	if len(ladder) == 0 {
		ladder, err = r.ladders.GetGlobalLadder(ctx)
		if err != nil {
			return SanctionDecision{}, fmt.Errorf("load global ladder: %w", err)
		}
	}
	if len(ladder) == 0 {
		return SanctionDecision{Step: violationCount + 1, Sanction: Warning()}, nil
	}

	ceiling := ladder[len(ladder)-1]
	if violationCount >= ceiling.Step {
		return decisionFromStep(ceiling), nil
	}

	next := violationCount + 1
	for _, step := range ladder {
		if step.Step == next {
			return decisionFromStep(step), nil
		}
	}
	// Sparse ladder: no exact rung, take the first one past the count.
	for _, step := range ladder {
		if step.Step > next {
			return decisionFromStep(step), nil
		}
	}
	return decisionFromStep(ceiling), nil
}
