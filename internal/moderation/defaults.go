package moderation

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v2"

	"github.com/wardenbot/warden/internal/db"
	"github.com/wardenbot/warden/resources"
)

type ladderFile struct {
	Steps []struct {
		Step     int    `yaml:"step"`
		Type     string `yaml:"type"`
		Duration int64  `yaml:"duration"`
	} `yaml:"steps"`
}

type ladderSeeder interface {
	SeedGlobalLadder(ctx context.Context, steps []*db.LadderStep) error
}

// SeedDefaultLadder installs the embedded default ladder into the global
// scope. A no-op when a global ladder is already configured.
func SeedDefaultLadder(ctx context.Context, seeder ladderSeeder) error {
	raw, err := resources.FS.ReadFile("ladder.yml")
	if err != nil {
		return fmt.Errorf("read embedded ladder: %w", err)
	}

	var parsed ladderFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("parse embedded ladder: %w", err)
	}

	steps := make([]*db.LadderStep, 0, len(parsed.Steps))
	for _, s := range parsed.Steps {
		step := &db.LadderStep{
			Step:            s.Step,
			Type:            db.SanctionType(s.Type),
			DurationSeconds: s.Duration,
		}
		if err := step.Type.Valid(); err != nil {
			return fmt.Errorf("embedded ladder step %d: %w", s.Step, err)
		}
		steps = append(steps, step)
	}
	return seeder.SeedGlobalLadder(ctx, steps)
}
