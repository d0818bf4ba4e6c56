package moderation

import (
	"context"
	"testing"

	"github.com/wardenbot/warden/internal/db"
)

func TestSeedDefaultLadderParsesEmbeddedConfig(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	if err := SeedDefaultLadder(context.Background(), store); err != nil {
		t.Fatalf("seed default ladder: %v", err)
	}

	if len(store.globalLadder) != 3 {
		t.Fatalf("expected 3 default steps, got %d", len(store.globalLadder))
	}
	if store.globalLadder[0].Type != db.SanctionWarning {
		t.Fatalf("unexpected first step: %#v", store.globalLadder[0])
	}
	if store.globalLadder[1].Type != db.SanctionMute || store.globalLadder[1].DurationSeconds != 86400 {
		t.Fatalf("unexpected second step: %#v", store.globalLadder[1])
	}
	if store.globalLadder[2].Type != db.SanctionBan {
		t.Fatalf("unexpected ceiling step: %#v", store.globalLadder[2])
	}
}
