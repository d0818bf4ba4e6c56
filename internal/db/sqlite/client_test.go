package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/wardenbot/warden/internal/db"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()

	ctx := context.Background()
	client, err := NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSeedGlobalLadderIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	steps := []*db.LadderStep{
		{Step: 1, Type: db.SanctionWarning},
		{Step: 2, Type: db.SanctionMute, DurationSeconds: 600},
		{Step: 3, Type: db.SanctionBan},
	}
	if err := client.SeedGlobalLadder(ctx, steps); err != nil {
		t.Fatalf("seed global ladder: %v", err)
	}
	if err := client.SeedGlobalLadder(ctx, steps[:1]); err != nil {
		t.Fatalf("seed global ladder twice: %v", err)
	}

	got, err := client.GetGlobalLadder(ctx)
	if err != nil {
		t.Fatalf("get global ladder: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(got))
	}
	if got[1].Type != db.SanctionMute || got[1].DurationSeconds != 600 {
		t.Fatalf("unexpected second step: %#v", got[1])
	}
}

func TestChatLadderScopedByChat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	_, err := client.db.ExecContext(ctx, `
		INSERT INTO ladder_steps (chat_id, step, sanction_type, duration_seconds)
		VALUES (-100, 1, 'warning', 0), (-100, 2, 'ban', 0), (-200, 1, 'mute', 300)
	`)
	if err != nil {
		t.Fatalf("insert ladder steps: %v", err)
	}

	got, err := client.GetLadder(ctx, -100)
	if err != nil {
		t.Fatalf("get ladder: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 steps for chat -100, got %d", len(got))
	}
	if got[0].Step != 1 || got[1].Step != 2 {
		t.Fatalf("steps not ordered: %#v", got)
	}
}

func TestPunishmentLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	now := time.Now()
	for i := 1; i <= 3; i++ {
		p := &db.IssuedPunishment{
			UserID:   777,
			ChatID:   -100,
			Step:     i,
			Type:     db.SanctionWarning,
			IssuerID: 1,
			IssuedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := client.AddPunishment(ctx, p); err != nil {
			t.Fatalf("add punishment %d: %v", i, err)
		}
	}

	count, err := client.CountPunishments(ctx, -100, 777)
	if err != nil {
		t.Fatalf("count punishments: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 punishments, got %d", count)
	}

	deleted, err := client.DeleteLastPunishment(ctx, -100, 777)
	if err != nil {
		t.Fatalf("delete last punishment: %v", err)
	}
	if !deleted {
		t.Fatalf("expected a row to be deleted")
	}

	var lastStep int
	if err := client.db.GetContext(ctx, &lastStep, `
		SELECT MAX(step) FROM issued_punishments WHERE chat_id = -100 AND user_id = 777
	`); err != nil {
		t.Fatalf("query max step: %v", err)
	}
	if lastStep != 2 {
		t.Fatalf("expected step 3 row to be removed, max step is %d", lastStep)
	}

	if err := client.DeletePunishments(ctx, -100, 777); err != nil {
		t.Fatalf("delete punishments: %v", err)
	}
	count, err = client.CountPunishments(ctx, -100, 777)
	if err != nil {
		t.Fatalf("count after delete all: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty history, got %d", count)
	}

	deleted, err = client.DeleteLastPunishment(ctx, -100, 777)
	if err != nil {
		t.Fatalf("delete last on empty history: %v", err)
	}
	if deleted {
		t.Fatalf("expected no row to be deleted on empty history")
	}
}

func TestEnsureStatusCreatesCleanRowOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	status, err := client.GetStatus(ctx, -100, 777)
	if err != nil {
		t.Fatalf("get missing status: %v", err)
	}
	if status != nil {
		t.Fatalf("expected nil status before ensure, got %#v", status)
	}

	status, err = client.EnsureStatus(ctx, -100, 777)
	if err != nil {
		t.Fatalf("ensure status: %v", err)
	}
	if status.IsMuted || status.IsBanned {
		t.Fatalf("expected clean row, got %#v", status)
	}

	status.IsMuted = true
	status.MutedUntil = sql.NullTime{Time: time.Now().Add(10 * time.Minute), Valid: true}
	if err := client.UpsertStatus(ctx, status); err != nil {
		t.Fatalf("upsert status: %v", err)
	}

	again, err := client.EnsureStatus(ctx, -100, 777)
	if err != nil {
		t.Fatalf("ensure existing status: %v", err)
	}
	if !again.IsMuted {
		t.Fatalf("ensure must not overwrite an existing row: %#v", again)
	}
}

func TestChatsKnownForUserUnionsHistoryAndStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	for _, chat := range []*db.Chat{
		{ID: -1, Title: "alpha"},
		{ID: -2, Title: "beta"},
		{ID: -3, Title: "gamma"},
	} {
		if _, err := client.UpsertChat(ctx, chat); err != nil {
			t.Fatalf("upsert chat %d: %v", chat.ID, err)
		}
	}

	if err := client.AddPunishment(ctx, &db.IssuedPunishment{
		UserID: 777, ChatID: -1, Step: 1, Type: db.SanctionWarning, IssuerID: 1, IssuedAt: time.Now(),
	}); err != nil {
		t.Fatalf("add punishment: %v", err)
	}
	if _, err := client.EnsureStatus(ctx, -2, 777); err != nil {
		t.Fatalf("ensure status: %v", err)
	}

	chats, err := client.ChatsKnownForUser(ctx, 777)
	if err != nil {
		t.Fatalf("chats known for user: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(chats))
	}
	titles := map[string]struct{}{}
	for _, chat := range chats {
		titles[chat.Title] = struct{}{}
	}
	if _, ok := titles["alpha"]; !ok {
		t.Fatalf("expected alpha in %v", titles)
	}
	if _, ok := titles["beta"]; !ok {
		t.Fatalf("expected beta in %v", titles)
	}
}

func TestUpsertUserKeepsRole(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	first, err := client.UpsertUser(ctx, &db.User{ID: 42, UserName: "alice", Role: db.RoleAdmin})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	if first.Role != db.RoleAdmin {
		t.Fatalf("expected admin role, got %q", first.Role)
	}

	second, err := client.UpsertUser(ctx, &db.User{ID: 42, UserName: "alice_renamed"})
	if err != nil {
		t.Fatalf("upsert user again: %v", err)
	}
	if second.Role != db.RoleAdmin {
		t.Fatalf("re-upsert must not downgrade role, got %q", second.Role)
	}
	if second.UserName != "alice_renamed" {
		t.Fatalf("expected refreshed username, got %q", second.UserName)
	}

	byName, err := client.GetUserByUserName(ctx, "ALICE_RENAMED")
	if err != nil {
		t.Fatalf("get user by username: %v", err)
	}
	if byName == nil || byName.ID != 42 {
		t.Fatalf("case-insensitive username lookup failed: %#v", byName)
	}
}

func TestSetUserRoleCreatesAndPromotes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	// Never-seen user gets a row on demand.
	if err := client.SetUserRole(ctx, 77, db.RoleAdmin); err != nil {
		t.Fatalf("set role for unknown user: %v", err)
	}
	created, err := client.GetUser(ctx, 77)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if created == nil || created.Role != db.RoleAdmin {
		t.Fatalf("expected admin row created, got %#v", created)
	}

	// A later identity refresh keeps the granted role.
	refreshed, err := client.UpsertUser(ctx, &db.User{ID: 77, UserName: "grace"})
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	if refreshed.Role != db.RoleAdmin {
		t.Fatalf("identity refresh must not drop role, got %q", refreshed.Role)
	}

	if err := client.SetUserRole(ctx, 77, db.RoleOrdinary); err != nil {
		t.Fatalf("demote user: %v", err)
	}
	demoted, err := client.GetUser(ctx, 77)
	if err != nil {
		t.Fatalf("get user after demote: %v", err)
	}
	if demoted.Role != db.RoleOrdinary {
		t.Fatalf("expected ordinary role, got %q", demoted.Role)
	}
}
