package moderation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wardenbot/warden/internal/db"
)

// fakeStore is an in-memory Store for orchestrator tests.
type fakeStore struct {
	mu sync.Mutex

	ladders      map[int64][]*db.LadderStep
	globalLadder []*db.LadderStep
	punishments  []*db.IssuedPunishment
	statuses     map[statusKey]*db.UserChatStatus
	chats        map[int64]*db.Chat

	punishmentErr error
	statusErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ladders:  map[int64][]*db.LadderStep{},
		statuses: map[statusKey]*db.UserChatStatus{},
		chats:    map[int64]*db.Chat{},
	}
}

func (s *fakeStore) GetLadder(ctx context.Context, chatID int64) ([]*db.LadderStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ladders[chatID], nil
}

func (s *fakeStore) GetGlobalLadder(ctx context.Context) ([]*db.LadderStep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globalLadder, nil
}

func (s *fakeStore) SeedGlobalLadder(ctx context.Context, steps []*db.LadderStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.globalLadder) == 0 {
		s.globalLadder = steps
	}
	return nil
}

func (s *fakeStore) AddPunishment(ctx context.Context, p *db.IssuedPunishment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.punishmentErr != nil {
		return s.punishmentErr
	}
	copied := *p
	copied.ID = int64(len(s.punishments) + 1)
	s.punishments = append(s.punishments, &copied)
	return nil
}

func (s *fakeStore) CountPunishments(ctx context.Context, chatID, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, p := range s.punishments {
		if p.ChatID == chatID && p.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) DeleteLastPunishment(ctx context.Context, chatID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matching := make([]int, 0, len(s.punishments))
	for i, p := range s.punishments {
		if p.ChatID == chatID && p.UserID == userID {
			matching = append(matching, i)
		}
	}
	if len(matching) == 0 {
		return false, nil
	}
	sort.Slice(matching, func(a, b int) bool {
		pa, pb := s.punishments[matching[a]], s.punishments[matching[b]]
		if pa.IssuedAt.Equal(pb.IssuedAt) {
			return pa.ID > pb.ID
		}
		return pa.IssuedAt.After(pb.IssuedAt)
	})
	last := matching[0]
	s.punishments = append(s.punishments[:last], s.punishments[last+1:]...)
	return true, nil
}

func (s *fakeStore) DeletePunishments(ctx context.Context, chatID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.punishments[:0]
	for _, p := range s.punishments {
		if p.ChatID != chatID || p.UserID != userID {
			kept = append(kept, p)
		}
	}
	s.punishments = kept
	return nil
}

func (s *fakeStore) GetStatus(ctx context.Context, chatID, userID int64) (*db.UserChatStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.statuses[statusKey{chatID: chatID, userID: userID}]
	if !ok {
		return nil, nil
	}
	copied := *status
	return &copied, nil
}

func (s *fakeStore) EnsureStatus(ctx context.Context, chatID, userID int64) (*db.UserChatStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := statusKey{chatID: chatID, userID: userID}
	if status, ok := s.statuses[key]; ok {
		copied := *status
		return &copied, nil
	}
	status := &db.UserChatStatus{UserID: userID, ChatID: chatID}
	s.statuses[key] = status
	copied := *status
	return &copied, nil
}

func (s *fakeStore) UpsertStatus(ctx context.Context, status *db.UserChatStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return s.statusErr
	}
	copied := *status
	s.statuses[statusKey{chatID: status.ChatID, userID: status.UserID}] = &copied
	return nil
}

func (s *fakeStore) GetChat(ctx context.Context, chatID int64) (*db.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats[chatID], nil
}

func (s *fakeStore) ChatsKnownForUser(ctx context.Context, userID int64) ([]*db.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int64]struct{}{}
	for _, p := range s.punishments {
		if p.UserID == userID {
			seen[p.ChatID] = struct{}{}
		}
	}
	for key := range s.statuses {
		if key.userID == userID {
			seen[key.chatID] = struct{}{}
		}
	}
	chats := make([]*db.Chat, 0, len(seen))
	for chatID := range seen {
		if chat, ok := s.chats[chatID]; ok {
			chats = append(chats, chat)
		}
	}
	return chats, nil
}

func (s *fakeStore) punishmentCount(chatID, userID int64) int {
	count, _ := s.CountPunishments(context.Background(), chatID, userID)
	return count
}

func (s *fakeStore) status(chatID, userID int64) *db.UserChatStatus {
	status, _ := s.GetStatus(context.Background(), chatID, userID)
	return status
}

// fakeGateway records calls and simulates platform behavior per chat.
type fakeGateway struct {
	mu sync.Mutex

	restrictions  []string
	lifted        []int64
	deleted       []int
	forwarded     []int
	sent          map[int64][]string
	chatAdmins    map[int64]map[int64]bool
	botPerms      map[int64]BotPermissions
	restrictErr   map[int64]error
	liftErr       map[int64]error
	deleteErr     error
	tooOldWindow  bool
	defaultAdmin  bool
	defaultMember bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sent:          map[int64][]string{},
		chatAdmins:    map[int64]map[int64]bool{},
		botPerms:      map[int64]BotPermissions{},
		restrictErr:   map[int64]error{},
		liftErr:       map[int64]error{},
		defaultAdmin:  true,
		defaultMember: true,
	}
}

func (g *fakeGateway) ApplyRestriction(ctx context.Context, chatID, userID int64, sanction Sanction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.restrictErr[chatID]; err != nil {
		return err
	}
	g.restrictions = append(g.restrictions, fmt.Sprintf("%d/%d:%s", chatID, userID, sanction.Type))
	return nil
}

func (g *fakeGateway) LiftRestrictions(ctx context.Context, chatID, userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.liftErr[chatID]; err != nil {
		return err
	}
	g.lifted = append(g.lifted, chatID)
	return nil
}

func (g *fakeGateway) DeleteMessage(ctx context.Context, chatID int64, messageID int, sentAt time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tooOldWindow {
		return ErrMessageTooOld
	}
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, messageID)
	return nil
}

func (g *fakeGateway) ForwardMessage(ctx context.Context, fromChatID, toChatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forwarded = append(g.forwarded, messageID)
	return nil
}

func (g *fakeGateway) SendMessage(ctx context.Context, chatID int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent[chatID] = append(g.sent[chatID], text)
	return nil
}

func (g *fakeGateway) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if admins, ok := g.chatAdmins[chatID]; ok {
		return admins[userID], nil
	}
	return false, nil
}

func (g *fakeGateway) CheckBotPermissions(ctx context.Context, chatID int64) (BotPermissions, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if perms, ok := g.botPerms[chatID]; ok {
		return perms, nil
	}
	return BotPermissions{IsMember: g.defaultMember, IsAdmin: g.defaultAdmin}, nil
}

var errPlatform = errors.New("platform rejected the request")
