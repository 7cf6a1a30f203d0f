package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/db"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	messages *MessageStore
	users    *UserStore
	channels *ChannelStore
	members  *MembershipStore
	clock    *fakeClock
}

func setup(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := NewStore(gdb)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)

	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return &fixture{
		messages: NewMessageStore(gdb).WithClock(clock.Now),
		users:    NewUserStore(gdb),
		channels: NewChannelStore(gdb),
		members:  NewMembershipStore(gdb),
		clock:    clock,
	}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), name, nil, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func (f *fixture) insert(t *testing.T, author uuid.UUID, content string, parent *int64) *models.Message {
	t.Helper()
	msg, _, err := f.messages.Insert(context.Background(), models.NewMessage{
		AuthorID:  author,
		ChannelID: models.DefaultChannelID,
		Content:   content,
		ParentID:  parent,
	}, 2*time.Hour)
	if err != nil {
		t.Fatalf("insert %q: %v", content, err)
	}
	return msg
}

func TestInsertReadsBackJoinedRow(t *testing.T) {
	f := setup(t)
	alice := f.user(t, "alice")

	msg := f.insert(t, alice.ID, "  hello  ", nil)
	if msg.Content != "hello" {
		t.Errorf("expected trimmed content, got %q", msg.Content)
	}
	if msg.Username != "alice" {
		t.Errorf("expected username alice, got %q", msg.Username)
	}
	if msg.AuthorID != alice.ID {
		t.Errorf("expected author %s, got %s", alice.ID, msg.AuthorID)
	}
	if !msg.CreatedAt.Equal(f.clock.Now()) {
		t.Errorf("expected timestamp %v, got %v", f.clock.Now(), msg.CreatedAt)
	}

	reply := f.insert(t, alice.ID, "again", &msg.ID)
	if reply.Parent == nil || reply.Parent.Content != "hello" || reply.Parent.Username != "alice" {
		t.Errorf("expected parent snapshot, got %+v", reply.Parent)
	}
}

func TestInsertRejectsBadInput(t *testing.T) {
	f := setup(t)
	alice := f.user(t, "alice")
	ctx := context.Background()

	missing := int64(99)
	cases := []struct {
		name string
		in   models.NewMessage
		want error
	}{
		{"blank", models.NewMessage{AuthorID: alice.ID, ChannelID: models.DefaultChannelID, Content: "   "}, repository.ErrEmptyContent},
		{"too long", models.NewMessage{AuthorID: alice.ID, ChannelID: models.DefaultChannelID, Content: strings.Repeat("x", repository.MaxStoredContentLength+1)}, repository.ErrContentTooLong},
		{"no channel", models.NewMessage{AuthorID: alice.ID, ChannelID: 42, Content: "hi"}, repository.ErrChannelNotFound},
		{"no parent", models.NewMessage{AuthorID: alice.ID, ChannelID: models.DefaultChannelID, Content: "hi", ParentID: &missing}, repository.ErrParentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.messages.Insert(ctx, tc.in, 2*time.Hour)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	all, err := f.messages.FetchAll(ctx, models.DefaultChannelID)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no rows after rejected inserts, got %d", len(all))
	}
}

func TestFetchSinceUsesCursorTimestamp(t *testing.T) {
	f := setup(t)
	alice := f.user(t, "alice")
	ctx := context.Background()

	a := f.insert(t, alice.ID, "a", nil)
	f.clock.Advance(time.Second)
	b := f.insert(t, alice.ID, "b", nil)
	f.clock.Advance(time.Second)
	c := f.insert(t, alice.ID, "c", nil)

	got, err := f.messages.FetchSince(ctx, models.DefaultChannelID, &a.ID, repository.FeedPageSize)
	if err != nil {
		t.Fatalf("fetch since: %v", err)
	}
	if len(got) != 2 || got[0].ID != b.ID || got[1].ID != c.ID {
		t.Fatalf("expected [b c], got %+v", got)
	}

	got, err = f.messages.FetchSince(ctx, models.DefaultChannelID, &c.ID, repository.FeedPageSize)
	if err != nil {
		t.Fatalf("fetch since newest: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty page after newest, got %d", len(got))
	}

	unknown := int64(12345)
	got, err = f.messages.FetchSince(ctx, models.DefaultChannelID, &unknown, repository.FeedPageSize)
	if err != nil {
		t.Fatalf("fetch since unknown: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected unknown cursor to return everything, got %d", len(got))
	}

	got, err = f.messages.FetchSince(ctx, models.DefaultChannelID, nil, 2)
	if err != nil {
		t.Fatalf("fetch with limit: %v", err)
	}
	if len(got) != 2 || got[0].ID != a.ID {
		t.Errorf("expected the two oldest, got %+v", got)
	}
}

func TestInsertClampsBackwardsClock(t *testing.T) {
	f := setup(t)
	alice := f.user(t, "alice")

	first := f.insert(t, alice.ID, "first", nil)
	f.clock.Advance(-time.Minute)
	second := f.insert(t, alice.ID, "second", nil)

	if second.CreatedAt.Before(first.CreatedAt) {
		t.Errorf("timestamps went backwards: %v then %v", first.CreatedAt, second.CreatedAt)
	}
}

func TestInsertPrunesAndDetachesReplies(t *testing.T) {
	f := setup(t)
	alice := f.user(t, "alice")
	ctx := context.Background()

	parent := f.insert(t, alice.ID, "old", nil)
	f.clock.Advance(time.Hour)
	child := f.insert(t, alice.ID, "reply", &parent.ID)
	f.clock.Advance(time.Hour + time.Second)

	_, pruned, err := f.messages.Insert(ctx, models.NewMessage{
		AuthorID:  alice.ID,
		ChannelID: models.DefaultChannelID,
		Content:   "new",
	}, 2*time.Hour)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned, got %d", pruned)
	}

	gone, err := f.messages.GetByID(ctx, parent.ID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if gone != nil {
		t.Errorf("expected parent to be pruned")
	}

	kept, err := f.messages.GetByID(ctx, child.ID)
	if err != nil {
		t.Fatalf("get child: %v", err)
	}
	if kept == nil {
		t.Fatal("expected reply to survive its parent")
	}
	if kept.ParentID != nil || kept.Parent != nil {
		t.Errorf("expected reply to be detached, got parent %v", kept.ParentID)
	}
}

func TestReplyToExpiringParentRollsBackPrune(t *testing.T) {
	f := setup(t)
	alice := f.user(t, "alice")
	ctx := context.Background()

	parent := f.insert(t, alice.ID, "old", nil)
	f.clock.Advance(2*time.Hour + time.Second)

	_, _, err := f.messages.Insert(ctx, models.NewMessage{
		AuthorID:  alice.ID,
		ChannelID: models.DefaultChannelID,
		Content:   "late reply",
		ParentID:  &parent.ID,
	}, 2*time.Hour)
	if !errors.Is(err, repository.ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}

	still, err := f.messages.GetByID(ctx, parent.ID)
	if err != nil {
		t.Fatalf("get parent: %v", err)
	}
	if still == nil {
		t.Error("expected the failed insert to roll back its prune")
	}
}

func TestUserAndChannelStores(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	email := "alice@example.com"
	alice, err := f.users.Create(ctx, "alice", &email, "hash")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	if !alice.Active {
		t.Error("expected new user to be active")
	}
	if _, err := f.users.Create(ctx, "alice", nil, "hash"); !errors.Is(err, repository.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := f.users.Create(ctx, "alice2", &email, "hash"); !errors.Is(err, repository.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
	if u, err := f.users.GetByUsername(ctx, "Alice"); err != nil || u != nil {
		t.Errorf("expected case-sensitive miss, got %v, %v", u, err)
	}

	bob := f.user(t, "bob")
	secret, err := f.channels.Create(ctx, alice.ID, "secret", true)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}
	if _, err := f.channels.Create(ctx, alice.ID, "secret", false); !errors.Is(err, repository.ErrChannelExists) {
		t.Errorf("expected ErrChannelExists, got %v", err)
	}
	if err := f.members.AddMember(ctx, secret.ID, alice.ID, models.RoleOwner); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if err := f.members.AddMember(ctx, secret.ID, alice.ID, models.RoleOwner); err != nil {
		t.Errorf("expected second join to be a no-op, got %v", err)
	}
	if err := f.members.AddMember(ctx, 999, bob.ID, models.RoleMember); !errors.Is(err, repository.ErrChannelNotFound) {
		t.Errorf("expected ErrChannelNotFound, got %v", err)
	}

	visible, err := f.channels.ListVisible(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list visible: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != models.DefaultChannelID {
		t.Errorf("expected bob to see only general, got %+v", visible)
	}

	visible, err = f.channels.ListVisible(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list visible: %v", err)
	}
	if len(visible) != 2 {
		t.Errorf("expected alice to see two channels, got %d", len(visible))
	}

	members, err := f.members.ListMembers(ctx, secret.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 || members[0].Username != "alice" || members[0].Role != models.RoleOwner {
		t.Errorf("unexpected members %+v", members)
	}
}
