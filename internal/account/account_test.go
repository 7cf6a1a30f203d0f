package account

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lalith-99/murmur/internal/auth"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
	"github.com/lalith-99/murmur/internal/repository/memory"
	"github.com/lalith-99/murmur/internal/session"
	"go.uber.org/zap"
)

const secret = "test-secret"

func setup(t *testing.T) (*Service, *repository.Store, *memory.DB, *session.MemoryStore) {
	t.Helper()
	db := memory.New()
	store := memory.NewStore(db)
	sessions := session.NewMemoryStore()
	return NewService(store, sessions, secret, time.Hour, zap.NewNop()), store, db, sessions
}

func TestValidateUsername(t *testing.T) {
	valid := []string{"alice", "a.b-c_d", "abc", strings.Repeat("x", 20)}
	for _, u := range valid {
		if err := ValidateUsername(u); err != nil {
			t.Errorf("ValidateUsername(%q) = %v, want nil", u, err)
		}
	}

	invalid := map[string]error{
		"ab":                    ErrInvalidUsername,
		strings.Repeat("x", 21): ErrInvalidUsername,
		"has space":             ErrInvalidUsername,
		"bad!":                  ErrInvalidUsername,
		"Admin":                 ErrReservedUsername,
		"ROOT":                  ErrReservedUsername,
	}
	for u, want := range invalid {
		if err := ValidateUsername(u); !errors.Is(err, want) {
			t.Errorf("ValidateUsername(%q) = %v, want %v", u, err, want)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("Password"); err != nil {
		t.Errorf("expected valid password, got %v", err)
	}
	if err := ValidatePassword("Short1"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected short password to fail, got %v", err)
	}
	if err := ValidatePassword("alllowercase"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("expected missing uppercase to fail, got %v", err)
	}
	if err := ValidatePassword("A" + strings.Repeat("a", 72)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("expected long password to fail, got %v", err)
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("S3cretPass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "S3cretPass" {
		t.Fatal("hash must not be the password")
	}
	if !CheckPassword("S3cretPass", hash) {
		t.Error("expected password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Error("expected password check to fail")
	}
}

func TestRegisterJoinsDefaultChannel(t *testing.T) {
	svc, store, _, _ := setup(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "Password1", Email: " Alice@Example.com "})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !user.Active {
		t.Error("expected new account to be active")
	}
	if user.Email == nil || *user.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %v", user.Email)
	}

	ok, err := store.Memberships.IsMember(ctx, models.DefaultChannelID, user.ID)
	if err != nil || !ok {
		t.Errorf("expected membership in the default channel, got %v, %v", ok, err)
	}

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "Password1"}); !errors.Is(err, repository.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.Register(ctx, RegisterInput{Username: "support", Password: "Password1"}); !errors.Is(err, ErrReservedUsername) {
		t.Errorf("expected ErrReservedUsername, got %v", err)
	}
}

func TestLoginIssuesSessionToken(t *testing.T) {
	svc, _, _, sessions := setup(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "Password1", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	token, user, err := svc.Login(ctx, "alice", "Password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != registered.ID || user.LastLogin == nil {
		t.Errorf("unexpected user %+v", user)
	}

	claims, err := auth.ParseToken(token, secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if _, err := sessions.Lookup(ctx, claims.SessionID); err != nil {
		t.Errorf("expected a live session, got %v", err)
	}

	if _, _, err := svc.Login(ctx, "ALICE@example.com", "Password1"); err != nil {
		t.Errorf("expected email login to work, got %v", err)
	}

	if err := svc.Logout(ctx, claims.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := sessions.Lookup(ctx, claims.SessionID); !errors.Is(err, session.ErrNotFound) {
		t.Errorf("expected session to be revoked, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _, db, _ := setup(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "Password1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "Password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "Alice", "Password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected case-sensitive username match, got %v", err)
	}

	memory.NewUserStore(db).SetActive(user.ID, false)
	if _, _, err := svc.Login(ctx, "alice", "Password1"); !errors.Is(err, ErrInactive) {
		t.Errorf("expected ErrInactive, got %v", err)
	}
}
