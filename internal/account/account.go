// Package account handles registration, login and logout.
package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lalith-99/murmur/internal/auth"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
	"github.com/lalith-99/murmur/internal/session"
	"go.uber.org/zap"
)

type Service struct {
	users     repository.UserRepository
	members   repository.MembershipRepository
	sessions  session.Store
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewService(store *repository.Store, sessions session.Store, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:     store.Users,
		members:   store.Memberships,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

type RegisterInput struct {
	Username string
	Password string
	Email    string
}

// Register creates an active account and joins it to the default channel.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := ValidateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var email *string
	if e := strings.TrimSpace(in.Email); e != "" {
		e = strings.ToLower(e)
		email = &e
	}

	user, err := s.users.Create(ctx, in.Username, email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.members.AddMember(ctx, models.DefaultChannelID, user.ID, models.RoleMember); err != nil {
		return nil, fmt.Errorf("join default channel: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)
	return user, nil
}

// Login checks credentials and returns a signed token bound to a new
// session. login is a username, or an email when it contains '@'.
func (s *Service) Login(ctx context.Context, login, password string) (string, *models.User, error) {
	login = strings.TrimSpace(login)

	var (
		user *models.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.users.GetByEmail(ctx, strings.ToLower(login))
	} else {
		user, err = s.users.GetByUsername(ctx, login)
	}
	if err != nil {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	// Same error for unknown user and wrong password, so the response
	// does not reveal which handles exist.
	if user == nil || !CheckPassword(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}
	if !user.Active {
		return "", nil, ErrInactive
	}

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return "", nil, err
	}
	user.LastLogin = &now

	sess, err := s.sessions.Create(ctx, user.ID, user.Username, s.tokenTTL)
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	token, err := auth.GenerateToken(user.ID, sess.ID, user.Username, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID.String()))
	return token, user, nil
}

// Logout revokes the session; the token stops working immediately.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
