package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
)

type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, username string, email *string, passwordHash string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, u := range s.db.users {
		if u.Username == username {
			return nil, repository.ErrUsernameTaken
		}
		if email != nil && u.Email != nil && *u.Email == *email {
			return nil, repository.ErrEmailTaken
		}
	}

	u := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    s.db.now().UTC(),
	}
	if email != nil {
		e := *email
		u.Email = &e
	}
	s.db.users[u.ID] = u

	out := *u
	return &out, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[userID]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, u := range s.db.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, u := range s.db.users {
		if u.Email != nil && *u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *UserStore) ListByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	wanted := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		wanted[name] = struct{}{}
	}
	users := make([]models.User, 0, len(usernames))
	for _, u := range s.db.users {
		if _, ok := wanted[u.Username]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (s *UserStore) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[userID]
	if !ok {
		return nil
	}
	t := at.UTC()
	u.LastLogin = &t
	return nil
}

// SetActive flips the activity flag. Accounts are disabled out of band;
// tests use this to exercise the login check.
func (s *UserStore) SetActive(userID uuid.UUID, active bool) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if u, ok := s.db.users[userID]; ok {
		u.Active = active
	}
}
