package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/murmur/internal/models"
	"github.com/lalith-99/murmur/internal/repository"
	"gorm.io/gorm"
)

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create checks both unique columns first so the error names the right
// one; the unique indexes still catch a concurrent duplicate.
func (s *UserStore) Create(ctx context.Context, username string, email *string, passwordHash string) (*models.User, error) {
	row := userRow{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRow{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if count > 0 {
			return repository.ErrUsernameTaken
		}
		if email != nil {
			if err := tx.Model(&userRow{}).Where("email = ?", *email).Count(&count).Error; err != nil {
				return fmt.Errorf("check email: %w", err)
			}
			if count > 0 {
				return repository.ErrEmailTaken
			}
		}

		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return repository.ErrUsernameTaken
			}
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u := userFromRow(row)
	return &u, nil
}

func (s *UserStore) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where(query, arg).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u := userFromRow(row)
	return &u, nil
}

func (s *UserStore) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.getOne(ctx, "id = ?", userID.String())
}

// GetByUsername is case-sensitive: SQLite's = compares with BINARY collation.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getOne(ctx, "username = ?", username)
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getOne(ctx, "email = ?", email)
}

func (s *UserStore) ListByUsernames(ctx context.Context, usernames []string) ([]models.User, error) {
	users := make([]models.User, 0, len(usernames))
	if len(usernames) == 0 {
		return users, nil
	}

	var rows []userRow
	if err := s.db.WithContext(ctx).Where("username IN ?", usernames).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	for _, r := range rows {
		users = append(users, userFromRow(r))
	}
	return users, nil
}

func (s *UserStore) TouchLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&userRow{}).
		Where("id = ?", userID.String()).
		Update("last_login", at.UTC()).Error
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}
