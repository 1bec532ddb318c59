package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

// UserStore persists users in the "users" table. The e-mail column carries a
// unique index; a violation maps to domain.ErrConflict.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a user store on an open connection.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, u domain.User) error {
	rec := userModel{
		ID:           u.ID,
		Email:        domain.NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var rec userModel
	if err := s.db.WithContext(ctx).Where("email = ?", domain.NormalizeEmail(email)).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return rec.toDomain(), nil
}
