package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/widgetlabs/widget-api/internal"
	"github.com/widgetlabs/widget-api/internal/auth"
)

// AuthRepository implements auth.UserRepository against the users and
// user_permissions tables. It deliberately owns its own row mapping so the
// auth package stays decoupled from the user domain package.
type AuthRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) auth.UserRepository {
	return &AuthRepository{db: db}
}

type userRow struct {
	ID           string `gorm:"column:id"`
	Username     string `gorm:"column:username"`
	Email        string `gorm:"column:email"`
	PasswordHash string `gorm:"column:password_hash"`
	Role         string `gorm:"column:role"`
	Disabled     bool   `gorm:"column:disabled"`
}

func (r *AuthRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	ctx, cancel := internal.WithTimeout(ctx, 0)
	defer cancel()

	var row userRow
	err := r.db.WithContext(ctx).Table("users").Where("username = ?", username).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}

	var grants []string
	if err := r.db.WithContext(ctx).
		Table("user_permissions").
		Where("user_id = ?", row.ID).
		Order("created_at ASC").
		Pluck("permission", &grants).Error; err != nil {
		return nil, err
	}

	permissions := make([]auth.Permission, 0, len(grants))
	for _, g := range grants {
		permissions = append(permissions, auth.Permission(g))
	}

	return &auth.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		Role:         auth.Role(row.Role),
		Permissions:  permissions,
		Disabled:     row.Disabled,
		PasswordHash: row.PasswordHash,
	}, nil
}
