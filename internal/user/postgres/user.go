package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/widgetlabs/widget-api/internal/auth"
	"github.com/widgetlabs/widget-api/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getBy(ctx, "id = ?", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.getBy(ctx, "username = ?", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getBy(ctx, "email = ?", email)
}

func (r *UserRepository) getBy(ctx context.Context, query string, arg interface{}) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where(query, arg).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	if err := r.loadGrants(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) loadGrants(ctx context.Context, u *user.User) error {
	var grants []string
	if err := r.db.WithContext(ctx).
		Model(&user.UserPermission{}).
		Where("user_id = ?", u.ID).
		Order("created_at ASC").
		Pluck("permission", &grants).Error; err != nil {
		return err
	}
	u.Permissions = make([]auth.Permission, 0, len(grants))
	for _, g := range grants {
		u.Permissions = append(u.Permissions, auth.Permission(g))
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, skip, limit int) ([]user.User, error) {
	var users []user.User
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Offset(skip).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	for i := range users {
		if err := r.loadGrants(ctx, &users[i]); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// UpdateFields applies a partial update and reports the number of rows the
// statement matched.
func (r *UserRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&user.User{}).
		Where("id = ?", id).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *UserRepository) GrantPermission(ctx context.Context, userID string, permission auth.Permission) error {
	grant := user.UserPermission{
		UserID:     userID,
		Permission: string(permission),
		CreatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&grant).Error
}

func (r *UserRepository) CountEnabledAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&user.User{}).
		Where("role = ? AND disabled = ?", string(auth.RoleAdmin), false).
		Count(&count).Error
	return count, err
}

// Delete removes the account and its grant rows, reporting how many user
// rows were deleted.
func (r *UserRepository) Delete(ctx context.Context, id string) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&user.UserPermission{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&user.User{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}
