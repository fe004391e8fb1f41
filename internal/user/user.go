// Package user owns account lifecycle: registration, profile updates, role
// and status administration, ad-hoc permission grants, and deletion.
package user

import (
	"errors"
	"time"

	"github.com/widgetlabs/widget-api/internal/auth"
)

// User is the persisted account record. Permissions holds only the ad-hoc
// grants stored in user_permissions; the role baseline is derived on read,
// so changing a role never has to touch the grants table.
type User struct {
	ID           string    `json:"id" gorm:"column:id;primaryKey"`
	Username     string    `json:"username" gorm:"column:username;uniqueIndex"`
	Email        string    `json:"email" gorm:"column:email;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"column:password_hash"`
	Role         auth.Role `json:"role" gorm:"column:role"`
	Disabled     bool      `json:"disabled" gorm:"column:disabled"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`

	Permissions []auth.Permission `json:"permissions" gorm:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserPermission is one ad-hoc grant row. The (user_id, permission) pair is
// unique, which is what makes granting idempotent at the storage level.
type UserPermission struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID     string    `gorm:"column:user_id;uniqueIndex:idx_user_permission"`
	Permission string    `gorm:"column:permission;uniqueIndex:idx_user_permission"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}

// Profile is the API representation: the stored record plus the computed
// effective permission set.
type Profile struct {
	ID                   string            `json:"id"`
	Username             string            `json:"username"`
	Email                string            `json:"email"`
	Role                 auth.Role         `json:"role"`
	Permissions          []auth.Permission `json:"permissions"`
	EffectivePermissions []auth.Permission `json:"effective_permissions"`
	Disabled             bool              `json:"disabled"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// ToProfile computes the effective permission set for API responses.
func (u *User) ToProfile() *Profile {
	authUser := auth.User{Role: u.Role, Permissions: u.Permissions}
	effective := authUser.EffectivePermissions()
	if effective == nil {
		effective = []auth.Permission{}
	}
	permissions := u.Permissions
	if permissions == nil {
		permissions = []auth.Permission{}
	}
	return &Profile{
		ID:                   u.ID,
		Username:             u.Username,
		Email:                u.Email,
		Role:                 u.Role,
		Permissions:          permissions,
		EffectivePermissions: effective,
		Disabled:             u.Disabled,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already registered")
	ErrEmailTaken    = errors.New("email already registered")
	// ErrLastAdmin guards the invariant that at least one enabled admin
	// account always exists.
	ErrLastAdmin = errors.New("cannot remove the last enabled admin")
)
