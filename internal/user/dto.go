package user

import (
	"strings"

	"github.com/widgetlabs/widget-api/internal"
	"github.com/widgetlabs/widget-api/internal/auth"
	"github.com/widgetlabs/widget-api/internal/core/common/sanitize"
)

type RegisterDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d *RegisterDTO) Validate() error {
	d.Username = sanitize.String(strings.TrimSpace(d.Username))
	d.Email = sanitize.String(strings.TrimSpace(d.Email))

	if len(d.Username) < 3 || len(d.Username) > 50 {
		return internal.NewValidationError("username must be between 3 and 50 characters", internal.ErrCodeValidationFailed)
	}
	if !strings.Contains(d.Email, "@") {
		return internal.NewValidationError("email is not valid", internal.ErrCodeValidationFailed)
	}
	if len(d.Password) < 8 {
		return internal.NewValidationError("password must be at least 8 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

// UpdateUserDTO is a partial update; nil fields are left untouched.
type UpdateUserDTO struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (d *UpdateUserDTO) Validate() error {
	if d.Username != nil {
		trimmed := sanitize.String(strings.TrimSpace(*d.Username))
		d.Username = &trimmed
		if len(trimmed) < 3 || len(trimmed) > 50 {
			return internal.NewValidationError("username must be between 3 and 50 characters", internal.ErrCodeValidationFailed)
		}
	}
	if d.Email != nil {
		trimmed := sanitize.String(strings.TrimSpace(*d.Email))
		d.Email = &trimmed
		if !strings.Contains(trimmed, "@") {
			return internal.NewValidationError("email is not valid", internal.ErrCodeValidationFailed)
		}
	}
	if d.Password != nil && len(*d.Password) < 8 {
		return internal.NewValidationError("password must be at least 8 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

// Empty reports whether the patch carries no fields at all.
func (d *UpdateUserDTO) Empty() bool {
	return d.Username == nil && d.Email == nil && d.Password == nil
}

type RoleUpdateDTO struct {
	Role auth.Role `json:"role"`
}

func (d *RoleUpdateDTO) Validate() error {
	if !d.Role.Valid() {
		return internal.NewValidationError("role must be one of admin, manager, user", internal.ErrCodeValidationFailed)
	}
	return nil
}

type StatusUpdateDTO struct {
	Disabled bool `json:"disabled"`
}

type GrantPermissionDTO struct {
	Permission auth.Permission `json:"permission"`
}

func (d *GrantPermissionDTO) Validate() error {
	if !d.Permission.Valid() {
		return internal.NewValidationError("unknown permission", internal.ErrCodeValidationFailed)
	}
	return nil
}

type ListQuery struct {
	Skip  int
	Limit int
}

func (q *ListQuery) Validate() error {
	if q.Limit == 0 {
		q.Limit = 10
	}
	if q.Skip < 0 {
		return internal.NewValidationError("skip must not be negative", internal.ErrCodeInvalidPage)
	}
	if q.Limit < 1 || q.Limit > 100 {
		return internal.NewValidationError("limit must be between 1 and 100", internal.ErrCodeInvalidPage)
	}
	return nil
}
