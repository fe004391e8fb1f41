package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/widgetlabs/widget-api/internal/auth"
)

// Repository is the persistence surface the service depends on.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, skip, limit int) ([]User, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (int64, error)
	GrantPermission(ctx context.Context, userID string, permission auth.Permission) error
	CountEnabledAdmins(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// WidgetPurger removes every widget owned by a user. Deletion cascades
// through it so the user package never imports the widget package.
type WidgetPurger interface {
	PurgeOwner(ctx context.Context, ownerID string) error
}

// ErrNotSelfOrPrivileged marks a profile update attempted on another account
// without the update permission.
var ErrNotSelfOrPrivileged = errors.New("not permitted to modify this user")

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*Profile, error)
	List(ctx context.Context, query ListQuery) ([]*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	Update(ctx context.Context, actor *auth.User, targetID string, dto UpdateUserDTO) (*Profile, error)
	UpdateRole(ctx context.Context, targetID string, role auth.Role) (*Profile, error)
	UpdateStatus(ctx context.Context, targetID string, disabled bool) (*Profile, error)
	GrantPermission(ctx context.Context, targetID string, permission auth.Permission) (*Profile, error)
	Delete(ctx context.Context, targetID string) error
}

type Service struct {
	repo       Repository
	widgets    WidgetPurger
	bcryptCost int
}

// NewService builds the service. A zero bcryptCost falls back to the bcrypt
// default.
func NewService(repo Repository, widgets WidgetPurger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		widgets:    widgets,
		bcryptCost: bcryptCost,
	}
}

// Register creates a new account with the default role and no ad-hoc grants.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*Profile, error) {
	if _, err := s.repo.GetByUsername(ctx, dto.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	if _, err := s.repo.GetByEmail(ctx, dto.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &User{
		ID:           uuid.NewString(),
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: string(hash),
		Role:         auth.RoleUser,
		Disabled:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u.ToProfile(), nil
}

func (s *Service) List(ctx context.Context, query ListQuery) ([]*Profile, error) {
	users, err := s.repo.List(ctx, query.Skip, query.Limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	profiles := make([]*Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].ToProfile())
	}
	return profiles, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Profile, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.ToProfile(), nil
}

// Update applies a partial profile change. Callers may always update their
// own account; touching another account requires the update:user permission.
// An empty patch performs no write and returns the current state.
func (s *Service) Update(ctx context.Context, actor *auth.User, targetID string, dto UpdateUserDTO) (*Profile, error) {
	if actor.ID != targetID && !actor.HasPermission(auth.PermUpdateUser) {
		return nil, ErrNotSelfOrPrivileged
	}

	if dto.Empty() {
		return s.GetByID(ctx, targetID)
	}

	fields := map[string]interface{}{}

	if dto.Username != nil {
		existing, err := s.repo.GetByUsername(ctx, *dto.Username)
		if err == nil && existing.ID != targetID {
			return nil, ErrUsernameTaken
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check username: %w", err)
		}
		fields["username"] = *dto.Username
	}

	if dto.Email != nil {
		existing, err := s.repo.GetByEmail(ctx, *dto.Email)
		if err == nil && existing.ID != targetID {
			return nil, ErrEmailTaken
		} else if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
		fields["email"] = *dto.Email
	}

	if dto.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*dto.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		fields["password_hash"] = string(hash)
	}

	return s.applyFields(ctx, targetID, fields)
}

// UpdateRole switches the role baseline; stored ad-hoc grants are untouched.
func (s *Service) UpdateRole(ctx context.Context, targetID string, role auth.Role) (*Profile, error) {
	return s.applyFields(ctx, targetID, map[string]interface{}{"role": string(role)})
}

// UpdateStatus enables or disables an account. Disabling the last enabled
// admin is refused so administrative access can never be locked out.
func (s *Service) UpdateStatus(ctx context.Context, targetID string, disabled bool) (*Profile, error) {
	if disabled {
		target, err := s.repo.GetByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if target.Role == auth.RoleAdmin && !target.Disabled {
			admins, err := s.repo.CountEnabledAdmins(ctx)
			if err != nil {
				return nil, fmt.Errorf("count admins: %w", err)
			}
			if admins <= 1 {
				return nil, ErrLastAdmin
			}
		}
	}
	return s.applyFields(ctx, targetID, map[string]interface{}{"disabled": disabled})
}

// GrantPermission adds an ad-hoc grant. Granting a permission the user
// already holds ad hoc is a no-op that returns the current state; a grant
// already covered by the role baseline is still stored, so it survives a
// later role downgrade.
func (s *Service) GrantPermission(ctx context.Context, targetID string, permission auth.Permission) (*Profile, error) {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	authUser := auth.User{Role: target.Role, Permissions: target.Permissions}
	if authUser.HasGrant(permission) {
		return target.ToProfile(), nil
	}

	if err := s.repo.GrantPermission(ctx, targetID, permission); err != nil {
		return nil, fmt.Errorf("grant permission: %w", err)
	}

	updated, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return updated.ToProfile(), nil
}

// Delete removes an account and purges its widgets. The last enabled admin
// cannot be deleted.
func (s *Service) Delete(ctx context.Context, targetID string) error {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if target.Role == auth.RoleAdmin && !target.Disabled {
		admins, err := s.repo.CountEnabledAdmins(ctx)
		if err != nil {
			return fmt.Errorf("count admins: %w", err)
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}

	if s.widgets != nil {
		if err := s.widgets.PurgeOwner(ctx, targetID); err != nil {
			return fmt.Errorf("purge widgets: %w", err)
		}
	}

	deleted, err := s.repo.Delete(ctx, targetID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) applyFields(ctx context.Context, targetID string, fields map[string]interface{}) (*Profile, error) {
	fields["updated_at"] = time.Now().UTC()
	modified, err := s.repo.UpdateFields(ctx, targetID, fields)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if modified == 0 {
		// GORM reports zero rows both for a missing record and an update
		// that changed nothing; distinguish by fetching.
		if _, getErr := s.repo.GetByID(ctx, targetID); getErr != nil {
			return nil, getErr
		}
	}
	return s.GetByID(ctx, targetID)
}
