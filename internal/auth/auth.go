package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// User is the resolver's view of an account: enough to evaluate permissions
// and ownership, nothing more. Permissions holds the ad-hoc grants only; the
// role baseline is derived via RolePermissions.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	Role         Role         `json:"role"`
	Permissions  []Permission `json:"permissions"`
	Disabled     bool         `json:"disabled"`
	PasswordHash string       `json:"-"`
}

// Claims carried by access tokens. The subject is the username.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenGenerator signs and verifies access tokens.
type TokenGenerator interface {
	GenerateAccessToken(username string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// UserRepository is the lookup capability the resolver needs. It is injected
// at construction so auth never reaches into the user store directly.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("user is disabled")
)

type ctxKey string

const ContextUserKey ctxKey = "user"

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}
