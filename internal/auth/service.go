package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ServiceAPI is what the transport layer sees of the auth service.
type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (TokenResponse, error)
	ResolveUser(ctx context.Context, tokenString string) (*User, error)
	RequireActive(u *User) error
}

// Service authenticates credentials and resolves bearer tokens to users. It
// only ever compares password hashes; creating them, and the cost that
// governs it, belongs to the user service.
type Service struct {
	users  UserRepository
	tokens TokenGenerator
}

func NewService(users UserRepository, tokens TokenGenerator) *Service {
	return &Service{users: users, tokens: tokens}
}

// Authenticate verifies a username/password pair and issues an access token.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (TokenResponse, error) {
	if err := dto.Validate(); err != nil {
		return TokenResponse{}, err
	}

	user, err := s.users.GetByUsername(ctx, dto.Username)
	if err != nil {
		return TokenResponse{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		return TokenResponse{}, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(user.Username)
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// ResolveUser turns a bearer token into a verified user. Signature, expiry
// and subject-claim failures, as well as an unknown username, all surface as
// authentication errors.
func (s *Service) ResolveUser(ctx context.Context, tokenString string) (*User, error) {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// RequireActive rejects disabled accounts. Distinct from token validation
// failures: the identity is valid, the account just may not act.
func (s *Service) RequireActive(u *User) error {
	if u.Disabled {
		return ErrUserDisabled
	}
	return nil
}

// JWTTokenGenerator signs HS-family access tokens with a shared secret. The
// subject claim carries the username.
type JWTTokenGenerator struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

func NewJWTTokenGenerator(secret, algorithm string, ttl time.Duration) (*JWTTokenGenerator, error) {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing algorithm %q is not HMAC-based", algorithm)
	}
	return &JWTTokenGenerator{
		secret: []byte(secret),
		method: method,
		ttl:    ttl,
	}, nil
}

func (j *JWTTokenGenerator) GenerateAccessToken(username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}

	token := jwt.NewWithClaims(j.method, claims)
	return token.SignedString(j.secret)
}

func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
