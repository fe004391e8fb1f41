package auth

import (
	"context"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock UserRepository for testing
type mockUserRepository struct {
	users         map[string]*User
	returnError   bool
	errorToReturn error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	return &mockUserRepository{
		users: map[string]*User{
			"alice": {
				ID:           "11111111-1111-1111-1111-111111111111",
				Username:     "alice",
				Email:        "alice@example.com",
				Role:         RoleUser,
				PasswordHash: string(hashedPassword),
			},
			"bob": {
				ID:           "22222222-2222-2222-2222-222222222222",
				Username:     "bob",
				Email:        "bob@example.com",
				Role:         RoleAdmin,
				PasswordHash: string(hashedPassword),
			},
			"mallory": {
				ID:           "33333333-3333-3333-3333-333333333333",
				Username:     "mallory",
				Email:        "mallory@example.com",
				Role:         RoleUser,
				Disabled:     true,
				PasswordHash: string(hashedPassword),
			},
		},
	}
}

func (m *mockUserRepository) GetByUsername(_ context.Context, username string) (*User, error) {
	if m.returnError {
		return nil, m.errorToReturn
	}
	if u, exists := m.users[username]; exists {
		return u, nil
	}
	return nil, ErrUserNotFound
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockUserRepository
		tokenGen *JWTTokenGenerator
	)

	ginkgo.BeforeEach(func() {
		var err error
		mockRepo = newMockUserRepository()
		tokenGen, err = NewJWTTokenGenerator("test-secret", "HS256", 15*time.Minute)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		service = NewService(mockRepo, tokenGen)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should return a bearer token", func() {
				tokens, err := service.Authenticate(context.Background(), LoginDTO{
					Username: "alice",
					Password: "correct_password",
				})

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
				gomega.Expect(tokens.TokenType).To(gomega.Equal("bearer"))
			})

			ginkgo.It("should issue a token that resolves back to the user", func() {
				tokens, err := service.Authenticate(context.Background(), LoginDTO{
					Username: "alice",
					Password: "correct_password",
				})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())

				user, err := service.ResolveUser(context.Background(), tokens.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(user.Username).To(gomega.Equal("alice"))
			})

			ginkgo.It("should authenticate a disabled account", func() {
				// Disabled accounts can still log in; the active check
				// happens per route.
				_, err := service.Authenticate(context.Background(), LoginDTO{
					Username: "mallory",
					Password: "correct_password",
				})
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should reject a wrong password", func() {
				_, err := service.Authenticate(context.Background(), LoginDTO{
					Username: "alice",
					Password: "wrong_password",
				})
				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
			})

			ginkgo.It("should reject an unknown username with the same error", func() {
				_, err := service.Authenticate(context.Background(), LoginDTO{
					Username: "nobody",
					Password: "correct_password",
				})
				gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
			})
		})
	})

	ginkgo.Describe("ResolveUser", func() {
		ginkgo.It("should reject a tampered token", func() {
			tokens, err := service.Authenticate(context.Background(), LoginDTO{
				Username: "alice",
				Password: "correct_password",
			})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ResolveUser(context.Background(), tokens.AccessToken+"x")
			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})

		ginkgo.It("should reject a token signed with a different secret", func() {
			otherGen, err := NewJWTTokenGenerator("other-secret", "HS256", 15*time.Minute)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			token, err := otherGen.GenerateAccessToken("alice")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ResolveUser(context.Background(), token)
			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})

		ginkgo.It("should reject an expired token", func() {
			expiredGen, err := NewJWTTokenGenerator("test-secret", "HS256", -time.Minute)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			token, err := expiredGen.GenerateAccessToken("alice")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ResolveUser(context.Background(), token)
			gomega.Expect(err).To(gomega.Equal(ErrTokenExpired))
		})

		ginkgo.It("should reject a token whose subject no longer exists", func() {
			token, err := tokenGen.GenerateAccessToken("ghost")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ResolveUser(context.Background(), token)
			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})
	})

	ginkgo.Describe("RequireActive", func() {
		ginkgo.It("should pass an enabled account", func() {
			gomega.Expect(service.RequireActive(&User{Disabled: false})).To(gomega.Succeed())
		})

		ginkgo.It("should reject a disabled account", func() {
			gomega.Expect(service.RequireActive(&User{Disabled: true})).To(gomega.Equal(ErrUserDisabled))
		})
	})

	ginkgo.Describe("NewJWTTokenGenerator", func() {
		ginkgo.It("should reject non-HMAC algorithms", func() {
			_, err := NewJWTTokenGenerator("secret", "RS256", time.Minute)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})

		ginkgo.It("should reject unknown algorithms", func() {
			_, err := NewJWTTokenGenerator("secret", "XX999", time.Minute)
			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})
})
