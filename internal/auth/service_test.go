package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/frahmantamala/licensestore/internal"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock repository for testing
type mockRepository struct {
	creds       map[string]*Credentials
	users       map[int64]*User
	tokens      map[string]*userdm.RefreshToken
	created     []*userdm.User
	nextID      int64
	returnError error
	// afterGet runs between reading a refresh token and revoking it.
	afterGet func(id string)
}

func newMockRepository() *mockRepository {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.MinCost)

	return &mockRepository{
		creds: map[string]*Credentials{
			"buyer@example.com":  {UserID: 1, Email: "buyer@example.com", PasswordHash: string(hash), IsActive: true},
			"admin@example.com":  {UserID: 2, Email: "admin@example.com", PasswordHash: string(hash), IsActive: true},
			"banned@example.com": {UserID: 3, Email: "banned@example.com", PasswordHash: string(hash), IsActive: false},
		},
		users: map[int64]*User{
			1: {ID: 1, Email: "buyer@example.com", Roles: []string{RoleCustomer}},
			2: {ID: 2, Email: "admin@example.com", Roles: []string{RoleAdmin}},
		},
		tokens: map[string]*userdm.RefreshToken{},
		nextID: 100,
	}
}

func (m *mockRepository) GetCredentialsByEmail(email string) (*Credentials, error) {
	if m.returnError != nil {
		return nil, m.returnError
	}
	return m.creds[email], nil
}

func (m *mockRepository) GetActiveUser(userID int64) (*User, error) {
	if m.returnError != nil {
		return nil, m.returnError
	}
	return m.users[userID], nil
}

func (m *mockRepository) EmailExists(email string) (bool, error) {
	_, ok := m.creds[email]
	return ok, nil
}

func (m *mockRepository) CreateWithRole(u *userdm.User, roleCode string) error {
	m.nextID++
	u.ID = m.nextID
	m.created = append(m.created, u)
	m.users[u.ID] = &User{ID: u.ID, Email: u.Email, Roles: []string{roleCode}}
	return nil
}

func (m *mockRepository) SaveRefreshToken(t *userdm.RefreshToken) error {
	m.tokens[t.ID] = t
	return nil
}

func (m *mockRepository) GetRefreshToken(id string) (*userdm.RefreshToken, error) {
	t, ok := m.tokens[id]
	if !ok {
		return nil, nil
	}
	snapshot := *t
	if m.afterGet != nil {
		m.afterGet(id)
	}
	return &snapshot, nil
}

func (m *mockRepository) RevokeRefreshToken(id string) (bool, error) {
	t, ok := m.tokens[id]
	if !ok || t.RevokedAt != nil {
		return false, nil
	}
	now := time.Now()
	t.RevokedAt = &now
	return true, nil
}

func (m *mockRepository) TouchLastLogin(userID int64) error { return nil }

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockRepository
		tokenGen *JWTTokenGenerator
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockRepository()
		tokenGen = NewJWTTokenGenerator("test-access-secret-0123456789abcdef", "test-refresh-secret-0123456789abcdef", 15*time.Minute, 24*time.Hour)
		service = NewService(mockRepo, tokenGen, bcrypt.MinCost, nil)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.Context("when credentials are valid", func() {
			ginkgo.It("should issue tokens carrying the caller's roles", func() {
				tokens, err := service.Authenticate(LoginDTO{Email: "Admin@Example.com ", Password: "correct_password"})

				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(tokens.AccessToken).ToNot(gomega.Equal(tokens.RefreshToken))
				gomega.Expect(tokens.TokenType).To(gomega.Equal("Bearer"))

				claims, err := service.ValidateAccessToken(tokens.AccessToken)
				gomega.Expect(err).ToNot(gomega.HaveOccurred())
				gomega.Expect(claims.UserID).To(gomega.Equal("2"))
				gomega.Expect(claims.Roles).To(gomega.ConsistOf(RoleAdmin))
				gomega.Expect(mockRepo.tokens).To(gomega.HaveLen(1))
			})
		})

		ginkgo.Context("when credentials are invalid", func() {
			ginkgo.It("should reject unknown emails", func() {
				_, err := service.Authenticate(LoginDTO{Email: "ghost@example.com", Password: "whatever"})
				gomega.Expect(errors.Is(err, ErrInvalidCredentials)).To(gomega.BeTrue())
			})

			ginkgo.It("should reject wrong passwords", func() {
				_, err := service.Authenticate(LoginDTO{Email: "buyer@example.com", Password: "nope"})
				gomega.Expect(errors.Is(err, ErrInvalidCredentials)).To(gomega.BeTrue())
			})

			ginkgo.It("should reject inactive users", func() {
				_, err := service.Authenticate(LoginDTO{Email: "banned@example.com", Password: "correct_password"})
				gomega.Expect(errors.Is(err, ErrUserInactive)).To(gomega.BeTrue())
			})

			ginkgo.It("should return a validation error for a malformed email", func() {
				_, err := service.Authenticate(LoginDTO{Email: "not-an-email", Password: "x"})
				appErr, ok := internal.IsAppError(err)
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeValidation))
			})
		})

		ginkgo.It("should wrap repository failures", func() {
			mockRepo.returnError = errors.New("db down")
			_, err := service.Authenticate(LoginDTO{Email: "buyer@example.com", Password: "correct_password"})
			gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("db down")))
		})
	})

	ginkgo.Describe("Register", func() {
		ginkgo.It("should create a customer and log them in", func() {
			tokens, err := service.Register(RegisterDTO{Email: "new@example.com", Password: "long-enough", FullName: "Nguyen Van A"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(mockRepo.created).To(gomega.HaveLen(1))
			gomega.Expect(mockRepo.created[0].PasswordHash).ToNot(gomega.Equal("long-enough"))

			claims, err := service.ValidateAccessToken(tokens.AccessToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.Roles).To(gomega.ConsistOf(RoleCustomer))
		})

		ginkgo.It("should refuse a taken email", func() {
			_, err := service.Register(RegisterDTO{Email: "buyer@example.com", Password: "long-enough", FullName: "Dup"})
			gomega.Expect(errors.Is(err, ErrEmailTaken)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("should rotate the refresh token", func() {
			tokens, err := service.Authenticate(LoginDTO{Email: "buyer@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			rotated, err := service.RefreshTokens(tokens.RefreshToken)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(rotated.RefreshToken).ToNot(gomega.Equal(tokens.RefreshToken))

			_, err = service.RefreshTokens(tokens.RefreshToken)
			gomega.Expect(errors.Is(err, ErrInvalidToken)).To(gomega.BeTrue())
		})

		ginkgo.It("should reject a token revoked by a concurrent rotation", func() {
			tokens, err := service.Authenticate(LoginDTO{Email: "buyer@example.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			mockRepo.afterGet = func(id string) {
				mockRepo.afterGet = nil
				_, _ = mockRepo.RevokeRefreshToken(id)
			}

			_, err = service.RefreshTokens(tokens.RefreshToken)
			gomega.Expect(errors.Is(err, ErrInvalidToken)).To(gomega.BeTrue())
			gomega.Expect(mockRepo.tokens).To(gomega.HaveLen(1))
		})

		ginkgo.It("should not accept an access token as refresh token", func() {
			tokens, _ := service.Authenticate(LoginDTO{Email: "buyer@example.com", Password: "correct_password"})
			_, err := service.RefreshTokens(tokens.AccessToken)
			gomega.Expect(errors.Is(err, ErrInvalidToken)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("Logout", func() {
		ginkgo.It("should revoke the refresh token", func() {
			tokens, _ := service.Authenticate(LoginDTO{Email: "buyer@example.com", Password: "correct_password"})
			gomega.Expect(service.Logout(tokens.RefreshToken)).To(gomega.Succeed())

			_, err := service.RefreshTokens(tokens.RefreshToken)
			gomega.Expect(errors.Is(err, ErrInvalidToken)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("should report expired tokens", func() {
			short := NewJWTTokenGenerator("test-access-secret-0123456789abcdef", "test-refresh-secret-0123456789abcdef", time.Millisecond, time.Hour)
			token, err := short.GenerateAccessToken(&User{ID: 1, Email: "buyer@example.com"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			time.Sleep(1100 * time.Millisecond)

			_, err = short.ValidateAccessToken(token)
			gomega.Expect(errors.Is(err, ErrTokenExpired)).To(gomega.BeTrue())
		})

		ginkgo.It("should reject tokens signed with another secret", func() {
			other := NewJWTTokenGenerator("another-access-secret-0123456789abcd", "x", time.Minute, time.Hour)
			token, _ := other.GenerateAccessToken(&User{ID: 1})
			_, err := service.ValidateAccessToken(token)
			gomega.Expect(errors.Is(err, ErrInvalidToken)).To(gomega.BeTrue())
		})
	})
})
