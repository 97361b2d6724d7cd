package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/licensestore/internal"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin    = "ADMIN"
	RoleStaff    = "STAFF"
	RoleCustomer = "CUSTOMER"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type ctxKey string

const ContextUserKey ctxKey = "auth_user"

// User is the authenticated caller as described by the access token.
type User struct {
	ID    int64    `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (u *User) IsAdmin() bool {
	return HasAnyRole(u.Roles)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok && u != nil
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

type ServiceAPI interface {
	Authenticate(dto LoginDTO) (AuthTokens, error)
	Register(dto RegisterDTO) (AuthTokens, error)
	RefreshTokens(refreshToken string) (AuthTokens, error)
	Logout(refreshToken string) error
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// Credentials is what login needs to verify a password.
type Credentials struct {
	UserID       int64
	Email        string
	PasswordHash string
	IsActive     bool
}

type RepositoryAPI interface {
	GetCredentialsByEmail(email string) (*Credentials, error)
	GetActiveUser(userID int64) (*User, error)
	EmailExists(email string) (bool, error)
	CreateWithRole(u *userdm.User, roleCode string) error
	SaveRefreshToken(t *userdm.RefreshToken) error
	GetRefreshToken(id string) (*userdm.RefreshToken, error)
	RevokeRefreshToken(id string) (bool, error)
	TouchLastLogin(userID int64) error
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(u *User) (string, error)
	GenerateRefreshToken(u *User) (token string, jti string, expiresAt time.Time, err error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
	AccessTTL() time.Duration
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"token_type"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidCredentials = internal.ErrInvalidCredentials
	ErrInvalidToken       = internal.ErrInvalidToken
	ErrTokenExpired       = internal.ErrTokenExpired
	ErrUserInactive       = internal.ErrUserInactive
	ErrEmailTaken         = internal.NewConflictError("Email is already registered", internal.ErrCodeEmailTaken)
)
