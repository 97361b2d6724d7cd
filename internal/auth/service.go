package auth

import (
	"fmt"
	"log/slog"
	"time"

	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"golang.org/x/crypto/bcrypt"
)

// Service is the main auth service with dependencies
type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	bcryptCost     int
	logger         *slog.Logger
}

// NewService creates a new auth service
func NewService(repo RepositoryAPI, tokenGen TokenGeneratorAPI, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

// Authenticate validates credentials and returns tokens
func (s *Service) Authenticate(dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	creds, err := s.repo.GetCredentialsByEmail(dto.Email)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("load credentials: %w", err)
	}
	if creds == nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(dto.Password)); err != nil {
		return AuthTokens{}, ErrInvalidCredentials
	}

	if !creds.IsActive {
		return AuthTokens{}, ErrUserInactive
	}

	user, err := s.repo.GetActiveUser(creds.UserID)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return AuthTokens{}, ErrUserInactive
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return AuthTokens{}, err
	}

	if err := s.repo.TouchLastLogin(user.ID); err != nil {
		s.logger.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}

	return tokens, nil
}

func (s *Service) Register(dto RegisterDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	exists, err := s.repo.EmailExists(dto.Email)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return AuthTokens{}, ErrEmailTaken
	}

	hash, err := s.HashPassword(dto.Password)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("hash password: %w", err)
	}

	row := &userdm.User{
		Email:        dto.Email,
		FullName:     dto.FullName,
		Phone:        dto.Phone,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.CreateWithRole(row, RoleCustomer); err != nil {
		return AuthTokens{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("customer registered", "user_id", row.ID)

	return s.issueTokens(&User{ID: row.ID, Email: row.Email, Roles: []string{RoleCustomer}})
}

// RefreshTokens rotates a refresh token: the presented one is revoked and a new
// pair is issued with freshly loaded roles.
func (s *Service) RefreshTokens(refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	stored, err := s.repo.GetRefreshToken(claims.ID)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("load refresh token: %w", err)
	}
	if stored == nil || stored.RevokedAt != nil || time.Now().After(stored.ExpiresAt) {
		return AuthTokens{}, ErrInvalidToken
	}

	user, err := s.repo.GetActiveUser(stored.UserID)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return AuthTokens{}, ErrUserInactive
	}

	revoked, err := s.repo.RevokeRefreshToken(stored.ID)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	if !revoked {
		s.logger.Warn("refresh token reused", "user_id", stored.UserID, "jti", stored.ID)
		return AuthTokens{}, ErrInvalidToken
	}

	return s.issueTokens(user)
}

func (s *Service) Logout(refreshToken string) error {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	if _, err := s.repo.RevokeRefreshToken(claims.ID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) issueTokens(user *User) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(user)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, jti, expiresAt, err := s.tokenGenerator.GenerateRefreshToken(user)
	if err != nil {
		return AuthTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.repo.SaveRefreshToken(&userdm.RefreshToken{
		ID:        jti,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}); err != nil {
		return AuthTokens{}, fmt.Errorf("store refresh token: %w", err)
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenGenerator.AccessTTL().Seconds()),
	}, nil
}
