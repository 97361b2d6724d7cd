package user

import (
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) GetByID(userID int64) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if u == nil {
		return nil, ErrNotFound
	}

	roles, err := s.repo.GetRoles(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	return FromDataModel(u, roles), nil
}

func (s *Service) List(filter ListFilter) ([]User, int64, error) {
	rows, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	roles, err := s.repo.RolesFor(ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load roles: %w", err)
	}

	out := make([]User, 0, len(rows))
	for i := range rows {
		out = append(out, *FromDataModel(&rows[i], roles[rows[i].ID]))
	}
	return out, total, nil
}

func (s *Service) UpdateProfile(userID int64, dto UpdateProfileDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetByID(userID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProfile(userID, dto.FullName, dto.Phone); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.GetByID(userID)
}

func (s *Service) ChangePassword(userID int64, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return fmt.Errorf("failed to get user by id: %w", err)
	}
	if u == nil {
		return ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(userID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// ToggleActive flips the account flag. Deactivated users fail every permission
// check immediately; their outstanding access tokens expire on their own.
func (s *Service) ToggleActive(actorID, userID int64) (*User, error) {
	u, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if actorID == userID && u.IsActive {
		return nil, ErrSelfDeactivate
	}

	if err := s.repo.SetActive(userID, !u.IsActive); err != nil {
		return nil, fmt.Errorf("failed to toggle user: %w", err)
	}

	s.logger.Info("user toggled", "user_id", userID, "is_active", !u.IsActive, "actor_id", actorID)
	u.IsActive = !u.IsActive
	return u, nil
}
