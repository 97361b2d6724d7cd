package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/licensestore/internal/auth"
	rbacdm "github.com/frahmantamala/licensestore/internal/core/datamodel/rbac"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentialsByEmail(email string) (*auth.Credentials, error) {
	var u userdm.User
	err := r.db.Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &auth.Credentials{
		UserID:       u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsActive:     u.IsActive,
	}, nil
}

// GetActiveUser returns nil when the user is missing or deactivated. Only active
// roles are listed.
func (r *Repository) GetActiveUser(userID int64) (*auth.User, error) {
	var u userdm.User
	err := r.db.Where("id = ? AND is_active = ?", userID, true).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var roles []string
	err = r.db.Model(&rbacdm.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND roles.is_active = ?", userID, true).
		Order("roles.code").
		Pluck("roles.code", &roles).Error
	if err != nil {
		return nil, err
	}

	return &auth.User{ID: u.ID, Email: u.Email, Roles: roles}, nil
}

func (r *Repository) EmailExists(email string) (bool, error) {
	var count int64
	err := r.db.Model(&userdm.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateWithRole(u *userdm.User, roleCode string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}

		var role rbacdm.Role
		if err := tx.Where("code = ?", roleCode).First(&role).Error; err != nil {
			return fmt.Errorf("role %s: %w", roleCode, err)
		}

		return tx.Create(&rbacdm.UserRole{UserID: u.ID, RoleID: role.ID}).Error
	})
}

func (r *Repository) SaveRefreshToken(t *userdm.RefreshToken) error {
	return r.db.Create(t).Error
}

func (r *Repository) GetRefreshToken(id string) (*userdm.RefreshToken, error) {
	var t userdm.RefreshToken
	err := r.db.Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// RevokeRefreshToken reports false when the token was already revoked or never
// existed, so only one caller can win a rotation.
func (r *Repository) RevokeRefreshToken(id string) (bool, error) {
	res := r.db.Model(&userdm.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", time.Now())
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) TouchLastLogin(userID int64) error {
	return r.db.Model(&userdm.User{}).Where("id = ?", userID).Update("last_login_at", time.Now()).Error
}
