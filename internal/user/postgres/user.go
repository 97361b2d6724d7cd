package postgres

import (
	"errors"
	"strings"

	rbacdm "github.com/frahmantamala/licensestore/internal/core/datamodel/rbac"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"github.com/frahmantamala/licensestore/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(userID int64) (*userdm.User, error) {
	var u userdm.User
	err := r.db.First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetRoles(userID int64) ([]string, error) {
	var roles []string
	err := r.db.Model(&rbacdm.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.code").
		Pluck("roles.code", &roles).Error
	return roles, err
}

func (r *UserRepository) RolesFor(userIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		UserID int64
		Code   string
	}
	err := r.db.Table("user_roles").
		Select("user_roles.user_id, roles.code").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id IN ?", userIDs).
		Order("roles.code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.Code)
	}
	return out, nil
}

func (r *UserRepository) List(filter user.ListFilter) ([]userdm.User, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Search != "" {
			like := "%" + strings.ToLower(filter.Search) + "%"
			q = q.Where("(LOWER(email) LIKE ? OR LOWER(full_name) LIKE ? OR phone LIKE ?)", like, like, like)
		}
		if filter.IsActive != nil {
			q = q.Where("is_active = ?", *filter.IsActive)
		}
		if filter.Role != "" {
			q = q.Where("id IN (?)", r.db.Table("user_roles").
				Select("user_roles.user_id").
				Joins("JOIN roles ON roles.id = user_roles.role_id").
				Where("roles.code = ?", filter.Role))
		}
		return q
	}

	var total int64
	if err := r.db.Model(&userdm.User{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []userdm.User
	err := r.db.Scopes(scope).Order("created_at DESC, id DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&users).Error
	return users, total, err
}

func (r *UserRepository) UpdateProfile(userID int64, fullName, phone string) error {
	return r.db.Model(&userdm.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"full_name": fullName,
		"phone":     phone,
	}).Error
}

func (r *UserRepository) UpdatePassword(userID int64, hash string) error {
	return r.db.Model(&userdm.User{}).Where("id = ?", userID).Update("password_hash", hash).Error
}

func (r *UserRepository) SetActive(userID int64, active bool) error {
	return r.db.Model(&userdm.User{}).Where("id = ?", userID).Update("is_active", active).Error
}
