package postgres

import (
	"context"
	"errors"

	rbacdm "github.com/frahmantamala/licensestore/internal/core/datamodel/rbac"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"github.com/frahmantamala/licensestore/internal/rbac"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListRoles() ([]rbacdm.Role, error) {
	var roles []rbacdm.Role
	err := r.db.Order("code").Find(&roles).Error
	return roles, err
}

func (r *Repository) GetRole(id int64) (*rbacdm.Role, error) {
	var role rbacdm.Role
	err := r.db.First(&role, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *Repository) GetRolesByCodes(codes []string) ([]rbacdm.Role, error) {
	var roles []rbacdm.Role
	err := r.db.Where("code IN ?", codes).Order("code").Find(&roles).Error
	return roles, err
}

func (r *Repository) CreateRole(role *rbacdm.Role) error {
	return r.db.Create(role).Error
}

func (r *Repository) SaveRole(role *rbacdm.Role) error {
	return r.db.Save(role).Error
}

func (r *Repository) CountRoleUsers(roleID int64) (int64, error) {
	var count int64
	err := r.db.Model(&rbacdm.UserRole{}).Where("role_id = ?", roleID).Count(&count).Error
	return count, err
}

func (r *Repository) DeleteRole(roleID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", roleID).Delete(&rbacdm.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rbacdm.Role{}, roleID).Error
	})
}

// CodeExists checks uniqueness of a code in roles, modules or permissions.
func (r *Repository) CodeExists(table, code string, excludeID int64) (bool, error) {
	var model interface{}
	switch table {
	case "roles":
		model = &rbacdm.Role{}
	case "modules":
		model = &rbacdm.Module{}
	case "permissions":
		model = &rbacdm.Permission{}
	default:
		return false, errors.New("unknown code table " + table)
	}

	var count int64
	q := r.db.Model(model).Where("code = ?", code)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListModules() ([]rbacdm.Module, error) {
	var modules []rbacdm.Module
	err := r.db.Order("code").Find(&modules).Error
	return modules, err
}

func (r *Repository) GetModuleByCode(code string) (*rbacdm.Module, error) {
	var m rbacdm.Module
	err := r.db.Where("code = ?", code).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repository) CreateModule(m *rbacdm.Module) error {
	return r.db.Create(m).Error
}

func (r *Repository) ListPermissions() ([]rbacdm.Permission, error) {
	var perms []rbacdm.Permission
	err := r.db.Order("code").Find(&perms).Error
	return perms, err
}

func (r *Repository) GetPermissionByCode(code string) (*rbacdm.Permission, error) {
	var p rbacdm.Permission
	err := r.db.Where("code = ?", code).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) CreatePermission(p *rbacdm.Permission) error {
	return r.db.Create(p).Error
}

func (r *Repository) grantQuery() *gorm.DB {
	return r.db.Table("role_permissions rp").
		Select("rp.id, rp.role_id, rp.module_id, m.code AS module_code, rp.permission_id, p.code AS permission_code, rp.is_active").
		Joins("JOIN modules m ON m.id = rp.module_id").
		Joins("JOIN permissions p ON p.id = rp.permission_id")
}

func (r *Repository) ListGrants(roleID int64) ([]rbac.Grant, error) {
	var grants []rbac.Grant
	err := r.grantQuery().Where("rp.role_id = ?", roleID).Order("m.code, p.code").Scan(&grants).Error
	return grants, err
}

func (r *Repository) GetGrant(id int64) (*rbac.Grant, error) {
	var grants []rbac.Grant
	if err := r.grantQuery().Where("rp.id = ?", id).Limit(1).Scan(&grants).Error; err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, nil
	}
	return &grants[0], nil
}

func (r *Repository) FindGrant(roleID, moduleID, permissionID int64) (*rbacdm.RolePermission, error) {
	var rp rbacdm.RolePermission
	err := r.db.Where("role_id = ? AND module_id = ? AND permission_id = ?", roleID, moduleID, permissionID).First(&rp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

func (r *Repository) SaveGrant(rp *rbacdm.RolePermission) error {
	if rp.ID == 0 {
		return r.db.Create(rp).Error
	}
	return r.db.Model(&rbacdm.RolePermission{}).Where("id = ?", rp.ID).Update("is_active", rp.IsActive).Error
}

func (r *Repository) UserExists(userID int64) (bool, error) {
	var count int64
	err := r.db.Model(&userdm.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *Repository) ReplaceUserRoles(userID int64, roleIDs []int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&rbacdm.UserRole{}).Error; err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if err := tx.Create(&rbacdm.UserRole{UserID: userID, RoleID: roleID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) ListEffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	var perms []string
	err := r.db.WithContext(ctx).Table("role_permissions rp").
		Joins("JOIN roles r ON r.id = rp.role_id AND r.is_active = ?", true).
		Joins("JOIN user_roles ur ON ur.role_id = r.id").
		Joins("JOIN modules m ON m.id = rp.module_id").
		Joins("JOIN permissions p ON p.id = rp.permission_id").
		Where("ur.user_id = ? AND rp.is_active = ?", userID, true).
		Distinct().
		Order("1").
		Pluck("m.code || ':' || p.code", &perms).Error
	return perms, err
}
