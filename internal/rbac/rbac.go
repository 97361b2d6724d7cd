package rbac

import (
	"context"

	"github.com/frahmantamala/licensestore/internal"
	rbacdm "github.com/frahmantamala/licensestore/internal/core/datamodel/rbac"
)

// Module codes guarded by permission policies.
const (
	ModuleDashboard   = "DASHBOARD"
	ModuleCategory    = "CATEGORY"
	ModuleProduct     = "PRODUCT"
	ModuleOrder       = "ORDER"
	ModulePayment     = "PAYMENT"
	ModuleUser        = "USER"
	ModuleRole        = "ROLE"
	ModuleTicket      = "TICKET"
	ModuleSupportChat = "SUPPORT_CHAT"
	ModuleContent     = "CONTENT"
)

// Permission codes.
const (
	PermissionView   = "VIEW"
	PermissionCreate = "CREATE"
	PermissionEdit   = "EDIT"
	PermissionDelete = "DELETE"
	PermissionExport = "EXPORT"
	PermissionAssign = "ASSIGN"
)

// Grant is a role permission joined with its module and permission codes.
type Grant struct {
	ID             int64  `json:"id"`
	RoleID         int64  `json:"role_id"`
	ModuleID       int64  `json:"module_id"`
	ModuleCode     string `json:"module_code"`
	PermissionID   int64  `json:"permission_id"`
	PermissionCode string `json:"permission_code"`
	IsActive       bool   `json:"is_active"`
}

type ServiceAPI interface {
	ListRoles() ([]RoleResponse, error)
	GetRole(id int64) (*RoleResponse, error)
	CreateRole(dto RoleDTO) (*RoleResponse, error)
	UpdateRole(id int64, dto RoleDTO) (*RoleResponse, error)
	ToggleRole(id int64) (*RoleResponse, error)
	DeleteRole(id int64) error
	ListModules() ([]CodeResponse, error)
	CreateModule(dto CodeDTO) (*CodeResponse, error)
	ListPermissions() ([]CodeResponse, error)
	CreatePermission(dto CodeDTO) (*CodeResponse, error)
	ListGrants(roleID int64) ([]Grant, error)
	UpsertGrant(roleID int64, dto GrantDTO) (*Grant, error)
	ToggleGrant(roleID, grantID int64) (*Grant, error)
	AssignUserRoles(userID int64, dto AssignRolesDTO) ([]string, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

type RepositoryAPI interface {
	ListRoles() ([]rbacdm.Role, error)
	GetRole(id int64) (*rbacdm.Role, error)
	GetRolesByCodes(codes []string) ([]rbacdm.Role, error)
	CreateRole(role *rbacdm.Role) error
	SaveRole(role *rbacdm.Role) error
	CountRoleUsers(roleID int64) (int64, error)
	DeleteRole(roleID int64) error
	CodeExists(table, code string, excludeID int64) (bool, error)

	ListModules() ([]rbacdm.Module, error)
	GetModuleByCode(code string) (*rbacdm.Module, error)
	CreateModule(m *rbacdm.Module) error
	ListPermissions() ([]rbacdm.Permission, error)
	GetPermissionByCode(code string) (*rbacdm.Permission, error)
	CreatePermission(p *rbacdm.Permission) error

	ListGrants(roleID int64) ([]Grant, error)
	GetGrant(id int64) (*Grant, error)
	FindGrant(roleID, moduleID, permissionID int64) (*rbacdm.RolePermission, error)
	SaveGrant(rp *rbacdm.RolePermission) error

	UserExists(userID int64) (bool, error)
	ReplaceUserRoles(userID int64, roleIDs []int64) error
	ListEffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}

var (
	ErrRoleNotFound       = internal.NewNotFoundError("Role not found", internal.ErrCodeRoleNotFound)
	ErrModuleNotFound     = internal.NewNotFoundError("Module not found", internal.ErrCodeModuleNotFound)
	ErrPermissionNotFound = internal.NewNotFoundError("Permission not found", internal.ErrCodePermissionNotFound)
	ErrUserNotFound       = internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)
	ErrDuplicateCode      = internal.NewConflictError("Code already exists", internal.ErrCodeDuplicateCode)
	ErrRoleInUse          = internal.NewConflictError("Role is still assigned to users", internal.ErrCodeRoleInUse)
	ErrSystemRole         = internal.NewConflictError("Built-in roles cannot be deleted", internal.ErrCodeSystemRole)
)
