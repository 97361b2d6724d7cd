package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/auth"
	rbacdm "github.com/frahmantamala/licensestore/internal/core/datamodel/rbac"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListRoles() ([]RoleResponse, error) {
	roles, err := s.repo.ListRoles()
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	out := make([]RoleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, *toRoleResponse(&roles[i]))
	}
	return out, nil
}

func (s *Service) GetRole(id int64) (*RoleResponse, error) {
	role, err := s.getRole(id)
	if err != nil {
		return nil, err
	}
	return toRoleResponse(role), nil
}

func (s *Service) CreateRole(dto RoleDTO) (*RoleResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode("roles", dto.Code, 0); err != nil {
		return nil, err
	}

	role := &rbacdm.Role{Code: dto.Code, Name: dto.Name, Description: dto.Description, IsActive: true}
	if err := s.repo.CreateRole(role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.logger.Info("role created", "role_id", role.ID, "code", role.Code)
	return toRoleResponse(role), nil
}

func (s *Service) UpdateRole(id int64, dto RoleDTO) (*RoleResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	role, err := s.getRole(id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode("roles", dto.Code, id); err != nil {
		return nil, err
	}

	role.Code = dto.Code
	role.Name = dto.Name
	role.Description = dto.Description
	if err := s.repo.SaveRole(role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return toRoleResponse(role), nil
}

// ToggleRole flips the active flag. Deactivated roles stop granting permissions
// on the next request and are dropped from tokens at the next login or refresh.
func (s *Service) ToggleRole(id int64) (*RoleResponse, error) {
	role, err := s.getRole(id)
	if err != nil {
		return nil, err
	}
	role.IsActive = !role.IsActive
	if err := s.repo.SaveRole(role); err != nil {
		return nil, fmt.Errorf("toggle role: %w", err)
	}

	s.logger.Info("role toggled", "role_id", role.ID, "is_active", role.IsActive)
	return toRoleResponse(role), nil
}

// DeleteRole removes a custom role together with its grants. Built-in roles and
// roles that still have members are kept.
func (s *Service) DeleteRole(id int64) error {
	role, err := s.getRole(id)
	if err != nil {
		return err
	}
	switch role.Code {
	case auth.RoleAdmin, auth.RoleStaff, auth.RoleCustomer:
		return ErrSystemRole
	}

	members, err := s.repo.CountRoleUsers(id)
	if err != nil {
		return fmt.Errorf("count role users: %w", err)
	}
	if members > 0 {
		return ErrRoleInUse
	}

	if err := s.repo.DeleteRole(id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}

	s.logger.Info("role deleted", "role_id", id, "code", role.Code)
	return nil
}

func (s *Service) ListModules() ([]CodeResponse, error) {
	modules, err := s.repo.ListModules()
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	out := make([]CodeResponse, 0, len(modules))
	for _, m := range modules {
		out = append(out, CodeResponse{ID: m.ID, Code: m.Code, Name: m.Name, Description: m.Description})
	}
	return out, nil
}

func (s *Service) CreateModule(dto CodeDTO) (*CodeResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode("modules", dto.Code, 0); err != nil {
		return nil, err
	}
	m := &rbacdm.Module{Code: dto.Code, Name: dto.Name, Description: dto.Description}
	if err := s.repo.CreateModule(m); err != nil {
		return nil, fmt.Errorf("create module: %w", err)
	}
	return &CodeResponse{ID: m.ID, Code: m.Code, Name: m.Name, Description: m.Description}, nil
}

func (s *Service) ListPermissions() ([]CodeResponse, error) {
	perms, err := s.repo.ListPermissions()
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	out := make([]CodeResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, CodeResponse{ID: p.ID, Code: p.Code, Name: p.Name, Description: p.Description})
	}
	return out, nil
}

func (s *Service) CreatePermission(dto CodeDTO) (*CodeResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueCode("permissions", dto.Code, 0); err != nil {
		return nil, err
	}
	p := &rbacdm.Permission{Code: dto.Code, Name: dto.Name, Description: dto.Description}
	if err := s.repo.CreatePermission(p); err != nil {
		return nil, fmt.Errorf("create permission: %w", err)
	}
	return &CodeResponse{ID: p.ID, Code: p.Code, Name: p.Name, Description: p.Description}, nil
}

func (s *Service) ListGrants(roleID int64) ([]Grant, error) {
	if _, err := s.getRole(roleID); err != nil {
		return nil, err
	}
	grants, err := s.repo.ListGrants(roleID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	if grants == nil {
		grants = []Grant{}
	}
	return grants, nil
}

// UpsertGrant creates the role/module/permission triple or updates its active
// flag. A missing is_active means active.
func (s *Service) UpsertGrant(roleID int64, dto GrantDTO) (*Grant, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.getRole(roleID); err != nil {
		return nil, err
	}

	module, err := s.repo.GetModuleByCode(dto.ModuleCode)
	if err != nil {
		return nil, fmt.Errorf("load module: %w", err)
	}
	if module == nil {
		return nil, ErrModuleNotFound
	}
	perm, err := s.repo.GetPermissionByCode(dto.PermissionCode)
	if err != nil {
		return nil, fmt.Errorf("load permission: %w", err)
	}
	if perm == nil {
		return nil, ErrPermissionNotFound
	}

	active := true
	if dto.IsActive != nil {
		active = *dto.IsActive
	}

	rp, err := s.repo.FindGrant(roleID, module.ID, perm.ID)
	if err != nil {
		return nil, fmt.Errorf("load grant: %w", err)
	}
	if rp == nil {
		rp = &rbacdm.RolePermission{RoleID: roleID, ModuleID: module.ID, PermissionID: perm.ID}
	}
	rp.IsActive = active
	if err := s.repo.SaveGrant(rp); err != nil {
		return nil, fmt.Errorf("save grant: %w", err)
	}

	s.logger.Info("grant saved",
		"role_id", roleID,
		"module", module.Code,
		"permission", perm.Code,
		"is_active", active)

	return &Grant{
		ID:             rp.ID,
		RoleID:         roleID,
		ModuleID:       module.ID,
		ModuleCode:     module.Code,
		PermissionID:   perm.ID,
		PermissionCode: perm.Code,
		IsActive:       rp.IsActive,
	}, nil
}

func (s *Service) ToggleGrant(roleID, grantID int64) (*Grant, error) {
	grant, err := s.repo.GetGrant(grantID)
	if err != nil {
		return nil, fmt.Errorf("load grant: %w", err)
	}
	if grant == nil || grant.RoleID != roleID {
		return nil, ErrPermissionNotFound
	}

	grant.IsActive = !grant.IsActive
	if err := s.repo.SaveGrant(&rbacdm.RolePermission{
		ID:           grant.ID,
		RoleID:       grant.RoleID,
		ModuleID:     grant.ModuleID,
		PermissionID: grant.PermissionID,
		IsActive:     grant.IsActive,
	}); err != nil {
		return nil, fmt.Errorf("toggle grant: %w", err)
	}
	return grant, nil
}

// AssignUserRoles replaces the user's role set. Unknown codes fail the whole call.
func (s *Service) AssignUserRoles(userID int64, dto AssignRolesDTO) ([]string, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.repo.UserExists(userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	roles, err := s.repo.GetRolesByCodes(dto.Roles)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	if len(roles) != len(dto.Roles) {
		return nil, ErrRoleNotFound
	}

	ids := make([]int64, 0, len(roles))
	codes := make([]string, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
		codes = append(codes, r.Code)
	}
	if err := s.repo.ReplaceUserRoles(userID, ids); err != nil {
		return nil, fmt.Errorf("assign roles: %w", err)
	}

	s.logger.Info("user roles replaced", "user_id", userID, "roles", codes)
	return codes, nil
}

// EffectivePermissions lists "MODULE:PERMISSION" pairs the user currently holds.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	perms, err := s.repo.ListEffectivePermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list effective permissions: %w", err)
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, nil
}

func (s *Service) getRole(id int64) (*rbacdm.Role, error) {
	role, err := s.repo.GetRole(id)
	if err != nil {
		return nil, fmt.Errorf("load role: %w", err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}

func (s *Service) ensureUniqueCode(table, code string, excludeID int64) error {
	exists, err := s.repo.CodeExists(table, code, excludeID)
	if err != nil {
		return fmt.Errorf("check code: %w", err)
	}
	if exists {
		return ErrDuplicateCode.WithDetails(internal.ValidationErrors{Errors: []internal.ValidationError{
			{Field: "code", Message: fmt.Sprintf("code %s already exists", code), Code: string(internal.ErrCodeDuplicateCode)},
		}})
	}
	return nil
}
