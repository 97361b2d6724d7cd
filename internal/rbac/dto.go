package rbac

import (
	"regexp"
	"strings"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/core/common/validation"
	rbacdm "github.com/frahmantamala/licensestore/internal/core/datamodel/rbac"
)

var codePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

func codeFormat(field string) func(interface{}) *internal.AppError {
	return func(value interface{}) *internal.AppError {
		if v, ok := value.(string); ok && v != "" && !codePattern.MatchString(v) {
			return internal.NewValidationFieldError(field, field+" must contain only A-Z, 0-9 and _", internal.ErrCodeInvalidValue)
		}
		return nil
	}
}

type RoleDTO struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (d *RoleDTO) Validate() *internal.AppError {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	d.Name = strings.TrimSpace(d.Name)
	v := validation.NewValidator()
	v.Field("code", d.Code).Required().MaxLength(50).Custom(codeFormat("code"))
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("description", d.Description).MaxLength(500)
	return v.Validate()
}

// CodeDTO creates modules and permissions.
type CodeDTO struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (d *CodeDTO) Validate() *internal.AppError {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	d.Name = strings.TrimSpace(d.Name)
	v := validation.NewValidator()
	v.Field("code", d.Code).Required().MaxLength(50).Custom(codeFormat("code"))
	v.Field("name", d.Name).Required().MaxLength(100)
	return v.Validate()
}

type GrantDTO struct {
	ModuleCode     string `json:"module_code"`
	PermissionCode string `json:"permission_code"`
	IsActive       *bool  `json:"is_active"`
}

func (d *GrantDTO) Validate() *internal.AppError {
	d.ModuleCode = strings.ToUpper(strings.TrimSpace(d.ModuleCode))
	d.PermissionCode = strings.ToUpper(strings.TrimSpace(d.PermissionCode))
	v := validation.NewValidator()
	v.Field("module_code", d.ModuleCode).Required()
	v.Field("permission_code", d.PermissionCode).Required()
	return v.Validate()
}

type AssignRolesDTO struct {
	Roles []string `json:"roles"`
}

func (d *AssignRolesDTO) Validate() *internal.AppError {
	seen := make(map[string]bool, len(d.Roles))
	var roles []string
	for _, r := range d.Roles {
		r = strings.ToUpper(strings.TrimSpace(r))
		if r != "" && !seen[r] {
			seen[r] = true
			roles = append(roles, r)
		}
	}
	d.Roles = roles
	v := validation.NewValidator()
	v.Field("roles", d.Roles).Required()
	return v.Validate()
}

type RoleResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

func toRoleResponse(r *rbacdm.Role) *RoleResponse {
	return &RoleResponse{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		IsActive:    r.IsActive,
	}
}

type CodeResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
