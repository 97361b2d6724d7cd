package rbac

import (
	"errors"
	"fmt"
	"strings"
)

const (
	PermissionPolicyPrefix = "RequirePermission:"
	RolePolicyPrefix       = "RequireRole:"
)

var ErrMalformedPolicy = errors.New("malformed policy name")

// Requirement is what a named policy resolves to.
type Requirement interface {
	PolicyName() string
}

type PermissionRequirement struct {
	Module     string
	Permission string
}

func (p PermissionRequirement) PolicyName() string {
	return PermissionPolicyPrefix + p.Module + ":" + p.Permission
}

type RoleRequirement struct {
	Roles []string
}

func (r RoleRequirement) PolicyName() string {
	return RolePolicyPrefix + strings.Join(r.Roles, ",")
}

// PermissionPolicy builds the canonical policy name for a module/permission pair.
func PermissionPolicy(module, permission string) string {
	return PermissionPolicyPrefix + module + ":" + permission
}

// ParsePolicy turns "RequirePermission:{MODULE}:{PERMISSION}" into a requirement.
// Codes are upper-cased; both parts must be present and non-empty.
func ParsePolicy(name string) (PermissionRequirement, error) {
	if !strings.HasPrefix(name, PermissionPolicyPrefix) {
		return PermissionRequirement{}, fmt.Errorf("%w: %q", ErrMalformedPolicy, name)
	}
	parts := strings.Split(strings.TrimPrefix(name, PermissionPolicyPrefix), ":")
	if len(parts) != 2 {
		return PermissionRequirement{}, fmt.Errorf("%w: %q", ErrMalformedPolicy, name)
	}
	module := strings.ToUpper(strings.TrimSpace(parts[0]))
	permission := strings.ToUpper(strings.TrimSpace(parts[1]))
	if module == "" || permission == "" {
		return PermissionRequirement{}, fmt.Errorf("%w: %q", ErrMalformedPolicy, name)
	}
	return PermissionRequirement{Module: module, Permission: permission}, nil
}

// PolicyProvider resolves policy names on demand instead of registering every
// module/permission combination up front.
type PolicyProvider struct{}

func (PolicyProvider) GetPolicy(name string) (Requirement, error) {
	switch {
	case strings.HasPrefix(name, PermissionPolicyPrefix):
		return ParsePolicy(name)
	case strings.HasPrefix(name, RolePolicyPrefix):
		var roles []string
		for _, role := range strings.Split(strings.TrimPrefix(name, RolePolicyPrefix), ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedPolicy, name)
		}
		return RoleRequirement{Roles: roles}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrMalformedPolicy, name)
	}
}
