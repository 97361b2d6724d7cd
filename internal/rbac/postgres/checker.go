package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// The caller must be active and hold at least one active role with an active
// grant on the module/permission pair.
const hasPermissionQuery = `
SELECT EXISTS (
	SELECT 1
	FROM users u
	JOIN user_roles ur ON ur.user_id = u.id
	JOIN roles r ON r.id = ur.role_id AND r.is_active = TRUE
	JOIN role_permissions rp ON rp.role_id = r.id AND rp.is_active = TRUE
	JOIN modules m ON m.id = rp.module_id
	JOIN permissions p ON p.id = rp.permission_id
	WHERE u.id = ? AND u.is_active = TRUE AND m.code = ? AND p.code = ?
)`

// PermissionChecker runs the grant lookup with sqlx on every call; there is no cache.
type PermissionChecker struct {
	db *sqlx.DB
}

func NewPermissionChecker(db *sqlx.DB) *PermissionChecker {
	return &PermissionChecker{db: db}
}

func (c *PermissionChecker) HasPermission(ctx context.Context, userID int64, module, permission string) (bool, error) {
	var allowed bool
	if err := c.db.GetContext(ctx, &allowed, c.db.Rebind(hasPermissionQuery), userID, module, permission); err != nil {
		return false, err
	}
	return allowed, nil
}
