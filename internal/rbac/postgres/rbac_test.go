package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/frahmantamala/licensestore/internal"
	rbacdm "github.com/frahmantamala/licensestore/internal/core/datamodel/rbac"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"github.com/frahmantamala/licensestore/internal/rbac"
	"github.com/jmoiron/sqlx"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRBACRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "RBAC Repository Suite")
}

var _ = ginkgo.Describe("RBAC persistence", func() {
	var (
		db      *gorm.DB
		repo    *Repository
		checker *PermissionChecker
		svc     *rbac.Service
		ctx     context.Context
		buyer   *userdm.User
		staff   *userdm.User
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sqlDB, err := db.DB()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		gomega.Expect(db.AutoMigrate(
			&userdm.User{},
			&rbacdm.Role{},
			&rbacdm.UserRole{},
			&rbacdm.Module{},
			&rbacdm.Permission{},
			&rbacdm.RolePermission{},
		)).To(gomega.Succeed())

		repo = NewRepository(db)
		checker = NewPermissionChecker(sqlx.NewDb(sqlDB, "sqlite3"))
		svc = rbac.NewService(repo, nil)

		buyer = &userdm.User{Email: "buyer@example.com", FullName: "Buyer", PasswordHash: "x", IsActive: true}
		staff = &userdm.User{Email: "staff@example.com", FullName: "Staff", PasswordHash: "x", IsActive: true}
		gomega.Expect(db.Create(buyer).Error).To(gomega.Succeed())
		gomega.Expect(db.Create(staff).Error).To(gomega.Succeed())

		for _, code := range []string{"CUSTOMER", "STAFF", "SUPPORT"} {
			_, err := svc.CreateRole(rbac.RoleDTO{Code: code, Name: code})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		}
		_, err = svc.CreateModule(rbac.CodeDTO{Code: "ORDER", Name: "Orders"})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		_, err = svc.CreateModule(rbac.CodeDTO{Code: "TICKET", Name: "Tickets"})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		_, err = svc.CreatePermission(rbac.CodeDTO{Code: "VIEW", Name: "View"})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		_, err = svc.CreatePermission(rbac.CodeDTO{Code: "EDIT", Name: "Edit"})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		_, err = svc.AssignUserRoles(staff.ID, rbac.AssignRolesDTO{Roles: []string{"staff", "support"}})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		_, err = svc.AssignUserRoles(buyer.ID, rbac.AssignRolesDTO{Roles: []string{"CUSTOMER"}})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
	})

	roleID := func(code string) int64 {
		var role rbacdm.Role
		gomega.Expect(db.Where("code = ?", code).First(&role).Error).To(gomega.Succeed())
		return role.ID
	}

	ginkgo.Describe("PermissionChecker", func() {
		ginkgo.BeforeEach(func() {
			_, err := svc.UpsertGrant(roleID("STAFF"), rbac.GrantDTO{ModuleCode: "order", PermissionCode: "view"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
		})

		ginkgo.It("allows a user whose role holds the grant", func() {
			ok, err := checker.HasPermission(ctx, staff.ID, "ORDER", "VIEW")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())
		})

		ginkgo.It("denies by default", func() {
			ok, err := checker.HasPermission(ctx, buyer.ID, "ORDER", "VIEW")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())

			ok, err = checker.HasPermission(ctx, 9999, "ORDER", "VIEW")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("combines roles with OR", func() {
			_, err := svc.UpsertGrant(roleID("SUPPORT"), rbac.GrantDTO{ModuleCode: "TICKET", PermissionCode: "EDIT"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			ok, err := checker.HasPermission(ctx, staff.ID, "TICKET", "EDIT")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeTrue())
		})

		ginkgo.It("ignores inactive grants", func() {
			grants, err := svc.ListGrants(roleID("STAFF"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(grants).To(gomega.HaveLen(1))

			toggled, err := svc.ToggleGrant(roleID("STAFF"), grants[0].ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(toggled.IsActive).To(gomega.BeFalse())

			ok, err := checker.HasPermission(ctx, staff.ID, "ORDER", "VIEW")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("ignores inactive roles immediately", func() {
			_, err := svc.ToggleRole(roleID("STAFF"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			ok, err := checker.HasPermission(ctx, staff.ID, "ORDER", "VIEW")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("ignores inactive users", func() {
			gomega.Expect(db.Model(&userdm.User{}).Where("id = ?", staff.ID).Update("is_active", false).Error).To(gomega.Succeed())

			ok, err := checker.HasPermission(ctx, staff.ID, "ORDER", "VIEW")
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(ok).To(gomega.BeFalse())
		})

		ginkgo.It("lists effective permissions", func() {
			perms, err := svc.EffectivePermissions(ctx, staff.ID)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(perms).To(gomega.Equal([]string{"ORDER:VIEW"}))
		})
	})

	ginkgo.Describe("Service", func() {
		ginkgo.It("upserts instead of duplicating grants", func() {
			inactive := false
			_, err := svc.UpsertGrant(roleID("STAFF"), rbac.GrantDTO{ModuleCode: "ORDER", PermissionCode: "EDIT"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			grant, err := svc.UpsertGrant(roleID("STAFF"), rbac.GrantDTO{ModuleCode: "ORDER", PermissionCode: "EDIT", IsActive: &inactive})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(grant.IsActive).To(gomega.BeFalse())

			grants, err := svc.ListGrants(roleID("STAFF"))
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(grants).To(gomega.HaveLen(1))
		})

		ginkgo.It("rejects unknown modules", func() {
			_, err := svc.UpsertGrant(roleID("STAFF"), rbac.GrantDTO{ModuleCode: "NOPE", PermissionCode: "VIEW"})
			gomega.Expect(errors.Is(err, rbac.ErrModuleNotFound)).To(gomega.BeTrue())
		})

		ginkgo.It("rejects duplicate role codes", func() {
			_, err := svc.CreateRole(rbac.RoleDTO{Code: "staff", Name: "Again"})
			appErr, ok := internal.IsAppError(err)
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeDuplicateCode))
		})

		ginkgo.It("replaces the user's role set", func() {
			roles, err := svc.AssignUserRoles(staff.ID, rbac.AssignRolesDTO{Roles: []string{"CUSTOMER"}})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(roles).To(gomega.Equal([]string{"CUSTOMER"}))

			var count int64
			gomega.Expect(db.Model(&rbacdm.UserRole{}).Where("user_id = ?", staff.ID).Count(&count).Error).To(gomega.Succeed())
			gomega.Expect(count).To(gomega.Equal(int64(1)))
		})

		ginkgo.It("deletes a custom role with its grants once it has no members", func() {
			supportID := roleID("SUPPORT")
			_, err := svc.UpsertGrant(supportID, rbac.GrantDTO{ModuleCode: "TICKET", PermissionCode: "EDIT"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			gomega.Expect(errors.Is(svc.DeleteRole(supportID), rbac.ErrRoleInUse)).To(gomega.BeTrue())

			_, err = svc.AssignUserRoles(staff.ID, rbac.AssignRolesDTO{Roles: []string{"STAFF"}})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(svc.DeleteRole(supportID)).To(gomega.Succeed())

			var grants int64
			gomega.Expect(db.Model(&rbacdm.RolePermission{}).Where("role_id = ?", supportID).Count(&grants).Error).To(gomega.Succeed())
			gomega.Expect(grants).To(gomega.BeZero())

			_, err = svc.GetRole(supportID)
			gomega.Expect(errors.Is(err, rbac.ErrRoleNotFound)).To(gomega.BeTrue())
		})

		ginkgo.It("refuses to delete built-in roles", func() {
			gomega.Expect(errors.Is(svc.DeleteRole(roleID("CUSTOMER")), rbac.ErrSystemRole)).To(gomega.BeTrue())
			gomega.Expect(errors.Is(svc.DeleteRole(9999), rbac.ErrRoleNotFound)).To(gomega.BeTrue())
		})

		ginkgo.It("fails role assignment when any code is unknown", func() {
			_, err := svc.AssignUserRoles(staff.ID, rbac.AssignRolesDTO{Roles: []string{"CUSTOMER", "GHOST"}})
			gomega.Expect(errors.Is(err, rbac.ErrRoleNotFound)).To(gomega.BeTrue())
		})
	})
})
