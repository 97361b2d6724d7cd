package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/licensestore/internal/auth"
	catalogdm "github.com/frahmantamala/licensestore/internal/core/datamodel/catalog"
	rbacdm "github.com/frahmantamala/licensestore/internal/core/datamodel/rbac"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"github.com/frahmantamala/licensestore/internal/rbac"
)

var (
	seedAdminEmail    string
	seedAdminPassword string
	seedSamples       bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed roles, permissions and the first administrator",
	Long:  `Seed the RBAC catalogue, the default role grants, an administrator account and optional sample products.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gdb, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		seeder := Seeder{DB: gdb, BCryptCost: cfg.Security.BCryptCost}
		if clearData {
			if err := seeder.Clear(); err != nil {
				log.Fatalf("failed to clear rbac data: %v", err)
			}
			fmt.Println("Cleared roles, modules, permissions and grants")
		}
		if err := seeder.SeedRBAC(); err != nil {
			log.Fatalf("failed to seed rbac: %v", err)
		}
		fmt.Println("Seeded roles, modules, permissions and default grants")

		if err := seeder.SeedAdmin(seedAdminEmail, seedAdminPassword); err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}
		fmt.Println("Administrator ready:", seedAdminEmail)

		if seedSamples {
			if err := seeder.SeedSampleCatalog(); err != nil {
				log.Fatalf("failed to seed catalog: %v", err)
			}
			fmt.Println("Sample catalog seeded")
		}
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminEmail, "admin-email", "admin@licensestore.local", "Administrator email")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "password", "Administrator password")
	seedCmd.Flags().BoolVar(&seedSamples, "samples", false, "Also seed sample categories and products")
}

type codeName struct {
	Code string
	Name string
}

var (
	seedRoles = []codeName{
		{auth.RoleAdmin, "Quản trị viên"},
		{auth.RoleStaff, "Nhân viên hỗ trợ"},
		{auth.RoleCustomer, "Khách hàng"},
	}

	seedModules = []codeName{
		{rbac.ModuleDashboard, "Dashboard"},
		{rbac.ModuleCategory, "Danh mục"},
		{rbac.ModuleProduct, "Sản phẩm"},
		{rbac.ModuleOrder, "Đơn hàng"},
		{rbac.ModulePayment, "Thanh toán"},
		{rbac.ModuleUser, "Người dùng"},
		{rbac.ModuleRole, "Phân quyền"},
		{rbac.ModuleTicket, "Ticket hỗ trợ"},
		{rbac.ModuleSupportChat, "Chat hỗ trợ"},
		{rbac.ModuleContent, "Bài viết"},
	}

	seedPermissions = []codeName{
		{rbac.PermissionView, "Xem"},
		{rbac.PermissionCreate, "Thêm"},
		{rbac.PermissionEdit, "Sửa"},
		{rbac.PermissionDelete, "Xóa"},
		{rbac.PermissionExport, "Xuất"},
		{rbac.PermissionAssign, "Phân công"},
	}

	// STAFF works the support desk and can look at orders and the catalogue.
	staffGrants = map[string][]string{
		rbac.ModuleDashboard:   {rbac.PermissionView},
		rbac.ModuleCategory:    {rbac.PermissionView},
		rbac.ModuleProduct:     {rbac.PermissionView},
		rbac.ModuleOrder:       {rbac.PermissionView, rbac.PermissionEdit, rbac.PermissionExport},
		rbac.ModulePayment:     {rbac.PermissionView},
		rbac.ModuleTicket:      {rbac.PermissionView, rbac.PermissionEdit, rbac.PermissionAssign},
		rbac.ModuleSupportChat: {rbac.PermissionView, rbac.PermissionAssign},
	}
)

// Seeder is idempotent: rows that already exist are left alone.
type Seeder struct {
	DB         *gorm.DB
	BCryptCost int
}

func (s Seeder) Clear() error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&rbacdm.RolePermission{}, &rbacdm.UserRole{}, &rbacdm.Role{}, &rbacdm.Module{}, &rbacdm.Permission{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s Seeder) SeedRBAC() error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		roles := make(map[string]int64)
		for _, r := range seedRoles {
			role := rbacdm.Role{Code: r.Code, Name: r.Name, IsActive: true}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
				return fmt.Errorf("role %s: %w", r.Code, err)
			}
			if err := tx.Where("code = ?", r.Code).First(&role).Error; err != nil {
				return err
			}
			roles[r.Code] = role.ID
		}

		modules := make(map[string]int64)
		for _, m := range seedModules {
			module := rbacdm.Module{Code: m.Code, Name: m.Name}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&module).Error; err != nil {
				return fmt.Errorf("module %s: %w", m.Code, err)
			}
			if err := tx.Where("code = ?", m.Code).First(&module).Error; err != nil {
				return err
			}
			modules[m.Code] = module.ID
		}

		perms := make(map[string]int64)
		for _, p := range seedPermissions {
			perm := rbacdm.Permission{Code: p.Code, Name: p.Name}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&perm).Error; err != nil {
				return fmt.Errorf("permission %s: %w", p.Code, err)
			}
			if err := tx.Where("code = ?", p.Code).First(&perm).Error; err != nil {
				return err
			}
			perms[p.Code] = perm.ID
		}

		grant := func(role, module, perm string) error {
			rp := rbacdm.RolePermission{RoleID: roles[role], ModuleID: modules[module], PermissionID: perms[perm], IsActive: true}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rp).Error
		}

		// ADMIN skips role checks but permission checks still read grants
		for _, m := range seedModules {
			for _, p := range seedPermissions {
				if err := grant(auth.RoleAdmin, m.Code, p.Code); err != nil {
					return err
				}
			}
		}
		for module, ps := range staffGrants {
			for _, p := range ps {
				if err := grant(auth.RoleStaff, module, p); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s Seeder) SeedAdmin(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		var u userdm.User
		err := tx.Where("email = ?", email).First(&u).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			u = userdm.User{Email: email, FullName: "Administrator", PasswordHash: string(hash), IsActive: true}
			if err := tx.Create(&u).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		var role rbacdm.Role
		if err := tx.Where("code = ?", auth.RoleAdmin).First(&role).Error; err != nil {
			return fmt.Errorf("admin role missing, seed rbac first: %w", err)
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rbacdm.UserRole{UserID: u.ID, RoleID: role.ID}).Error
	})
}

func (s Seeder) SeedSampleCatalog() error {
	samples := []struct {
		Category catalogdm.Category
		Product  catalogdm.Product
		Variants []catalogdm.ProductVariant
	}{
		{
			Category: catalogdm.Category{Name: "Hệ điều hành", Slug: "he-dieu-hanh", IsActive: true},
			Product:  catalogdm.Product{Name: "Windows 11 Pro", Slug: "windows-11-pro", ShortDescription: "Key bản quyền vĩnh viễn", IsActive: true},
			Variants: []catalogdm.ProductVariant{
				{Name: "1 PC", SKU: "WIN11PRO-1PC", Price: 390000, IsActive: true},
			},
		},
		{
			Category: catalogdm.Category{Name: "Văn phòng", Slug: "van-phong", SortOrder: 1, IsActive: true},
			Product:  catalogdm.Product{Name: "Microsoft 365 Family", Slug: "microsoft-365-family", ShortDescription: "6 tài khoản, 1TB OneDrive", IsActive: true},
			Variants: []catalogdm.ProductVariant{
				{Name: "12 tháng", SKU: "M365FAM-12M", Price: 990000, DurationDays: 365, IsActive: true},
				{Name: "1 tháng", SKU: "M365FAM-1M", Price: 120000, DurationDays: 30, IsActive: true},
			},
		},
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		for _, sample := range samples {
			category := sample.Category
			if err := tx.Where(catalogdm.Category{Slug: category.Slug}).FirstOrCreate(&category).Error; err != nil {
				return err
			}
			product := sample.Product
			product.CategoryID = category.ID
			if err := tx.Where(catalogdm.Product{Slug: product.Slug}).FirstOrCreate(&product).Error; err != nil {
				return err
			}
			for _, v := range sample.Variants {
				variant := v
				variant.ProductID = product.ID
				if err := tx.Where(catalogdm.ProductVariant{SKU: variant.SKU}).FirstOrCreate(&variant).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s Seeder) cost() int {
	if s.BCryptCost == 0 {
		return bcrypt.DefaultCost
	}
	return s.BCryptCost
}
