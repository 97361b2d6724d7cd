package postgres

import (
	"testing"
	"time"

	rbacdm "github.com/frahmantamala/licensestore/internal/core/datamodel/rbac"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAuthRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Repository Suite")
}

var _ = ginkgo.Describe("Repository", func() {
	var (
		db   *gorm.DB
		repo *Repository
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sqlDB, err := db.DB()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		gomega.Expect(db.AutoMigrate(&userdm.User{}, &userdm.RefreshToken{}, &rbacdm.Role{}, &rbacdm.UserRole{})).To(gomega.Succeed())
		gomega.Expect(db.Create(&rbacdm.Role{Code: "CUSTOMER", Name: "Customer", IsActive: true}).Error).To(gomega.Succeed())
		gomega.Expect(db.Create(&rbacdm.Role{Code: "STAFF", Name: "Staff", IsActive: false}).Error).To(gomega.Succeed())

		repo = NewRepository(db)
	})

	ginkgo.It("creates a user with its role and lists only active roles", func() {
		u := &userdm.User{Email: "a@example.com", FullName: "A", PasswordHash: "h", IsActive: true}
		gomega.Expect(repo.CreateWithRole(u, "CUSTOMER")).To(gomega.Succeed())
		gomega.Expect(u.ID).To(gomega.BeNumerically(">", 0))

		var staff rbacdm.Role
		gomega.Expect(db.Where("code = ?", "STAFF").First(&staff).Error).To(gomega.Succeed())
		gomega.Expect(db.Create(&rbacdm.UserRole{UserID: u.ID, RoleID: staff.ID}).Error).To(gomega.Succeed())

		got, err := repo.GetActiveUser(u.ID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(got.Roles).To(gomega.Equal([]string{"CUSTOMER"}))
	})

	ginkgo.It("fails the whole registration when the role is missing", func() {
		u := &userdm.User{Email: "b@example.com", FullName: "B", PasswordHash: "h", IsActive: true}
		gomega.Expect(repo.CreateWithRole(u, "NOPE")).ToNot(gomega.Succeed())

		exists, err := repo.EmailExists("b@example.com")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(exists).To(gomega.BeFalse())
	})

	ginkgo.It("hides inactive users", func() {
		u := &userdm.User{Email: "c@example.com", FullName: "C", PasswordHash: "h", IsActive: false}
		gomega.Expect(db.Create(u).Error).To(gomega.Succeed())

		got, err := repo.GetActiveUser(u.ID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(got).To(gomega.BeNil())

		creds, err := repo.GetCredentialsByEmail("c@example.com")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(creds.IsActive).To(gomega.BeFalse())
	})

	ginkgo.It("revokes refresh tokens", func() {
		gomega.Expect(repo.SaveRefreshToken(&userdm.RefreshToken{ID: "jti-1", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)})).To(gomega.Succeed())
		revoked, err := repo.RevokeRefreshToken("jti-1")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(revoked).To(gomega.BeTrue())

		revoked, err = repo.RevokeRefreshToken("jti-1")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(revoked).To(gomega.BeFalse())

		tok, err := repo.GetRefreshToken("jti-1")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(tok.RevokedAt).ToNot(gomega.BeNil())

		missing, err := repo.GetRefreshToken("jti-2")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(missing).To(gomega.BeNil())
	})
})
