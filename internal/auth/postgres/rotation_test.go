package postgres

import (
	"sync"
	"time"

	"github.com/frahmantamala/licensestore/internal/auth"
	rbacdm "github.com/frahmantamala/licensestore/internal/core/datamodel/rbac"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// lockstepRepository makes every caller read the refresh token before any of
// them is allowed to continue.
type lockstepRepository struct {
	*Repository
	readers *sync.WaitGroup
}

func (r *lockstepRepository) GetRefreshToken(id string) (*userdm.RefreshToken, error) {
	t, err := r.Repository.GetRefreshToken(id)
	r.readers.Done()
	r.readers.Wait()
	return t, err
}

var _ = ginkgo.Describe("Refresh token rotation", func() {
	ginkgo.It("lets only one of two concurrent refreshes succeed", func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sqlDB, err := db.DB()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		gomega.Expect(db.AutoMigrate(&userdm.User{}, &userdm.RefreshToken{}, &rbacdm.Role{}, &rbacdm.UserRole{})).To(gomega.Succeed())
		gomega.Expect(db.Create(&rbacdm.Role{Code: auth.RoleCustomer, Name: "Customer", IsActive: true}).Error).To(gomega.Succeed())

		repo := NewRepository(db)
		hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		u := &userdm.User{Email: "race@example.com", FullName: "Race", PasswordHash: string(hash), IsActive: true}
		gomega.Expect(repo.CreateWithRole(u, auth.RoleCustomer)).To(gomega.Succeed())

		tokenGen := auth.NewJWTTokenGenerator("test-access-secret-0123456789abcdef", "test-refresh-secret-0123456789abcdef", 15*time.Minute, time.Hour)
		tokens, err := auth.NewService(repo, tokenGen, bcrypt.MinCost, nil).
			Authenticate(auth.LoginDTO{Email: "race@example.com", Password: "secret-pass"})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		readers := &sync.WaitGroup{}
		readers.Add(2)
		svc := auth.NewService(&lockstepRepository{Repository: repo, readers: readers}, tokenGen, bcrypt.MinCost, nil)

		errs := make([]error, 2)
		var done sync.WaitGroup
		for i := range errs {
			done.Add(1)
			go func(i int) {
				defer ginkgo.GinkgoRecover()
				defer done.Done()
				_, errs[i] = svc.RefreshTokens(tokens.RefreshToken)
			}(i)
		}
		done.Wait()

		failed := 0
		for _, err := range errs {
			if err != nil {
				gomega.Expect(err).To(gomega.MatchError(auth.ErrInvalidToken))
				failed++
			}
		}
		gomega.Expect(failed).To(gomega.Equal(1))
	})
})
