package postgres

import (
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/licensestore/internal/core/datamodel/payment"
	payos "github.com/frahmantamala/licensestore/internal/core/datamodel/paymentgateway"
	paymentpkg "github.com/frahmantamala/licensestore/internal/payment"
)

func TestPaymentRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Payment Repository Suite")
}

var _ = ginkgo.Describe("PaymentRepository", func() {
	var (
		db   *gorm.DB
		repo paymentpkg.RepositoryAPI
	)

	ginkgo.BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sqlDB, err := db.DB()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		gomega.Expect(db.AutoMigrate(&payment.Payment{})).To(gomega.Succeed())
		repo = NewPaymentRepository(db)
	})

	newPayment := func(orderID, orderCode int64) *payment.Payment {
		p := &payment.Payment{
			OrderID:   orderID,
			OrderCode: orderCode,
			Provider:  payment.ProviderPayOS,
			Amount:    150000,
			Status:    payment.StatusPending,
		}
		gomega.Expect(repo.Create(p)).To(gomega.Succeed())
		return p
	}

	ginkgo.It("returns nil for unknown order codes", func() {
		p, err := repo.GetByOrderCode(42)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(p).To(gomega.BeNil())
	})

	ginkgo.It("enforces one payment per order code", func() {
		newPayment(1, 1001)
		dup := &payment.Payment{OrderID: 2, OrderCode: 1001, Provider: payment.ProviderPayOS, Amount: 1, Status: payment.StatusPending}
		gomega.Expect(repo.Create(dup)).ToNot(gomega.Succeed())
	})

	ginkgo.It("stores the link returned by PayOS", func() {
		p := newPayment(1, 1001)
		gomega.Expect(repo.SaveLink(p.ID, &payos.PaymentLink{PaymentLinkID: "abc", CheckoutURL: "https://pay.payos.vn/web/abc", QRCode: "0002"})).To(gomega.Succeed())

		stored, err := repo.GetByOrderID(1)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(stored.PaymentLinkID).To(gomega.Equal("abc"))
		gomega.Expect(stored.CheckoutURL).To(gomega.Equal("https://pay.payos.vn/web/abc"))
	})

	ginkgo.It("marks a payment paid exactly once", func() {
		p := newPayment(1, 1001)
		paidAt := time.Now()

		changed, err := repo.MarkPaid(p.ID, "FT1", `{"code":"00"}`, paidAt)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(changed).To(gomega.BeTrue())

		changed, err = repo.MarkPaid(p.ID, "FT2", `{}`, paidAt)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(changed).To(gomega.BeFalse())

		stored, _ := repo.GetByID(p.ID)
		gomega.Expect(stored.Status).To(gomega.Equal(payment.StatusPaid))
		gomega.Expect(stored.Reference).To(gomega.Equal("FT1"))
		gomega.Expect(stored.PaidAt).ToNot(gomega.BeNil())
	})

	ginkgo.It("does not move a settled payment to another status", func() {
		p := newPayment(1, 1001)
		_, err := repo.MarkPaid(p.ID, "FT1", "", time.Now())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		reason := "late cancel"
		changed, err := repo.MarkStatus(p.ID, payment.StatusCancelled, &reason, "")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(changed).To(gomega.BeFalse())
	})

	ginkgo.It("filters and pages the admin list", func() {
		newPayment(1, 1001)
		second := newPayment(2, 1002)
		newPayment(3, 1003)
		reason := "amount mismatch"
		_, err := repo.MarkStatus(second.ID, payment.StatusFailed, &reason, "")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		rows, total, err := repo.List(paymentpkg.ListFilter{Status: payment.StatusPending, Limit: 1})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(total).To(gomega.Equal(int64(2)))
		gomega.Expect(rows).To(gomega.HaveLen(1))

		rows, total, err = repo.List(paymentpkg.ListFilter{OrderCode: 1002})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(total).To(gomega.Equal(int64(1)))
		gomega.Expect(rows[0].Status).To(gomega.Equal(payment.StatusFailed))
	})

	ginkgo.It("lists only pending payments older than the cutoff", func() {
		old := newPayment(1, 1001)
		newPayment(2, 1002)
		gomega.Expect(db.Model(&payment.Payment{}).Where("id = ?", old.ID).
			UpdateColumn("created_at", time.Now().Add(-time.Hour)).Error).To(gomega.Succeed())

		rows, err := repo.ListPendingBefore(time.Now().Add(-10*time.Minute), 10)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(rows).To(gomega.HaveLen(1))
		gomega.Expect(rows[0].OrderCode).To(gomega.Equal(int64(1001)))
	})
})
