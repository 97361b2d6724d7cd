package validation_test

import (
	"testing"

	errors "github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/core/common/validation"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestValidation(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Validation Suite")
}

var _ = ginkgo.Describe("ValidationBuilder", func() {
	ginkgo.It("collects every failing field", func() {
		v := validation.NewValidator()
		v.Field("email", "not-an-email").Required().Email()
		v.Field("name", "").Required()

		err := v.Validate()
		gomega.Expect(err).ToNot(gomega.BeNil())
		details, ok := err.Details.(errors.ValidationErrors)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(details.Errors).To(gomega.HaveLen(2))
		gomega.Expect(details.Errors[0].Code).To(gomega.Equal(string(errors.ErrCodeInvalidEmail)))
	})

	ginkgo.It("passes valid input", func() {
		v := validation.NewValidator()
		v.Field("email", "buyer@example.com").Required().Email()
		v.Field("priority", "high").OneOf("low", "medium", "high", "urgent")
		gomega.Expect(v.Validate()).To(gomega.BeNil())
	})

	ginkgo.It("rejects values outside the allowed set", func() {
		v := validation.NewValidator()
		v.Field("priority", "critical").OneOf("low", "medium", "high", "urgent")
		err := v.Validate()
		gomega.Expect(err).ToNot(gomega.BeNil())
		gomega.Expect(err.Error()).To(gomega.ContainSubstring("priority must be one of"))
	})

	ginkgo.DescribeTable("quantity bounds",
		func(qty int, valid bool) {
			err := validation.ValidateQuantity(qty)
			if valid {
				gomega.Expect(err).To(gomega.BeNil())
			} else {
				gomega.Expect(err).ToNot(gomega.BeNil())
			}
		},
		ginkgo.Entry("zero", 0, false),
		ginkgo.Entry("one", 1, true),
		ginkgo.Entry("hundred", 100, true),
		ginkgo.Entry("over", 101, false),
	)
})
