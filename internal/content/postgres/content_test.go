package postgres

import (
	"io"
	"log/slog"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/licensestore/internal/content"
	contentdm "github.com/frahmantamala/licensestore/internal/core/datamodel/content"
)

func TestContentRepository(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Content Repository Suite")
}

var _ = ginkgo.Describe("Content", func() {
	var svc *content.Service

	ginkgo.BeforeEach(func() {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(db.AutoMigrate(&contentdm.Post{})).To(gomega.Succeed())
		svc = content.NewService(NewRepository(db), slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	create := func(title string, published bool) *content.Post {
		p, err := svc.Create(1, content.PostDTO{Title: title, Body: "<p>body</p>", IsPublished: published})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return p
	}

	ginkgo.It("folds Vietnamese titles into unique slugs", func() {
		a := create("Hướng dẫn kích hoạt Windows", false)
		b := create("Hướng dẫn kích hoạt Windows", false)

		gomega.Expect(a.Slug).To(gomega.Equal("huong-dan-kich-hoat-windows"))
		gomega.Expect(b.Slug).To(gomega.Equal("huong-dan-kich-hoat-windows-2"))
		gomega.Expect(a.Type).To(gomega.Equal(contentdm.TypePost))
	})

	ginkgo.It("keeps the slug when only the body changes", func() {
		p := create("Chính sách bảo hành", true)
		updated, err := svc.Update(p.ID, content.PostDTO{Type: "page", Title: "Chính sách bảo hành", Body: "new", IsPublished: true})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(updated.Slug).To(gomega.Equal(p.Slug))
		gomega.Expect(updated.Type).To(gomega.Equal(contentdm.TypePage))
	})

	ginkgo.It("only serves published posts publicly", func() {
		draft := create("Draft", false)
		_, err := svc.GetPublished(draft.Slug)
		gomega.Expect(err).To(gomega.MatchError(content.ErrNotFound))

		toggled, err := svc.TogglePublish(draft.ID)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(toggled.IsPublished).To(gomega.BeTrue())
		gomega.Expect(toggled.PublishedAt).ToNot(gomega.BeNil())

		got, err := svc.GetPublished(draft.Slug)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(got.Body).To(gomega.Equal("<p>body</p>"))

		items, total, err := svc.ListPublished(content.ListFilter{Limit: 10})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(total).To(gomega.Equal(int64(1)))
		gomega.Expect(items[0].Body).To(gomega.BeEmpty())
	})

	ginkgo.It("frees the slug on delete", func() {
		p := create("Khuyến mãi", true)
		gomega.Expect(svc.Delete(p.ID)).To(gomega.Succeed())
		gomega.Expect(svc.Delete(p.ID)).To(gomega.MatchError(content.ErrNotFound))

		again := create("Khuyến mãi", true)
		gomega.Expect(again.Slug).To(gomega.Equal(p.Slug))
	})

	ginkgo.It("rejects an unknown type", func() {
		_, err := svc.Create(1, content.PostDTO{Title: "x", Type: "video"})
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})
