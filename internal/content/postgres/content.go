package postgres

import (
	"errors"

	"github.com/frahmantamala/licensestore/internal/content"
	contentdm "github.com/frahmantamala/licensestore/internal/core/datamodel/content"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(p *contentdm.Post) error {
	return r.db.Create(p).Error
}

func (r *Repository) Update(p *contentdm.Post) error {
	return r.db.Save(p).Error
}

func (r *Repository) Delete(id int64) error {
	return r.db.Delete(&contentdm.Post{}, id).Error
}

func (r *Repository) GetByID(id int64) (*contentdm.Post, error) {
	return r.first(r.db.Where("id = ?", id))
}

func (r *Repository) GetBySlug(slug string, publishedOnly bool) (*contentdm.Post, error) {
	q := r.db.Where("slug = ?", slug)
	if publishedOnly {
		q = q.Where("is_published = ?", true)
	}
	return r.first(q)
}

func (r *Repository) first(q *gorm.DB) (*contentdm.Post, error) {
	var p contentdm.Post
	err := q.First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) SlugExists(slug string, excludeID int64) (bool, error) {
	q := r.db.Model(&contentdm.Post{}).Where("slug = ?", slug)
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *Repository) List(filter content.ListFilter) ([]contentdm.Post, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Type != "" {
			q = q.Where("type = ?", filter.Type)
		}
		if filter.PublishedOnly {
			q = q.Where("is_published = ?", true)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(title) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		return q
	}

	var total int64
	if err := r.db.Model(&contentdm.Post{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at DESC, id DESC"
	if filter.PublishedOnly {
		order = "published_at DESC, id DESC"
	}
	var rows []contentdm.Post
	q := r.db.Scopes(scope).Order(order)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
