package postgres

import (
	"errors"
	"strings"

	"github.com/frahmantamala/licensestore/internal/catalog"
	catalogdm "github.com/frahmantamala/licensestore/internal/core/datamodel/catalog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func first[T any](q *gorm.DB) (*T, error) {
	var row T
	err := q.First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func exists(q *gorm.DB, excludeID int64) (bool, error) {
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *Repository) ListCategories(activeOnly bool) ([]catalogdm.Category, error) {
	q := r.db.Order("sort_order, name")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []catalogdm.Category
	err := q.Find(&rows).Error
	return rows, err
}

func (r *Repository) GetCategory(id int64) (*catalogdm.Category, error) {
	return first[catalogdm.Category](r.db.Where("id = ?", id))
}

func (r *Repository) CategorySlugExists(slug string, excludeID int64) (bool, error) {
	return exists(r.db.Unscoped().Model(&catalogdm.Category{}).Where("slug = ?", slug), excludeID)
}

func (r *Repository) CreateCategory(c *catalogdm.Category) error {
	return r.db.Create(c).Error
}

func (r *Repository) UpdateCategory(c *catalogdm.Category) error {
	return r.db.Save(c).Error
}

func (r *Repository) DeleteCategory(id int64) error {
	return r.db.Delete(&catalogdm.Category{}, id).Error
}

func (r *Repository) CountProductsInCategory(id int64) (int64, error) {
	var count int64
	err := r.db.Model(&catalogdm.Product{}).Where("category_id = ?", id).Count(&count).Error
	return count, err
}

func (r *Repository) ListProducts(filter catalog.ProductFilter) ([]catalogdm.Product, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.ActiveOnly {
			q = q.Where("products.is_active = ?", true).
				Joins("JOIN categories ON categories.id = products.category_id AND categories.is_active = ? AND categories.deleted_at IS NULL", true)
		}
		if filter.CategoryID > 0 {
			q = q.Where("products.category_id = ?", filter.CategoryID)
		}
		if s := strings.TrimSpace(filter.Search); s != "" {
			like := "%" + strings.ToLower(s) + "%"
			q = q.Where("(LOWER(products.name) LIKE ? OR LOWER(products.short_description) LIKE ?)", like, like)
		}
		return q
	}

	var total int64
	if err := r.db.Model(&catalogdm.Product{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	variants := func(db *gorm.DB) *gorm.DB {
		if filter.ActiveOnly {
			db = db.Where("is_active = ?", true)
		}
		return db.Order("sort_order, price")
	}

	var rows []catalogdm.Product
	err := r.db.Scopes(scope).
		Preload("Category").
		Preload("Variants", variants).
		Order("products.created_at DESC, products.id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) GetProduct(id int64) (*catalogdm.Product, error) {
	return first[catalogdm.Product](r.db.
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, price") }).
		Where("id = ?", id))
}

func (r *Repository) GetActiveProductBySlug(slug string) (*catalogdm.Product, error) {
	return first[catalogdm.Product](r.db.
		Preload("Category").
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order, price")
		}).
		Joins("JOIN categories ON categories.id = products.category_id AND categories.is_active = ? AND categories.deleted_at IS NULL", true).
		Where("products.slug = ? AND products.is_active = ?", slug, true))
}

func (r *Repository) ProductSlugExists(slug string, excludeID int64) (bool, error) {
	return exists(r.db.Unscoped().Model(&catalogdm.Product{}).Where("slug = ?", slug), excludeID)
}

func (r *Repository) CreateProduct(p *catalogdm.Product) error {
	return r.db.Omit(clause.Associations).Create(p).Error
}

func (r *Repository) UpdateProduct(p *catalogdm.Product) error {
	return r.db.Omit(clause.Associations).Save(p).Error
}

func (r *Repository) DeleteProduct(id int64) error {
	return r.db.Delete(&catalogdm.Product{}, id).Error
}

func (r *Repository) GetVariant(id int64) (*catalogdm.ProductVariant, error) {
	return first[catalogdm.ProductVariant](r.db.Where("id = ?", id))
}

func (r *Repository) SKUExists(sku string, excludeID int64) (bool, error) {
	return exists(r.db.Model(&catalogdm.ProductVariant{}).Where("sku = ?", sku), excludeID)
}

func (r *Repository) CreateVariant(v *catalogdm.ProductVariant) error {
	return r.db.Omit(clause.Associations).Create(v).Error
}

func (r *Repository) UpdateVariant(v *catalogdm.ProductVariant) error {
	return r.db.Omit(clause.Associations).Save(v).Error
}

// DeleteVariant deactivates variants already referenced by license keys or
// orders and removes the rest.
func (r *Repository) DeleteVariant(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var sold int64
		if err := tx.Model(&catalogdm.LicenseKey{}).
			Where("variant_id = ? AND status = ?", id, catalogdm.LicenseKeySold).
			Count(&sold).Error; err != nil {
			return err
		}
		if sold > 0 {
			return tx.Model(&catalogdm.ProductVariant{}).Where("id = ?", id).Update("is_active", false).Error
		}
		if err := tx.Where("variant_id = ?", id).Delete(&catalogdm.LicenseKey{}).Error; err != nil {
			return err
		}
		return tx.Delete(&catalogdm.ProductVariant{}, id).Error
	})
}

func (r *Repository) AddLicenseKeys(variantID int64, keys []string) (int, error) {
	added := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		rows := make([]catalogdm.LicenseKey, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, catalogdm.LicenseKey{VariantID: variantID, Key: k, Status: catalogdm.LicenseKeyAvailable})
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 200)
		if res.Error != nil {
			return res.Error
		}
		added = int(res.RowsAffected)
		if added == 0 {
			return nil
		}

		return tx.Model(&catalogdm.ProductVariant{}).
			Where("id = ?", variantID).
			Update("stock", gorm.Expr("stock + ?", added)).Error
	})
	return added, err
}

func (r *Repository) CountAvailableKeys(variantID int64) (int64, error) {
	var count int64
	err := r.db.Model(&catalogdm.LicenseKey{}).
		Where("variant_id = ? AND status = ?", variantID, catalogdm.LicenseKeyAvailable).
		Count(&count).Error
	return count, err
}
