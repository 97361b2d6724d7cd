package postgres

import (
	"errors"

	cartdm "github.com/frahmantamala/licensestore/internal/core/datamodel/cart"
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

func (r *Repository) ListItems(userID int64) ([]cartdm.CartItem, error) {
	var rows []cartdm.CartItem
	err := r.db.
		Preload("Variant").
		Preload("Variant.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) GetItem(userID, variantID int64) (*cartdm.CartItem, error) {
	var row cartdm.CartItem
	err := r.db.Where("user_id = ? AND variant_id = ?", userID, variantID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) SaveItem(item *cartdm.CartItem) error {
	return r.db.Omit(clause.Associations).Save(item).Error
}

func (r *Repository) DeleteItem(userID, variantID int64) error {
	return r.db.Where("user_id = ? AND variant_id = ?", userID, variantID).Delete(&cartdm.CartItem{}).Error
}

func (r *Repository) Clear(userID int64) error {
	return r.db.Where("user_id = ?", userID).Delete(&cartdm.CartItem{}).Error
}

func (r *Repository) GetVariant(variantID int64) (*catalogdm.ProductVariant, error) {
	var row catalogdm.ProductVariant
	err := r.db.Preload("Product").Where("id = ?", variantID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
