package cart

import (
	"time"

	"github.com/frahmantamala/licensestore/internal/core/datamodel/catalog"
)

type CartItem struct {
	ID        int64                   `gorm:"primaryKey"`
	UserID    int64                   `gorm:"column:user_id;not null;uniqueIndex:idx_cart_user_variant"`
	VariantID int64                   `gorm:"column:variant_id;not null;uniqueIndex:idx_cart_user_variant"`
	Quantity  int                     `gorm:"column:quantity;not null"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
	Variant   *catalog.ProductVariant `gorm:"foreignKey:VariantID"`
}
