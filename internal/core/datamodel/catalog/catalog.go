package catalog

import (
	"time"

	"gorm.io/gorm"
)

const (
	LicenseKeyAvailable = "available"
	LicenseKeySold      = "sold"
)

type Category struct {
	ID          int64          `gorm:"primaryKey"`
	Name        string         `gorm:"column:name;not null"`
	Slug        string         `gorm:"column:slug;uniqueIndex;not null"`
	Description string         `gorm:"column:description"`
	SortOrder   int            `gorm:"column:sort_order;not null;default:0"`
	IsActive    bool           `gorm:"column:is_active;not null"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

type Product struct {
	ID               int64            `gorm:"primaryKey"`
	CategoryID       int64            `gorm:"column:category_id;not null;index"`
	Name             string           `gorm:"column:name;not null"`
	Slug             string           `gorm:"column:slug;uniqueIndex;not null"`
	ShortDescription string           `gorm:"column:short_description"`
	Description      string           `gorm:"column:description"`
	ImageURL         string           `gorm:"column:image_url"`
	IsActive         bool             `gorm:"column:is_active;not null"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt        gorm.DeletedAt   `gorm:"column:deleted_at;index"`
	Category         *Category        `gorm:"foreignKey:CategoryID"`
	Variants         []ProductVariant `gorm:"foreignKey:ProductID"`
}

type ProductVariant struct {
	ID             int64     `gorm:"primaryKey"`
	ProductID      int64     `gorm:"column:product_id;not null;index"`
	Name           string    `gorm:"column:name;not null"`
	SKU            string    `gorm:"column:sku;uniqueIndex;not null"`
	Price          int64     `gorm:"column:price;not null"`
	CompareAtPrice int64     `gorm:"column:compare_at_price;not null;default:0"`
	DurationDays   int       `gorm:"column:duration_days;not null;default:0"`
	Stock          int       `gorm:"column:stock;not null;default:0"`
	SortOrder      int       `gorm:"column:sort_order;not null;default:0"`
	IsActive       bool      `gorm:"column:is_active;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
	Product        *Product  `gorm:"foreignKey:ProductID"`
}

type LicenseKey struct {
	ID            int64      `gorm:"primaryKey"`
	VariantID     int64      `gorm:"column:variant_id;not null;uniqueIndex:idx_variant_license_key"`
	Key           string     `gorm:"column:license_key;not null;uniqueIndex:idx_variant_license_key"`
	Status        string     `gorm:"column:status;not null;default:available;index"`
	OrderDetailID *int64     `gorm:"column:order_detail_id;index"`
	SoldAt        *time.Time `gorm:"column:sold_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}
