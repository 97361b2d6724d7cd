package order

import (
	"time"

	"github.com/frahmantamala/licensestore/internal/core/datamodel/catalog"
)

const (
	StatusPending   = "Pending"
	StatusPaid      = "Paid"
	StatusCancelled = "Cancelled"
)

type Order struct {
	ID            int64         `gorm:"primaryKey"`
	OrderCode     int64         `gorm:"column:order_code;uniqueIndex;not null"`
	UserID        int64         `gorm:"column:user_id;not null;index"`
	Status        string        `gorm:"column:status;not null;default:Pending;index"`
	TotalAmount   int64         `gorm:"column:total_amount;not null"`
	CustomerEmail string        `gorm:"column:customer_email"`
	CustomerName  string        `gorm:"column:customer_name"`
	Note          string        `gorm:"column:note"`
	CancelReason  *string       `gorm:"column:cancel_reason"`
	PaidAt        *time.Time    `gorm:"column:paid_at"`
	CancelledAt   *time.Time    `gorm:"column:cancelled_at"`
	CreatedAt     time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time     `gorm:"column:updated_at;autoUpdateTime"`
	Details       []OrderDetail `gorm:"foreignKey:OrderID"`
}

type OrderDetail struct {
	ID          int64                `gorm:"primaryKey"`
	OrderID     int64                `gorm:"column:order_id;not null;index"`
	VariantID   int64                `gorm:"column:variant_id;not null"`
	ProductName string               `gorm:"column:product_name;not null"`
	VariantName string               `gorm:"column:variant_name;not null"`
	SKU         string               `gorm:"column:sku;not null"`
	UnitPrice   int64                `gorm:"column:unit_price;not null"`
	Quantity    int                  `gorm:"column:quantity;not null"`
	LineTotal   int64                `gorm:"column:line_total;not null"`
	LicenseKeys []catalog.LicenseKey `gorm:"foreignKey:OrderDetailID"`
}
