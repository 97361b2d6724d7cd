package payment

import (
	"time"
)

const (
	StatusPending   = "Pending"
	StatusPaid      = "Paid"
	StatusFailed    = "Failed"
	StatusCancelled = "Cancelled"

	ProviderPayOS = "payos"
)

type Payment struct {
	ID              int64      `gorm:"primaryKey"`
	OrderID         int64      `gorm:"column:order_id;not null;index"`
	OrderCode       int64      `gorm:"column:order_code;not null;uniqueIndex"`
	Provider        string     `gorm:"column:provider;not null;default:payos"`
	Amount          int64      `gorm:"column:amount;not null"`
	Status          string     `gorm:"column:status;not null;default:Pending;index"`
	PaymentLinkID   string     `gorm:"column:payment_link_id"`
	CheckoutURL     string     `gorm:"column:checkout_url"`
	QRCode          string     `gorm:"column:qr_code"`
	Reference       string     `gorm:"column:reference"`
	GatewayResponse string     `gorm:"column:gateway_response;type:text"`
	FailureReason   *string    `gorm:"column:failure_reason"`
	PaidAt          *time.Time `gorm:"column:paid_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
