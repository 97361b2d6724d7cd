package payment

import (
	"context"
	"time"

	"github.com/frahmantamala/licensestore/internal"
	paymentdm "github.com/frahmantamala/licensestore/internal/core/datamodel/payment"
	payos "github.com/frahmantamala/licensestore/internal/core/datamodel/paymentgateway"
)

// Payment is the API view of a payment attempt for an order.
type Payment struct {
	ID            int64      `json:"id"`
	OrderID       int64      `json:"order_id"`
	OrderCode     int64      `json:"order_code"`
	Provider      string     `json:"provider"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	PaymentLinkID string     `json:"payment_link_id,omitempty"`
	CheckoutURL   string     `json:"checkout_url,omitempty"`
	QRCode        string     `json:"qr_code,omitempty"`
	Reference     string     `json:"reference,omitempty"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func FromDataModel(p *paymentdm.Payment) *Payment {
	if p == nil {
		return nil
	}
	return &Payment{
		ID:            p.ID,
		OrderID:       p.OrderID,
		OrderCode:     p.OrderCode,
		Provider:      p.Provider,
		Amount:        p.Amount,
		Status:        p.Status,
		PaymentLinkID: p.PaymentLinkID,
		CheckoutURL:   p.CheckoutURL,
		QRCode:        p.QRCode,
		Reference:     p.Reference,
		FailureReason: p.FailureReason,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}

// LinkRequest carries what PayOS needs to know about an order.
type LinkRequest struct {
	OrderID    int64
	OrderCode  int64
	Amount     int64
	BuyerName  string
	BuyerEmail string
	Items      []payos.Item
}

type ListFilter struct {
	Status    string
	OrderCode int64
	Limit     int
	Offset    int
}

type RepositoryAPI interface {
	Create(p *paymentdm.Payment) error
	GetByID(id int64) (*paymentdm.Payment, error)
	GetByOrderCode(orderCode int64) (*paymentdm.Payment, error)
	GetByOrderID(orderID int64) (*paymentdm.Payment, error)
	List(filter ListFilter) ([]paymentdm.Payment, int64, error)
	ListPendingBefore(before time.Time, limit int) ([]paymentdm.Payment, error)
	SaveLink(id int64, link *payos.PaymentLink) error
	// MarkPaid and MarkStatus only touch rows that are still Pending and report
	// whether they changed anything.
	MarkPaid(id int64, reference, gatewayResponse string, paidAt time.Time) (bool, error)
	MarkStatus(id int64, status string, reason *string, gatewayResponse string) (bool, error)
}

// Gateway is the subset of the PayOS client the payment service drives.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, req *payos.CreatePaymentLinkRequest) (*payos.PaymentLink, error)
	GetPaymentLink(ctx context.Context, orderCode int64) (*payos.PaymentLinkInfo, error)
	CancelPaymentLink(ctx context.Context, orderCode int64, reason string) (*payos.PaymentLinkInfo, error)
	VerifyWebhook(body []byte) (*payos.WebhookData, error)
}

var (
	ErrNotFound         = internal.NewNotFoundError("Payment not found", internal.ErrCodePaymentNotFound)
	ErrInvalidSignature = internal.NewValidationError("Invalid webhook signature", internal.ErrCodeInvalidSignature)
	ErrGateway          = internal.NewExternalError("Payment gateway unavailable", internal.ErrCodeGatewayError, nil)
	ErrLinkExists       = internal.NewConflictError("Payment link already exists for this order", internal.ErrCodePaymentLinkExists)
)
