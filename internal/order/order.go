package order

import (
	"context"
	"time"

	"github.com/frahmantamala/licensestore/internal"
	cartdm "github.com/frahmantamala/licensestore/internal/core/datamodel/cart"
	catalogdm "github.com/frahmantamala/licensestore/internal/core/datamodel/catalog"
	orderdm "github.com/frahmantamala/licensestore/internal/core/datamodel/order"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"github.com/frahmantamala/licensestore/internal/payment"
)

type Detail struct {
	ID          int64    `json:"id"`
	VariantID   int64    `json:"variant_id"`
	ProductName string   `json:"product_name"`
	VariantName string   `json:"variant_name"`
	SKU         string   `json:"sku"`
	UnitPrice   int64    `json:"unit_price"`
	Quantity    int      `json:"quantity"`
	LineTotal   int64    `json:"line_total"`
	LicenseKeys []string `json:"license_keys,omitempty"`
}

type Order struct {
	ID            int64            `json:"id"`
	OrderCode     int64            `json:"order_code"`
	UserID        int64            `json:"user_id"`
	Status        string           `json:"status"`
	TotalAmount   int64            `json:"total_amount"`
	CustomerEmail string           `json:"customer_email"`
	CustomerName  string           `json:"customer_name"`
	Note          string           `json:"note,omitempty"`
	CancelReason  *string          `json:"cancel_reason,omitempty"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	CancelledAt   *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	Details       []Detail         `json:"details"`
	Payment       *payment.Payment `json:"payment,omitempty"`
}

// FromDataModel converts a stored order. License keys are only exposed once
// the order is paid.
func FromDataModel(o *orderdm.Order) *Order {
	out := &Order{
		ID:            o.ID,
		OrderCode:     o.OrderCode,
		UserID:        o.UserID,
		Status:        o.Status,
		TotalAmount:   o.TotalAmount,
		CustomerEmail: o.CustomerEmail,
		CustomerName:  o.CustomerName,
		Note:          o.Note,
		CancelReason:  o.CancelReason,
		PaidAt:        o.PaidAt,
		CancelledAt:   o.CancelledAt,
		CreatedAt:     o.CreatedAt,
		Details:       make([]Detail, 0, len(o.Details)),
	}
	for _, d := range o.Details {
		detail := Detail{
			ID:          d.ID,
			VariantID:   d.VariantID,
			ProductName: d.ProductName,
			VariantName: d.VariantName,
			SKU:         d.SKU,
			UnitPrice:   d.UnitPrice,
			Quantity:    d.Quantity,
			LineTotal:   d.LineTotal,
		}
		if o.Status == orderdm.StatusPaid {
			for _, k := range d.LicenseKeys {
				detail.LicenseKeys = append(detail.LicenseKeys, k.Key)
			}
		}
		out.Details = append(out.Details, detail)
	}
	return out
}

var transitions = map[string][]string{
	orderdm.StatusPending: {orderdm.StatusPaid, orderdm.StatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type ListFilter struct {
	UserID int64
	Status string
	// Search matches the order code exactly or the customer email by prefix.
	Search string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// Builder turns the caller's cart rows into an unsaved order.
type Builder func(items []cartdm.CartItem) (*orderdm.Order, error)

type RepositoryAPI interface {
	// PlaceOrder loads the cart, runs build, saves the result and empties the
	// cart, all in one transaction.
	PlaceOrder(userID int64, build Builder) (*orderdm.Order, error)
	GetByID(id int64) (*orderdm.Order, error)
	GetCustomer(userID int64) (*userdm.User, error)
	CodeExists(code int64) (bool, error)
	List(filter ListFilter) ([]orderdm.Order, int64, error)
	ListPendingBefore(before time.Time, limit int) ([]orderdm.Order, error)
	// MarkPaid moves a Pending order to Paid, takes the sold units off stock and
	// allocates license keys. changed is false when the order was not Pending.
	MarkPaid(orderID int64, paidAt time.Time) (allocated int, changed bool, err error)
	Cancel(orderID int64, reason string, at time.Time) (bool, error)
}

type PaymentAPI interface {
	CreateLink(ctx context.Context, req payment.LinkRequest) (*payment.Payment, error)
	CancelLink(ctx context.Context, orderCode int64, reason string) error
	GetByOrderID(orderID int64) (*payment.Payment, error)
}

func available(v *catalogdm.ProductVariant) bool {
	return v != nil && v.IsActive && v.Product != nil && v.Product.IsActive && v.Product.DeletedAt.Time.IsZero()
}

var (
	ErrNotFound          = internal.NewNotFoundError("Order not found", internal.ErrCodeOrderNotFound)
	ErrInvalidStatus     = internal.NewValidationError("Order status does not allow this operation", internal.ErrCodeInvalidOrderStatus)
	ErrCartEmpty         = internal.NewValidationError("Cart is empty", internal.ErrCodeCartEmpty)
	ErrItemUnavailable   = internal.NewValidationError("A product in the cart is no longer available", internal.ErrCodeVariantInactive)
	ErrInsufficientStock = internal.NewValidationError("Not enough stock for a product in the cart", internal.ErrCodeOutOfStock)
)
