package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	cartdm "github.com/frahmantamala/licensestore/internal/core/datamodel/cart"
	orderdm "github.com/frahmantamala/licensestore/internal/core/datamodel/order"
	payos "github.com/frahmantamala/licensestore/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/licensestore/internal/core/events"
	"github.com/frahmantamala/licensestore/internal/payment"
)

const reasonExpired = "payment window expired"

type Service struct {
	repo     RepositoryAPI
	payments PaymentAPI
	eventBus events.Publisher
	logger   *slog.Logger
	now      func() time.Time
	newCode  func() int64
}

func NewService(repo RepositoryAPI, payments PaymentAPI, eventBus events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		payments: payments,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
		newCode:  newOrderCode,
	}
}

// newOrderCode stays below 2^53 so PayOS and JavaScript clients read it exactly.
func newOrderCode() int64 {
	return time.Now().UnixMilli()%1_000_000_000_000*1000 + rand.Int64N(1000)
}

func (s *Service) uniqueCode() (int64, error) {
	for i := 0; i < 5; i++ {
		code := s.newCode()
		exists, err := s.repo.CodeExists(code)
		if err != nil {
			return 0, fmt.Errorf("failed to check order code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return 0, errors.New("could not allocate a unique order code")
}

// Checkout turns the caller's cart into a Pending order and opens a PayOS link
// for it. A gateway failure does not undo the order; the link can be requested
// again through PayOrder.
func (s *Service) Checkout(ctx context.Context, userID int64, dto CheckoutDTO) (*Order, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	customer, err := s.repo.GetCustomer(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("customer %d not found", userID)
	}

	code, err := s.uniqueCode()
	if err != nil {
		return nil, err
	}

	placed, err := s.repo.PlaceOrder(userID, func(items []cartdm.CartItem) (*orderdm.Order, error) {
		if len(items) == 0 {
			return nil, ErrCartEmpty
		}

		o := &orderdm.Order{
			OrderCode:     code,
			UserID:        userID,
			Status:        orderdm.StatusPending,
			CustomerEmail: customer.Email,
			CustomerName:  customer.FullName,
			Note:          dto.Note,
		}
		for _, item := range items {
			v := item.Variant
			if !available(v) {
				return nil, ErrItemUnavailable.WithDetails(map[string]int64{"variant_id": item.VariantID})
			}
			if v.Stock < item.Quantity {
				return nil, ErrInsufficientStock.WithDetails(map[string]interface{}{
					"variant_id": item.VariantID,
					"available":  v.Stock,
				})
			}
			line := v.Price * int64(item.Quantity)
			o.Details = append(o.Details, orderdm.OrderDetail{
				VariantID:   v.ID,
				ProductName: v.Product.Name,
				VariantName: v.Name,
				SKU:         v.SKU,
				UnitPrice:   v.Price,
				Quantity:    item.Quantity,
				LineTotal:   line,
			})
			o.TotalAmount += line
		}
		return o, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		"order_id", placed.ID,
		"order_code", placed.OrderCode,
		"user_id", userID,
		"total", placed.TotalAmount,
		"lines", len(placed.Details))

	s.publish(ctx, events.EventTypeOrderCreated, placed, "")

	view := FromDataModel(placed)
	link, err := s.payments.CreateLink(ctx, linkRequest(placed))
	if err != nil {
		s.logger.Error("payment link not created at checkout", "error", err, "order_id", placed.ID)
		return view, nil
	}
	view.Payment = link
	return view, nil
}

func linkRequest(o *orderdm.Order) payment.LinkRequest {
	req := payment.LinkRequest{
		OrderID:    o.ID,
		OrderCode:  o.OrderCode,
		Amount:     o.TotalAmount,
		BuyerName:  o.CustomerName,
		BuyerEmail: o.CustomerEmail,
	}
	for _, d := range o.Details {
		req.Items = append(req.Items, payos.Item{
			Name:     d.ProductName + " - " + d.VariantName,
			Quantity: d.Quantity,
			Price:    d.UnitPrice,
		})
	}
	return req
}

// PayOrder returns the payment link of one of the caller's pending orders,
// creating it when checkout could not.
func (s *Service) PayOrder(ctx context.Context, userID, orderID int64) (*payment.Payment, error) {
	o, err := s.owned(userID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != orderdm.StatusPending {
		return nil, ErrInvalidStatus
	}
	return s.payments.CreateLink(ctx, linkRequest(o))
}

func (s *Service) owned(userID, orderID int64) (*orderdm.Order, error) {
	o, err := s.repo.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	// other users' orders are reported as missing
	if o == nil || o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) withPayment(o *orderdm.Order) (*Order, error) {
	view := FromDataModel(o)
	p, err := s.payments.GetByOrderID(o.ID)
	if err != nil {
		return nil, err
	}
	view.Payment = p
	return view, nil
}

func (s *Service) GetMine(userID, orderID int64) (*Order, error) {
	o, err := s.owned(userID, orderID)
	if err != nil {
		return nil, err
	}
	return s.withPayment(o)
}

func (s *Service) Get(orderID int64) (*Order, error) {
	o, err := s.repo.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if o == nil {
		return nil, ErrNotFound
	}
	return s.withPayment(o)
}

func (s *Service) ListMine(userID int64, filter ListFilter) ([]*Order, int64, error) {
	filter.UserID = userID
	return s.List(filter)
}

func (s *Service) List(filter ListFilter) ([]*Order, int64, error) {
	if err := validateStatusFilter(filter.Status); err != nil {
		return nil, 0, err
	}
	rows, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	out := make([]*Order, 0, len(rows))
	for i := range rows {
		out = append(out, FromDataModel(&rows[i]))
	}
	return out, total, nil
}

func (s *Service) CancelMine(ctx context.Context, userID, orderID int64, dto CancelDTO) (*Order, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	o, err := s.owned(userID, orderID)
	if err != nil {
		return nil, err
	}
	reason := dto.Reason
	if reason == "" {
		reason = "cancelled by customer"
	}
	return s.cancel(ctx, o, reason)
}

func (s *Service) Cancel(ctx context.Context, orderID int64, dto CancelDTO) (*Order, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	o, err := s.repo.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if o == nil {
		return nil, ErrNotFound
	}
	reason := dto.Reason
	if reason == "" {
		reason = "cancelled by staff"
	}
	return s.cancel(ctx, o, reason)
}

func (s *Service) cancel(ctx context.Context, o *orderdm.Order, reason string) (*Order, error) {
	if !CanTransition(o.Status, orderdm.StatusCancelled) {
		return nil, ErrInvalidStatus
	}

	now := s.now()
	changed, err := s.repo.Cancel(o.ID, reason, now)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if !changed {
		// paid or cancelled concurrently
		return nil, ErrInvalidStatus
	}

	if err := s.payments.CancelLink(ctx, o.OrderCode, reason); err != nil {
		s.logger.Error("failed to cancel payment for order", "error", err, "order_id", o.ID)
	}

	o.Status = orderdm.StatusCancelled
	o.CancelReason = &reason
	o.CancelledAt = &now
	s.logger.Info("order cancelled", "order_id", o.ID, "order_code", o.OrderCode, "reason", reason)
	s.publish(ctx, events.EventTypeOrderCancelled, o, reason)

	return s.withPayment(o)
}

// MarkPaid settles a Pending order. Orders that are already Paid are left alone.
func (s *Service) MarkPaid(ctx context.Context, orderID int64) error {
	o, err := s.repo.GetByID(orderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if o == nil {
		return ErrNotFound
	}
	if o.Status == orderdm.StatusPaid {
		return nil
	}
	if !CanTransition(o.Status, orderdm.StatusPaid) {
		return ErrInvalidStatus
	}

	allocated, changed, err := s.repo.MarkPaid(o.ID, s.now())
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if !changed {
		return nil
	}

	units := 0
	for _, d := range o.Details {
		units += d.Quantity
	}
	if allocated < units {
		s.logger.Warn("order paid with missing license keys",
			"order_id", o.ID,
			"order_code", o.OrderCode,
			"units", units,
			"allocated", allocated)
	}

	o.Status = orderdm.StatusPaid
	s.logger.Info("order paid", "order_id", o.ID, "order_code", o.OrderCode, "total", o.TotalAmount)
	s.publish(ctx, events.EventTypeOrderPaid, o, "")
	return nil
}

// HandlePaymentCompleted settles the order behind a completed payment. A
// payment that lands on a cancelled order is logged for refund and
// acknowledged so the payment record still reflects the money received.
func (s *Service) HandlePaymentCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.PaymentCompletedEvent)
	if !ok {
		s.logger.Error("invalid event type for payment completed handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentCompletedEvent, got %T", event)
	}

	err := s.MarkPaid(ctx, e.OrderID)
	if errors.Is(err, ErrInvalidStatus) {
		s.logger.Error("payment received for an order that can no longer be paid",
			"order_id", e.OrderID,
			"order_code", e.OrderCode,
			"payment_id", e.PaymentID,
			"amount", e.Amount,
			"reference", e.Reference)
		return nil
	}
	return err
}

// ExpireStale cancels orders that stayed Pending for longer than maxAge.
func (s *Service) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	stale, err := s.repo.ListPendingBefore(s.now().Add(-maxAge), 200)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale orders: %w", err)
	}

	expired := 0
	for i := range stale {
		if _, err := s.cancel(ctx, &stale[i], reasonExpired); err != nil {
			if errors.Is(err, ErrInvalidStatus) {
				continue
			}
			s.logger.Error("failed to expire order", "error", err, "order_id", stale[i].ID)
			continue
		}
		expired++
	}
	if expired > 0 {
		s.logger.Info("expired stale orders", "count", expired)
	}
	return expired, nil
}

func (s *Service) publish(ctx context.Context, eventType string, o *orderdm.Order, reason string) {
	if s.eventBus == nil {
		return
	}
	event := events.NewOrderEvent(eventType, o.ID, o.OrderCode, o.UserID, o.Status, o.TotalAmount, reason)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish order event", "error", err, "event_type", eventType, "order_id", o.ID)
	}
}

func (s *Service) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentCompleted, s.HandlePaymentCompleted)

	s.logger.Info("order event handlers registered",
		"handlers", []string{events.EventTypePaymentCompleted})
}
