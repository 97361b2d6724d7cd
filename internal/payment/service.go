package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/licensestore/internal/core/datamodel/payment"
	payos "github.com/frahmantamala/licensestore/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/licensestore/internal/core/events"
	"github.com/frahmantamala/licensestore/internal/paymentgateway"
)

type Config struct {
	ReturnURL  string
	CancelURL  string
	LinkExpiry time.Duration
}

type Service struct {
	repo     RepositoryAPI
	gateway  Gateway
	eventBus events.Publisher
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo RepositoryAPI, gateway Gateway, eventBus events.Publisher, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		gateway:  gateway,
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Description is the transfer memo shown to the buyer; PayOS caps it at 25 characters.
func Description(orderCode int64) string {
	return fmt.Sprintf("DH%d", orderCode)
}

// CreateLink records a Pending payment for the order and registers a PayOS link
// for it. Calling it again for an order whose link was created returns the
// existing payment.
func (s *Service) CreateLink(ctx context.Context, req LinkRequest) (*Payment, error) {
	existing, err := s.repo.GetByOrderCode(req.OrderCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if existing != nil && existing.Status != payment.StatusPending {
		return nil, ErrLinkExists
	}
	if existing != nil && existing.CheckoutURL != "" {
		return FromDataModel(existing), nil
	}

	p := existing
	if p == nil {
		p = &payment.Payment{
			OrderID:   req.OrderID,
			OrderCode: req.OrderCode,
			Provider:  payment.ProviderPayOS,
			Amount:    req.Amount,
			Status:    payment.StatusPending,
		}
		if err := s.repo.Create(p); err != nil {
			s.logger.Error("failed to create payment record", "error", err, "order_id", req.OrderID)
			return nil, fmt.Errorf("failed to create payment record: %w", err)
		}
	}

	linkReq := &payos.CreatePaymentLinkRequest{
		OrderCode:   req.OrderCode,
		Amount:      req.Amount,
		Description: Description(req.OrderCode),
		BuyerName:   req.BuyerName,
		BuyerEmail:  req.BuyerEmail,
		Items:       req.Items,
		ReturnURL:   s.cfg.ReturnURL,
		CancelURL:   s.cfg.CancelURL,
	}
	if s.cfg.LinkExpiry > 0 {
		linkReq.ExpiredAt = s.now().Add(s.cfg.LinkExpiry).Unix()
	}

	link, err := s.gateway.CreatePaymentLink(ctx, linkReq)
	if err != nil {
		s.logger.Error("failed to create payment link", "error", err, "order_code", req.OrderCode)
		return nil, ErrGateway.WithCause(err)
	}
	if err := s.repo.SaveLink(p.ID, link); err != nil {
		return nil, fmt.Errorf("failed to save payment link: %w", err)
	}

	p.PaymentLinkID = link.PaymentLinkID
	p.CheckoutURL = link.CheckoutURL
	p.QRCode = link.QRCode

	s.logger.Info("payment link created",
		"payment_id", p.ID,
		"order_id", req.OrderID,
		"order_code", req.OrderCode,
		"amount", req.Amount)
	return FromDataModel(p), nil
}

// CancelLink cancels the PayOS link of a still-pending payment. Orders without
// a payment are ignored.
func (s *Service) CancelLink(ctx context.Context, orderCode int64, reason string) error {
	p, err := s.repo.GetByOrderCode(orderCode)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if p == nil || p.Status != payment.StatusPending {
		return nil
	}

	if p.PaymentLinkID != "" {
		if _, err := s.gateway.CancelPaymentLink(ctx, orderCode, reason); err != nil {
			// the link expires on its own; the local record is what gates fulfilment
			s.logger.Warn("failed to cancel payment link", "error", err, "order_code", orderCode)
		}
	}

	r := reason
	if _, err := s.repo.MarkStatus(p.ID, payment.StatusCancelled, &r, ""); err != nil {
		return fmt.Errorf("failed to cancel payment: %w", err)
	}
	s.logger.Info("payment cancelled", "payment_id", p.ID, "order_code", orderCode, "reason", reason)
	return nil
}

func (s *Service) GetByOrderID(orderID int64) (*Payment, error) {
	p, err := s.repo.GetByOrderID(orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return FromDataModel(p), nil
}

func (s *Service) GetByID(id int64) (*Payment, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return FromDataModel(p), nil
}

func (s *Service) List(filter ListFilter) ([]*Payment, int64, error) {
	rows, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	out := make([]*Payment, 0, len(rows))
	for i := range rows {
		out = append(out, FromDataModel(&rows[i]))
	}
	return out, total, nil
}

// ProcessWebhook verifies a raw PayOS webhook body and applies it. Deliveries
// for unknown order codes and for payments that are no longer pending are
// acknowledged without effect.
func (s *Service) ProcessWebhook(ctx context.Context, body []byte) error {
	data, err := s.gateway.VerifyWebhook(body)
	if err != nil {
		s.logger.Warn("rejected payment webhook", "error", err)
		return ErrInvalidSignature.WithCause(err)
	}

	s.logger.Info("received payment webhook",
		"order_code", data.OrderCode,
		"amount", data.Amount,
		"code", data.Code,
		"reference", data.Reference)

	p, err := s.repo.GetByOrderCode(data.OrderCode)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if p == nil {
		s.logger.Info("webhook for unknown order code acknowledged", "order_code", data.OrderCode)
		return nil
	}
	if p.Status != payment.StatusPending {
		s.logger.Info("webhook for settled payment ignored",
			"payment_id", p.ID,
			"order_code", data.OrderCode,
			"status", p.Status)
		return nil
	}

	raw := s.rawPayload(data, p.ID)

	if !data.Paid() {
		return s.fail(ctx, p, fmt.Sprintf("gateway reported %s: %s", data.Code, data.Desc), raw)
	}
	if data.Amount != p.Amount {
		return s.fail(ctx, p, fmt.Sprintf("amount mismatch: expected %d, got %d", p.Amount, data.Amount), raw)
	}
	return s.complete(ctx, p, data.Reference, raw)
}

// Reconcile asks PayOS for the current state of a pending payment and applies
// it the same way a webhook would.
func (s *Service) Reconcile(ctx context.Context, paymentID int64) error {
	p, err := s.repo.GetByID(paymentID)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if p == nil {
		return ErrNotFound
	}
	if p.Status != payment.StatusPending {
		return nil
	}

	info, err := s.gateway.GetPaymentLink(ctx, p.OrderCode)
	if err != nil {
		var apiErr *paymentgateway.APIError
		if errors.As(err, &apiErr) {
			s.logger.Warn("payment link lookup rejected", "order_code", p.OrderCode, "code", apiErr.Code, "desc", apiErr.Desc)
			return nil
		}
		return ErrGateway.WithCause(err)
	}

	raw := s.rawPayload(info, p.ID)

	switch info.Status {
	case payos.LinkStatusPaid:
		if info.AmountPaid < p.Amount {
			return s.fail(ctx, p, fmt.Sprintf("amount mismatch: expected %d, got %d", p.Amount, info.AmountPaid), raw)
		}
		reference := ""
		if len(info.Transactions) > 0 {
			reference = info.Transactions[len(info.Transactions)-1].Reference
		}
		return s.complete(ctx, p, reference, raw)
	case payos.LinkStatusCancelled, payos.LinkStatusExpired:
		reason := "payment link " + info.Status
		if _, err := s.repo.MarkStatus(p.ID, payment.StatusCancelled, &reason, raw); err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		s.logger.Info("payment closed by gateway", "payment_id", p.ID, "order_code", p.OrderCode, "status", info.Status)
	}
	return nil
}

// complete settles the order before the payment row so a failed fulfilment
// leaves the payment pending and the next delivery retries it.
func (s *Service) complete(ctx context.Context, p *payment.Payment, reference, raw string) error {
	event := events.NewPaymentCompletedEvent(p.ID, p.OrderID, p.OrderCode, p.Amount, reference)
	if err := s.eventBus.PublishSync(ctx, event); err != nil {
		s.logger.Error("failed to fulfil paid order", "error", err, "payment_id", p.ID, "order_id", p.OrderID)
		return fmt.Errorf("failed to fulfil order %d: %w", p.OrderID, err)
	}

	changed, err := s.repo.MarkPaid(p.ID, reference, raw, s.now())
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}
	if changed {
		s.logger.Info("payment completed",
			"payment_id", p.ID,
			"order_id", p.OrderID,
			"order_code", p.OrderCode,
			"reference", reference)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, p *payment.Payment, reason, raw string) error {
	changed, err := s.repo.MarkStatus(p.ID, payment.StatusFailed, &reason, raw)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if !changed {
		return nil
	}

	s.logger.Warn("payment failed", "payment_id", p.ID, "order_code", p.OrderCode, "reason", reason)
	event := events.NewPaymentFailedEvent(p.ID, p.OrderID, p.OrderCode, p.Amount, reason)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish payment failed event", "error", err, "payment_id", p.ID)
	}
	return nil
}

// PendingBefore lists payments still waiting on the gateway.
func (s *Service) PendingBefore(before time.Time, limit int) ([]*Payment, error) {
	rows, err := s.repo.ListPendingBefore(before, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}
	out := make([]*Payment, 0, len(rows))
	for i := range rows {
		out = append(out, FromDataModel(&rows[i]))
	}
	return out, nil
}

// rawPayload keeps the gateway payload for auditing; an encoding failure is
// logged and stored as empty.
func (s *Service) rawPayload(v interface{}, paymentID int64) string {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to encode gateway payload", "error", err, "payment_id", paymentID)
		return ""
	}
	return string(raw)
}
