package postgres

import (
	"errors"
	"time"

	"github.com/frahmantamala/licensestore/internal/core/datamodel/payment"
	payos "github.com/frahmantamala/licensestore/internal/core/datamodel/paymentgateway"
	paymentpkg "github.com/frahmantamala/licensestore/internal/payment"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(p *payment.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByID(id int64) (*payment.Payment, error) {
	return r.first(r.db.Where("id = ?", id))
}

func (r *PaymentRepository) GetByOrderCode(orderCode int64) (*payment.Payment, error) {
	return r.first(r.db.Where("order_code = ?", orderCode))
}

func (r *PaymentRepository) GetByOrderID(orderID int64) (*payment.Payment, error) {
	return r.first(r.db.Where("order_id = ?", orderID).Order("created_at DESC, id DESC"))
}

func (r *PaymentRepository) first(q *gorm.DB) (*payment.Payment, error) {
	var p payment.Payment
	err := q.First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) List(filter paymentpkg.ListFilter) ([]payment.Payment, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			db = db.Where("status = ?", filter.Status)
		}
		if filter.OrderCode > 0 {
			db = db.Where("order_code = ?", filter.OrderCode)
		}
		return db
	}

	var total int64
	if err := r.db.Model(&payment.Payment{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []payment.Payment
	q := r.db.Scopes(scope).Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *PaymentRepository) ListPendingBefore(before time.Time, limit int) ([]payment.Payment, error) {
	var rows []payment.Payment
	q := r.db.Where("status = ? AND created_at < ?", payment.StatusPending, before).Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *PaymentRepository) SaveLink(id int64, link *payos.PaymentLink) error {
	return r.db.Model(&payment.Payment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"payment_link_id": link.PaymentLinkID,
		"checkout_url":    link.CheckoutURL,
		"qr_code":         link.QRCode,
	}).Error
}

func (r *PaymentRepository) MarkPaid(id int64, reference, gatewayResponse string, paidAt time.Time) (bool, error) {
	res := r.db.Model(&payment.Payment{}).
		Where("id = ? AND status = ?", id, payment.StatusPending).
		Updates(map[string]interface{}{
			"status":           payment.StatusPaid,
			"reference":        reference,
			"gateway_response": gatewayResponse,
			"paid_at":          paidAt,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *PaymentRepository) MarkStatus(id int64, status string, reason *string, gatewayResponse string) (bool, error) {
	updates := map[string]interface{}{
		"status": status,
	}
	if reason != nil {
		updates["failure_reason"] = *reason
	}
	if gatewayResponse != "" {
		updates["gateway_response"] = gatewayResponse
	}

	res := r.db.Model(&payment.Payment{}).
		Where("id = ? AND status = ?", id, payment.StatusPending).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}
