package postgres

import (
	"errors"
	"strconv"
	"time"

	cartdm "github.com/frahmantamala/licensestore/internal/core/datamodel/cart"
	catalogdm "github.com/frahmantamala/licensestore/internal/core/datamodel/catalog"
	orderdm "github.com/frahmantamala/licensestore/internal/core/datamodel/order"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
	"github.com/frahmantamala/licensestore/internal/order"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) PlaceOrder(userID int64, build order.Builder) (*orderdm.Order, error) {
	var placed *orderdm.Order
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var items []cartdm.CartItem
		if err := tx.
			Preload("Variant").
			Preload("Variant.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
			Where("user_id = ?", userID).
			Order("created_at, id").
			Find(&items).Error; err != nil {
			return err
		}

		o, err := build(items)
		if err != nil {
			return err
		}
		if err := tx.Create(o).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&cartdm.CartItem{}).Error; err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

func (r *Repository) GetByID(id int64) (*orderdm.Order, error) {
	var o orderdm.Order
	err := r.db.
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Details.LicenseKeys", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("id = ?", id).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) GetCustomer(userID int64) (*userdm.User, error) {
	var u userdm.User
	err := r.db.Where("id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) CodeExists(code int64) (bool, error) {
	var count int64
	err := r.db.Model(&orderdm.Order{}).Where("order_code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *Repository) List(filter order.ListFilter) ([]orderdm.Order, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.UserID > 0 {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Search != "" {
			if code, err := strconv.ParseInt(filter.Search, 10, 64); err == nil {
				q = q.Where("order_code = ?", code)
			} else {
				q = q.Where("LOWER(customer_email) LIKE LOWER(?)", filter.Search+"%")
			}
		}
		if filter.From != nil {
			q = q.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("created_at < ?", *filter.To)
		}
		return q
	}

	var total int64
	if err := r.db.Model(&orderdm.Order{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []orderdm.Order
	q := r.db.Scopes(scope).
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) ListPendingBefore(before time.Time, limit int) ([]orderdm.Order, error) {
	var rows []orderdm.Order
	q := r.db.Where("status = ? AND created_at < ?", orderdm.StatusPending, before).Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPaid(orderID int64, paidAt time.Time) (int, bool, error) {
	allocated := 0
	changed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&orderdm.Order{}).
			Where("id = ? AND status = ?", orderID, orderdm.StatusPending).
			Updates(map[string]interface{}{"status": orderdm.StatusPaid, "paid_at": paidAt})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true

		var details []orderdm.OrderDetail
		if err := tx.Where("order_id = ?", orderID).Order("id").Find(&details).Error; err != nil {
			return err
		}

		for _, d := range details {
			if err := tx.Model(&catalogdm.ProductVariant{}).
				Where("id = ?", d.VariantID).
				UpdateColumn("stock", gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", d.Quantity, d.Quantity)).Error; err != nil {
				return err
			}

			keys := tx.Model(&catalogdm.LicenseKey{}).
				Where("variant_id = ? AND status = ?", d.VariantID, catalogdm.LicenseKeyAvailable).
				Order("id").
				Limit(d.Quantity)
			if tx.Dialector.Name() == "postgres" {
				keys = keys.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
			}
			var keyIDs []int64
			if err := keys.Pluck("id", &keyIDs).Error; err != nil {
				return err
			}
			if len(keyIDs) == 0 {
				continue
			}

			detailID := d.ID
			res := tx.Model(&catalogdm.LicenseKey{}).
				Where("id IN ? AND status = ?", keyIDs, catalogdm.LicenseKeyAvailable).
				Updates(map[string]interface{}{
					"status":          catalogdm.LicenseKeySold,
					"order_detail_id": detailID,
					"sold_at":         paidAt,
				})
			if res.Error != nil {
				return res.Error
			}
			allocated += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return allocated, changed, nil
}

func (r *Repository) Cancel(orderID int64, reason string, at time.Time) (bool, error) {
	res := r.db.Model(&orderdm.Order{}).
		Where("id = ? AND status = ?", orderID, orderdm.StatusPending).
		Updates(map[string]interface{}{
			"status":        orderdm.StatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  at,
		})
	return res.RowsAffected > 0, res.Error
}
