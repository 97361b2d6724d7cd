package postgres

import (
	"errors"
	"time"

	supportdm "github.com/frahmantamala/licensestore/internal/core/datamodel/support"
	"github.com/frahmantamala/licensestore/internal/rbac"
	"github.com/frahmantamala/licensestore/internal/support"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateTicket(t *supportdm.Ticket) error {
	return r.db.Create(t).Error
}

func (r *Repository) GetTicket(id int64) (*supportdm.Ticket, error) {
	var t supportdm.Ticket
	err := r.db.
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Where("id = ?", id).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ListTickets(filter support.TicketFilter) ([]supportdm.Ticket, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.UserID > 0 {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.AssigneeID > 0 {
			q = q.Where("assignee_id = ?", filter.AssigneeID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.Priority != "" {
			q = q.Where("priority = ?", filter.Priority)
		}
		if filter.Search != "" {
			q = q.Where("LOWER(subject) LIKE LOWER(?)", "%"+filter.Search+"%")
		}
		return q
	}

	var total int64
	if err := r.db.Model(&supportdm.Ticket{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []supportdm.Ticket
	q := r.db.Scopes(scope).Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) AssignTicket(id, staffID int64) error {
	return r.db.Model(&supportdm.Ticket{}).Where("id = ?", id).Update("assignee_id", staffID).Error
}

func (r *Repository) CanWorkTickets(userID int64) (bool, error) {
	var count int64
	err := r.db.Table("users u").
		Joins("JOIN user_roles ur ON ur.user_id = u.id").
		Joins("JOIN roles ro ON ro.id = ur.role_id AND ro.is_active = ?", true).
		Joins("JOIN role_permissions rp ON rp.role_id = ro.id AND rp.is_active = ?", true).
		Joins("JOIN modules m ON m.id = rp.module_id").
		Where("u.id = ? AND u.is_active = ? AND m.code = ?", userID, true, rbac.ModuleTicket).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) UpdateTicketStatus(id int64, status string, resolvedAt *time.Time) error {
	return r.db.Model(&supportdm.Ticket{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "resolved_at": resolvedAt}).Error
}

func (r *Repository) AddReply(reply *supportdm.TicketReply, ticketStatus string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"status": ticketStatus}
		if ticketStatus == supportdm.TicketOpen {
			updates["resolved_at"] = nil
		}
		if reply.IsStaff {
			updates["first_response_at"] = gorm.Expr("COALESCE(first_response_at, ?)", reply.CreatedAt)
		}
		return tx.Model(&supportdm.Ticket{}).Where("id = ?", reply.TicketID).Updates(updates).Error
	})
}

// ListOverdueTickets returns unresolved tickets past either deadline that have
// not been reported yet.
func (r *Repository) ListOverdueTickets(now time.Time, limit int) ([]supportdm.Ticket, error) {
	var rows []supportdm.Ticket
	q := r.db.
		Where("breach_notified_at IS NULL").
		Where("status IN ?", []string{supportdm.TicketOpen, supportdm.TicketInProgress}).
		Where(r.db.
			Where("first_response_at IS NULL AND response_due_at < ?", now).
			Or("first_response_at > response_due_at").
			Or("resolution_due_at < ?", now)).
		Order("resolution_due_at, id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkBreachNotified(id int64, at time.Time) error {
	return r.db.Model(&supportdm.Ticket{}).
		Where("id = ? AND breach_notified_at IS NULL", id).
		UpdateColumn("breach_notified_at", at).Error
}

func (r *Repository) CreateSession(s *supportdm.SupportChatSession) error {
	return r.db.Create(s).Error
}

func (r *Repository) GetSession(id int64) (*supportdm.SupportChatSession, error) {
	return r.firstSession(r.db.Where("id = ?", id))
}

func (r *Repository) GetOpenSessionForCustomer(customerID int64) (*supportdm.SupportChatSession, error) {
	return r.firstSession(r.db.
		Where("customer_id = ? AND status IN ?", customerID, []string{supportdm.SessionWaiting, supportdm.SessionActive}).
		Order("created_at DESC, id DESC"))
}

func (r *Repository) firstSession(q *gorm.DB) (*supportdm.SupportChatSession, error) {
	var s supportdm.SupportChatSession
	err := q.First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) ListSessions(filter support.SessionFilter) ([]supportdm.SupportChatSession, int64, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.CustomerID > 0 {
			q = q.Where("customer_id = ?", filter.CustomerID)
		}
		if filter.StaffID > 0 {
			q = q.Where("staff_id = ?", filter.StaffID)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	var total int64
	if err := r.db.Model(&supportdm.SupportChatSession{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// oldest first so the queue is served in arrival order
	var rows []supportdm.SupportChatSession
	q := r.db.Scopes(scope).Order("created_at, id")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) ClaimSession(id, staffID int64, at time.Time) (bool, error) {
	res := r.db.Model(&supportdm.SupportChatSession{}).
		Where("id = ? AND status = ?", id, supportdm.SessionWaiting).
		Updates(map[string]interface{}{
			"status":     supportdm.SessionActive,
			"staff_id":   staffID,
			"claimed_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) CloseSession(id, closedBy int64, at time.Time) (bool, error) {
	res := r.db.Model(&supportdm.SupportChatSession{}).
		Where("id = ? AND status <> ?", id, supportdm.SessionClosed).
		Updates(map[string]interface{}{
			"status":    supportdm.SessionClosed,
			"closed_by": closedBy,
			"closed_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) AddMessage(m *supportdm.ChatMessage) error {
	return r.db.Create(m).Error
}

// ListMessages returns up to limit messages older than beforeID, newest first.
func (r *Repository) ListMessages(sessionID, beforeID int64, limit int) ([]supportdm.ChatMessage, error) {
	var rows []supportdm.ChatMessage
	q := r.db.Where("session_id = ?", sessionID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	q = q.Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}
