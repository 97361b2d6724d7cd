package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeOrderCreated   = "order.created"
	EventTypeOrderPaid      = "order.paid"
	EventTypeOrderCancelled = "order.cancelled"
)

// OrderEvent covers every order lifecycle transition; Type tells them apart.
type OrderEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	OrderCode int64  `json:"order_code"`
	UserID    int64  `json:"user_id"`
	Status    string `json:"status"`
	Total     int64  `json:"total"`
	Reason    string `json:"reason,omitempty"`
}

func NewOrderEvent(eventType string, orderID, orderCode, userID int64, status string, total int64, reason string) *OrderEvent {
	return &OrderEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_id":   orderID,
				"order_code": orderCode,
				"user_id":    userID,
				"status":     status,
				"total":      total,
				"reason":     reason,
			},
		},
		OrderID:   orderID,
		OrderCode: orderCode,
		UserID:    userID,
		Status:    status,
		Total:     total,
		Reason:    reason,
	}
}
