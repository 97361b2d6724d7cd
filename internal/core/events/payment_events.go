package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
)

type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID int64  `json:"payment_id"`
	OrderID   int64  `json:"order_id"`
	OrderCode int64  `json:"order_code"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

func NewPaymentCompletedEvent(paymentID, orderID, orderCode, amount int64, reference string) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id": paymentID,
				"order_id":   orderID,
				"order_code": orderCode,
				"amount":     amount,
				"reference":  reference,
			},
		},
		PaymentID: paymentID,
		OrderID:   orderID,
		OrderCode: orderCode,
		Amount:    amount,
		Reference: reference,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	OrderID       int64  `json:"order_id"`
	OrderCode     int64  `json:"order_code"`
	Amount        int64  `json:"amount"`
	FailureReason string `json:"failure_reason"`
}

func NewPaymentFailedEvent(paymentID, orderID, orderCode, amount int64, failureReason string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"order_id":       orderID,
				"order_code":     orderCode,
				"amount":         amount,
				"failure_reason": failureReason,
			},
		},
		PaymentID:     paymentID,
		OrderID:       orderID,
		OrderCode:     orderCode,
		Amount:        amount,
		FailureReason: failureReason,
	}
}
