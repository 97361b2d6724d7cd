package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTicketCreated     = "ticket.created"
	EventTypeTicketAssigned    = "ticket.assigned"
	EventTypeTicketReplied     = "ticket.replied"
	EventTypeTicketStatus      = "ticket.status_changed"
	EventTypeTicketSLABreached = "ticket.sla_breached"

	EventTypeChatMessage       = "chat.message"
	EventTypeChatSessionQueued = "chat.session_queued"
	EventTypeChatSessionClaim  = "chat.session_claimed"
	EventTypeChatSessionClosed = "chat.session_closed"
)

type TicketEvent struct {
	BaseEvent
	TicketID   int64  `json:"ticket_id"`
	UserID     int64  `json:"user_id"`
	AssigneeID int64  `json:"assignee_id,omitempty"`
	Subject    string `json:"subject"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	SLAState   string `json:"sla_state,omitempty"`
}

func NewTicketEvent(eventType string, ticketID, userID, assigneeID int64, subject, priority, status, slaState string) *TicketEvent {
	return &TicketEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"ticket_id":   ticketID,
				"user_id":     userID,
				"assignee_id": assigneeID,
				"subject":     subject,
				"priority":    priority,
				"status":      status,
				"sla_state":   slaState,
			},
		},
		TicketID:   ticketID,
		UserID:     userID,
		AssigneeID: assigneeID,
		Subject:    subject,
		Priority:   priority,
		Status:     status,
		SLAState:   slaState,
	}
}

type ChatSessionEvent struct {
	BaseEvent
	SessionID  int64  `json:"session_id"`
	CustomerID int64  `json:"customer_id"`
	StaffID    int64  `json:"staff_id,omitempty"`
	Status     string `json:"status"`
	Subject    string `json:"subject,omitempty"`
}

func NewChatSessionEvent(eventType string, sessionID, customerID, staffID int64, status, subject string) *ChatSessionEvent {
	return &ChatSessionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"session_id":  sessionID,
				"customer_id": customerID,
				"staff_id":    staffID,
				"status":      status,
				"subject":     subject,
			},
		},
		SessionID:  sessionID,
		CustomerID: customerID,
		StaffID:    staffID,
		Status:     status,
		Subject:    subject,
	}
}

type ChatMessageEvent struct {
	BaseEvent
	MessageID int64     `json:"message_id"`
	SessionID int64     `json:"session_id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

func NewChatMessageEvent(messageID, sessionID, senderID int64, body string, sentAt time.Time) *ChatMessageEvent {
	return &ChatMessageEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeChatMessage,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"message_id": messageID,
				"session_id": sessionID,
				"sender_id":  senderID,
				"body":       body,
				"sent_at":    sentAt,
			},
		},
		MessageID: messageID,
		SessionID: sessionID,
		SenderID:  senderID,
		Body:      body,
		SentAt:    sentAt,
	}
}
