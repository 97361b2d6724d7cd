package support

import (
	"time"

	"github.com/frahmantamala/licensestore/internal"
	supportdm "github.com/frahmantamala/licensestore/internal/core/datamodel/support"
)

type Reply struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	IsStaff   bool      `json:"is_staff"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Ticket struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	AssigneeID      *int64     `json:"assignee_id,omitempty"`
	OrderID         *int64     `json:"order_id,omitempty"`
	Subject         string     `json:"subject"`
	Description     string     `json:"description"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	ResponseDueAt   time.Time  `json:"response_due_at"`
	ResolutionDueAt time.Time  `json:"resolution_due_at"`
	FirstResponseAt *time.Time `json:"first_response_at,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResponseSLA     string     `json:"response_sla"`
	ResolutionSLA   string     `json:"resolution_sla"`
	SLAState        string     `json:"sla_state"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Replies         []Reply    `json:"replies,omitempty"`
}

func TicketFromDataModel(t *supportdm.Ticket, now time.Time) *Ticket {
	response, resolution, overall := TicketSLA(t, now)
	out := &Ticket{
		ID:              t.ID,
		UserID:          t.UserID,
		AssigneeID:      t.AssigneeID,
		OrderID:         t.OrderID,
		Subject:         t.Subject,
		Description:     t.Description,
		Priority:        t.Priority,
		Status:          t.Status,
		ResponseDueAt:   t.ResponseDueAt,
		ResolutionDueAt: t.ResolutionDueAt,
		FirstResponseAt: t.FirstResponseAt,
		ResolvedAt:      t.ResolvedAt,
		ResponseSLA:     response,
		ResolutionSLA:   resolution,
		SLAState:        overall,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	for _, r := range t.Replies {
		out.Replies = append(out.Replies, Reply{
			ID:        r.ID,
			AuthorID:  r.AuthorID,
			IsStaff:   r.IsStaff,
			Body:      r.Body,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

type Session struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	StaffID    *int64     `json:"staff_id,omitempty"`
	Subject    string     `json:"subject"`
	Status     string     `json:"status"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func SessionFromDataModel(s *supportdm.SupportChatSession) *Session {
	return &Session{
		ID:         s.ID,
		CustomerID: s.CustomerID,
		StaffID:    s.StaffID,
		Subject:    s.Subject,
		Status:     s.Status,
		ClaimedAt:  s.ClaimedAt,
		ClosedAt:   s.ClosedAt,
		CreatedAt:  s.CreatedAt,
	}
}

type Message struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func MessageFromDataModel(m *supportdm.ChatMessage) *Message {
	return &Message{
		ID:        m.ID,
		SessionID: m.SessionID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}

type TicketFilter struct {
	UserID     int64
	AssigneeID int64
	Status     string
	Priority   string
	Search     string
	Limit      int
	Offset     int
}

type SessionFilter struct {
	CustomerID int64
	StaffID    int64
	Status     string
	Limit      int
	Offset     int
}

type RepositoryAPI interface {
	CreateTicket(t *supportdm.Ticket) error
	GetTicket(id int64) (*supportdm.Ticket, error)
	ListTickets(filter TicketFilter) ([]supportdm.Ticket, int64, error)
	AssignTicket(id, staffID int64) error
	// CanWorkTickets reports whether userID is an active user holding an active
	// TICKET grant through an active role.
	CanWorkTickets(userID int64) (bool, error)
	UpdateTicketStatus(id int64, status string, resolvedAt *time.Time) error
	// AddReply stores the reply; a staff reply also stamps the first response
	// time when it is still empty and moves an open ticket to in_progress.
	AddReply(reply *supportdm.TicketReply, ticketStatus string) error
	ListOverdueTickets(now time.Time, limit int) ([]supportdm.Ticket, error)
	MarkBreachNotified(id int64, at time.Time) error

	CreateSession(s *supportdm.SupportChatSession) error
	GetSession(id int64) (*supportdm.SupportChatSession, error)
	GetOpenSessionForCustomer(customerID int64) (*supportdm.SupportChatSession, error)
	ListSessions(filter SessionFilter) ([]supportdm.SupportChatSession, int64, error)
	// ClaimSession assigns a waiting session to staffID. It reports false when
	// the session was no longer waiting.
	ClaimSession(id, staffID int64, at time.Time) (bool, error)
	CloseSession(id, closedBy int64, at time.Time) (bool, error)
	AddMessage(m *supportdm.ChatMessage) error
	ListMessages(sessionID, beforeID int64, limit int) ([]supportdm.ChatMessage, error)
}

var ticketTransitions = map[string][]string{
	supportdm.TicketOpen:       {supportdm.TicketInProgress, supportdm.TicketResolved, supportdm.TicketClosed},
	supportdm.TicketInProgress: {supportdm.TicketOpen, supportdm.TicketResolved, supportdm.TicketClosed},
	supportdm.TicketResolved:   {supportdm.TicketOpen, supportdm.TicketInProgress, supportdm.TicketClosed},
}

func CanTransitionTicket(from, to string) bool {
	for _, next := range ticketTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var (
	ErrTicketNotFound      = internal.NewNotFoundError("Ticket not found", internal.ErrCodeTicketNotFound)
	ErrInvalidTicketStatus = internal.NewValidationError("Ticket status does not allow this operation", internal.ErrCodeInvalidTicketStatus)
	ErrInvalidAssignee     = internal.NewValidationFieldError("staff_id", "Assignee must be an active staff member", internal.ErrCodeInvalidAssignee)
	ErrSessionNotFound     = internal.NewNotFoundError("Chat session not found", internal.ErrCodeSessionNotFound)
	ErrSessionClaimed      = internal.NewConflictError("Chat session was already claimed", internal.ErrCodeSessionClaimed)
	ErrSessionClosed       = internal.NewConflictError("Chat session is closed", internal.ErrCodeSessionClosed)
	ErrNotParticipant      = internal.NewForbiddenError("You are not a participant of this conversation", internal.ErrCodeAccessDenied)
)
