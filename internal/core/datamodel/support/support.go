package support

import "time"

const (
	TicketOpen       = "open"
	TicketInProgress = "in_progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"

	SessionWaiting = "waiting"
	SessionActive  = "active"
	SessionClosed  = "closed"
)

type Ticket struct {
	ID               int64         `gorm:"primaryKey"`
	UserID           int64         `gorm:"column:user_id;not null;index"`
	AssigneeID       *int64        `gorm:"column:assignee_id;index"`
	OrderID          *int64        `gorm:"column:order_id"`
	Subject          string        `gorm:"column:subject;not null"`
	Description      string        `gorm:"column:description;not null"`
	Priority         string        `gorm:"column:priority;not null;default:medium"`
	Status           string        `gorm:"column:status;not null;default:open;index"`
	ResponseDueAt    time.Time     `gorm:"column:response_due_at;not null"`
	ResolutionDueAt  time.Time     `gorm:"column:resolution_due_at;not null"`
	FirstResponseAt  *time.Time    `gorm:"column:first_response_at"`
	ResolvedAt       *time.Time    `gorm:"column:resolved_at"`
	BreachNotifiedAt *time.Time    `gorm:"column:breach_notified_at"`
	CreatedAt        time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time     `gorm:"column:updated_at;autoUpdateTime"`
	Replies          []TicketReply `gorm:"foreignKey:TicketID"`
}

type TicketReply struct {
	ID        int64     `gorm:"primaryKey"`
	TicketID  int64     `gorm:"column:ticket_id;not null;index"`
	AuthorID  int64     `gorm:"column:author_id;not null"`
	IsStaff   bool      `gorm:"column:is_staff;not null"`
	Body      string    `gorm:"column:body;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

type SupportChatSession struct {
	ID         int64      `gorm:"primaryKey"`
	CustomerID int64      `gorm:"column:customer_id;not null;index"`
	StaffID    *int64     `gorm:"column:staff_id;index"`
	Subject    string     `gorm:"column:subject"`
	Status     string     `gorm:"column:status;not null;default:waiting;index"`
	ClaimedAt  *time.Time `gorm:"column:claimed_at"`
	ClosedAt   *time.Time `gorm:"column:closed_at"`
	ClosedBy   *int64     `gorm:"column:closed_by"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

type ChatMessage struct {
	ID        int64     `gorm:"primaryKey"`
	SessionID int64     `gorm:"column:session_id;not null;index"`
	SenderID  int64     `gorm:"column:sender_id;not null"`
	Body      string    `gorm:"column:body;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
