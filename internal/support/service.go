package support

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	supportdm "github.com/frahmantamala/licensestore/internal/core/datamodel/support"
	"github.com/frahmantamala/licensestore/internal/core/events"
)

type Service struct {
	repo     RepositoryAPI
	eventBus events.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo RepositoryAPI, eventBus events.Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) CreateTicket(ctx context.Context, userID int64, dto CreateTicketDTO) (*Ticket, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	policy := PolicyFor(dto.Priority)
	t := &supportdm.Ticket{
		UserID:          userID,
		OrderID:         dto.OrderID,
		Subject:         dto.Subject,
		Description:     dto.Description,
		Priority:        dto.Priority,
		Status:          supportdm.TicketOpen,
		ResponseDueAt:   now.Add(policy.Response),
		ResolutionDueAt: now.Add(policy.Resolution),
		CreatedAt:       now,
	}
	if err := s.repo.CreateTicket(t); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.logger.Info("ticket created", "ticket_id", t.ID, "user_id", userID, "priority", t.Priority)
	s.publishTicket(ctx, events.EventTypeTicketCreated, t, "")
	return TicketFromDataModel(t, now), nil
}

func (s *Service) GetTicket(id int64) (*Ticket, error) {
	t, err := s.loadTicket(id)
	if err != nil {
		return nil, err
	}
	return TicketFromDataModel(t, s.now()), nil
}

func (s *Service) GetMyTicket(userID, id int64) (*Ticket, error) {
	t, err := s.loadTicket(id)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, ErrTicketNotFound
	}
	return TicketFromDataModel(t, s.now()), nil
}

func (s *Service) loadTicket(id int64) (*supportdm.Ticket, error) {
	t, err := s.repo.GetTicket(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if t == nil {
		return nil, ErrTicketNotFound
	}
	return t, nil
}

func (s *Service) ListTickets(filter TicketFilter) ([]*Ticket, int64, error) {
	rows, total, err := s.repo.ListTickets(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	now := s.now()
	out := make([]*Ticket, 0, len(rows))
	for i := range rows {
		out = append(out, TicketFromDataModel(&rows[i], now))
	}
	return out, total, nil
}

func (s *Service) ListMyTickets(userID int64, filter TicketFilter) ([]*Ticket, int64, error) {
	filter.UserID = userID
	filter.AssigneeID = 0
	return s.ListTickets(filter)
}

func (s *Service) AssignTicket(ctx context.Context, id int64, dto AssignDTO) (*Ticket, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	t, err := s.loadTicket(id)
	if err != nil {
		return nil, err
	}
	if t.Status == supportdm.TicketClosed {
		return nil, ErrInvalidTicketStatus
	}
	ok, err := s.repo.CanWorkTickets(dto.StaffID)
	if err != nil {
		return nil, fmt.Errorf("failed to check assignee: %w", err)
	}
	if !ok {
		return nil, ErrInvalidAssignee
	}
	if err := s.repo.AssignTicket(id, dto.StaffID); err != nil {
		return nil, fmt.Errorf("failed to assign ticket: %w", err)
	}

	t.AssigneeID = &dto.StaffID
	s.logger.Info("ticket assigned", "ticket_id", id, "staff_id", dto.StaffID)
	s.publishTicket(ctx, events.EventTypeTicketAssigned, t, "")
	return s.GetTicket(id)
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, dto StatusDTO) (*Ticket, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	t, err := s.loadTicket(id)
	if err != nil {
		return nil, err
	}
	if t.Status == dto.Status {
		return TicketFromDataModel(t, s.now()), nil
	}
	if !CanTransitionTicket(t.Status, dto.Status) {
		return nil, ErrInvalidTicketStatus
	}

	var resolvedAt *time.Time
	switch dto.Status {
	case supportdm.TicketResolved, supportdm.TicketClosed:
		resolvedAt = t.ResolvedAt
		if resolvedAt == nil {
			now := s.now()
			resolvedAt = &now
		}
	}
	if err := s.repo.UpdateTicketStatus(id, dto.Status, resolvedAt); err != nil {
		return nil, fmt.Errorf("failed to update ticket status: %w", err)
	}

	s.logger.Info("ticket status changed", "ticket_id", id, "from", t.Status, "to", dto.Status)
	t.Status = dto.Status
	t.ResolvedAt = resolvedAt
	s.publishTicket(ctx, events.EventTypeTicketStatus, t, "")
	return s.GetTicket(id)
}

// Reply adds a staff reply to any ticket.
func (s *Service) Reply(ctx context.Context, staffID, ticketID int64, dto ReplyDTO) (*Ticket, error) {
	return s.reply(ctx, staffID, ticketID, true, dto)
}

// ReplyMine adds a customer reply to one of their own tickets. Replying to a
// resolved ticket reopens it.
func (s *Service) ReplyMine(ctx context.Context, userID, ticketID int64, dto ReplyDTO) (*Ticket, error) {
	return s.reply(ctx, userID, ticketID, false, dto)
}

func (s *Service) reply(ctx context.Context, authorID, ticketID int64, staff bool, dto ReplyDTO) (*Ticket, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	t, err := s.loadTicket(ticketID)
	if err != nil {
		return nil, err
	}
	if !staff && t.UserID != authorID {
		return nil, ErrTicketNotFound
	}
	if t.Status == supportdm.TicketClosed {
		return nil, ErrInvalidTicketStatus
	}

	status := t.Status
	switch {
	case staff && status == supportdm.TicketOpen:
		status = supportdm.TicketInProgress
	case !staff && status == supportdm.TicketResolved:
		status = supportdm.TicketOpen
	}

	reply := &supportdm.TicketReply{
		TicketID:  ticketID,
		AuthorID:  authorID,
		IsStaff:   staff,
		Body:      dto.Body,
		CreatedAt: s.now(),
	}
	if err := s.repo.AddReply(reply, status); err != nil {
		return nil, fmt.Errorf("failed to add reply: %w", err)
	}

	s.logger.Info("ticket replied", "ticket_id", ticketID, "author_id", authorID, "staff", staff)
	t.Status = status
	if staff && t.FirstResponseAt == nil {
		t.FirstResponseAt = &reply.CreatedAt
	}
	s.publishTicket(ctx, events.EventTypeTicketReplied, t, "")
	return s.GetTicket(ticketID)
}

// SweepSLA publishes one breach event per overdue ticket and remembers that it
// did so.
func (s *Service) SweepSLA(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.repo.ListOverdueTickets(now, 500)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue tickets: %w", err)
	}

	notified := 0
	for i := range overdue {
		t := &overdue[i]
		_, _, state := TicketSLA(t, now)
		if state != SLABreached {
			continue
		}
		if err := s.repo.MarkBreachNotified(t.ID, now); err != nil {
			s.logger.Error("failed to mark SLA breach", "error", err, "ticket_id", t.ID)
			continue
		}
		s.logger.Warn("ticket SLA breached",
			"ticket_id", t.ID,
			"priority", t.Priority,
			"response_due_at", t.ResponseDueAt,
			"resolution_due_at", t.ResolutionDueAt)
		s.publishTicket(ctx, events.EventTypeTicketSLABreached, t, SLABreached)
		notified++
	}
	return notified, nil
}

func (s *Service) publishTicket(ctx context.Context, eventType string, t *supportdm.Ticket, slaState string) {
	if s.eventBus == nil {
		return
	}
	var assignee int64
	if t.AssigneeID != nil {
		assignee = *t.AssigneeID
	}
	if slaState == "" {
		_, _, slaState = TicketSLA(t, s.now())
	}
	event := events.NewTicketEvent(eventType, t.ID, t.UserID, assignee, t.Subject, t.Priority, t.Status, slaState)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish ticket event", "error", err, "event_type", eventType, "ticket_id", t.ID)
	}
}
