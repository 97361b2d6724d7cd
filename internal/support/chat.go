package support

import (
	"context"
	"errors"
	"fmt"

	supportdm "github.com/frahmantamala/licensestore/internal/core/datamodel/support"
	"github.com/frahmantamala/licensestore/internal/core/events"
)

const messagePageSize = 50

// OpenSession queues a chat for staff. A customer with a session that is still
// waiting or active gets that session back.
func (s *Service) OpenSession(ctx context.Context, customerID int64, dto OpenSessionDTO) (*Session, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetOpenSessionForCustomer(customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}
	if existing != nil {
		return SessionFromDataModel(existing), nil
	}

	cs := &supportdm.SupportChatSession{
		CustomerID: customerID,
		Subject:    dto.Subject,
		Status:     supportdm.SessionWaiting,
	}
	if err := s.repo.CreateSession(cs); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}

	s.logger.Info("chat session queued", "session_id", cs.ID, "customer_id", customerID)
	s.publishSession(ctx, events.EventTypeChatSessionQueued, cs)
	return SessionFromDataModel(cs), nil
}

func (s *Service) ListQueue(filter SessionFilter) ([]*Session, int64, error) {
	if filter.Status == "" {
		filter.Status = supportdm.SessionWaiting
	}
	return s.listSessions(filter)
}

func (s *Service) ListMySessions(customerID int64, filter SessionFilter) ([]*Session, int64, error) {
	filter.CustomerID = customerID
	filter.StaffID = 0
	return s.listSessions(filter)
}

func (s *Service) listSessions(filter SessionFilter) ([]*Session, int64, error) {
	rows, total, err := s.repo.ListSessions(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	out := make([]*Session, 0, len(rows))
	for i := range rows {
		out = append(out, SessionFromDataModel(&rows[i]))
	}
	return out, total, nil
}

// ClaimSession hands a waiting session to staffID. Only one of several
// concurrent claimers wins; the others get ErrSessionClaimed.
func (s *Service) ClaimSession(ctx context.Context, sessionID, staffID int64) (*Session, error) {
	cs, err := s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	if cs.Status == supportdm.SessionClosed {
		return nil, ErrSessionClosed
	}

	claimed, err := s.repo.ClaimSession(sessionID, staffID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim chat session: %w", err)
	}
	if !claimed {
		return nil, ErrSessionClaimed
	}

	cs, err = s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("chat session claimed", "session_id", sessionID, "staff_id", staffID)
	s.publishSession(ctx, events.EventTypeChatSessionClaim, cs)
	return SessionFromDataModel(cs), nil
}

func (s *Service) GetSession(sessionID, userID int64) (*Session, error) {
	cs, err := s.participantSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return SessionFromDataModel(cs), nil
}

// CanJoinSession reports whether userID may follow a session in realtime.
func (s *Service) CanJoinSession(sessionID, userID int64) (bool, error) {
	_, err := s.participantSession(sessionID, userID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotParticipant) || errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	return false, err
}

func (s *Service) SendMessage(ctx context.Context, sessionID, senderID int64, dto MessageDTO) (*Message, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	cs, err := s.participantSession(sessionID, senderID)
	if err != nil {
		return nil, err
	}
	if cs.Status == supportdm.SessionClosed {
		return nil, ErrSessionClosed
	}

	m := &supportdm.ChatMessage{
		SessionID: sessionID,
		SenderID:  senderID,
		Body:      dto.Body,
		CreatedAt: s.now(),
	}
	if err := s.repo.AddMessage(m); err != nil {
		return nil, fmt.Errorf("failed to store chat message: %w", err)
	}

	if s.eventBus != nil {
		event := events.NewChatMessageEvent(m.ID, sessionID, senderID, m.Body, m.CreatedAt)
		if err := s.eventBus.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish chat message", "error", err, "session_id", sessionID)
		}
	}
	return MessageFromDataModel(m), nil
}

// ListMessages pages backwards from beforeID (0 for the newest) and returns
// the page oldest first.
func (s *Service) ListMessages(sessionID, userID, beforeID int64) ([]*Message, error) {
	if _, err := s.participantSession(sessionID, userID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMessages(sessionID, beforeID, messagePageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	out := make([]*Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, MessageFromDataModel(&rows[i]))
	}
	return out, nil
}

func (s *Service) CloseSession(ctx context.Context, sessionID, userID int64) (*Session, error) {
	cs, err := s.participantSession(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if cs.Status == supportdm.SessionClosed {
		return SessionFromDataModel(cs), nil
	}

	if _, err := s.repo.CloseSession(sessionID, userID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to close chat session: %w", err)
	}
	cs, err = s.loadSession(sessionID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("chat session closed", "session_id", sessionID, "closed_by", userID)
	s.publishSession(ctx, events.EventTypeChatSessionClosed, cs)
	return SessionFromDataModel(cs), nil
}

func (s *Service) loadSession(id int64) (*supportdm.SupportChatSession, error) {
	cs, err := s.repo.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	if cs == nil {
		return nil, ErrSessionNotFound
	}
	return cs, nil
}

// participantSession loads a session the user takes part in: the customer who
// opened it or the staff member who claimed it.
func (s *Service) participantSession(id, userID int64) (*supportdm.SupportChatSession, error) {
	cs, err := s.loadSession(id)
	if err != nil {
		return nil, err
	}
	if cs.CustomerID == userID || (cs.StaffID != nil && *cs.StaffID == userID) {
		return cs, nil
	}
	return nil, ErrNotParticipant
}

func (s *Service) publishSession(ctx context.Context, eventType string, cs *supportdm.SupportChatSession) {
	if s.eventBus == nil {
		return
	}
	var staffID int64
	if cs.StaffID != nil {
		staffID = *cs.StaffID
	}
	event := events.NewChatSessionEvent(eventType, cs.ID, cs.CustomerID, staffID, cs.Status, cs.Subject)
	if err := s.eventBus.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish chat session event", "error", err, "event_type", eventType, "session_id", cs.ID)
	}
}
