package realtime

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/licensestore/internal/core/events"
)

// Notifier turns domain events into frames on the right hubs and groups.
type Notifier struct {
	hubs   *Hubs
	logger *slog.Logger
}

func NewNotifier(hubs *Hubs, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{hubs: hubs, logger: logger}
}

func (n *Notifier) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeOrderPaid, n.HandleOrderEvent)
	bus.Subscribe(events.EventTypeOrderCancelled, n.HandleOrderEvent)

	bus.Subscribe(events.EventTypeTicketCreated, n.HandleTicketEvent)
	bus.Subscribe(events.EventTypeTicketAssigned, n.HandleTicketEvent)
	bus.Subscribe(events.EventTypeTicketReplied, n.HandleTicketEvent)
	bus.Subscribe(events.EventTypeTicketStatus, n.HandleTicketEvent)
	bus.Subscribe(events.EventTypeTicketSLABreached, n.HandleTicketEvent)

	bus.Subscribe(events.EventTypeChatMessage, n.HandleChatMessage)
	bus.Subscribe(events.EventTypeChatSessionQueued, n.HandleSessionEvent)
	bus.Subscribe(events.EventTypeChatSessionClaim, n.HandleSessionEvent)
	bus.Subscribe(events.EventTypeChatSessionClosed, n.HandleSessionEvent)
}

func (n *Notifier) HandleOrderEvent(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.OrderEvent)
	if !ok {
		return nil
	}
	n.send(ctx, n.hubs.Notifications, UserGroup(e.UserID), event)
	return nil
}

func (n *Notifier) HandleTicketEvent(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.TicketEvent)
	if !ok {
		return nil
	}

	switch e.EventType() {
	case events.EventTypeTicketCreated:
		n.send(ctx, n.hubs.Queue, QueueGroup, event)
	case events.EventTypeTicketSLABreached:
		n.send(ctx, n.hubs.Queue, QueueGroup, event)
		if e.AssigneeID > 0 {
			n.send(ctx, n.hubs.Notifications, UserGroup(e.AssigneeID), event)
		}
	default:
		n.send(ctx, n.hubs.Notifications, UserGroup(e.UserID), event)
		if e.AssigneeID > 0 {
			n.send(ctx, n.hubs.Notifications, UserGroup(e.AssigneeID), event)
		}
	}
	return nil
}

func (n *Notifier) HandleChatMessage(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ChatMessageEvent)
	if !ok {
		return nil
	}
	n.send(ctx, n.hubs.Chat, SessionGroup(e.SessionID), event)
	return nil
}

func (n *Notifier) HandleSessionEvent(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ChatSessionEvent)
	if !ok {
		return nil
	}

	// the queue view changes on every session transition
	n.send(ctx, n.hubs.Queue, QueueGroup, event)
	if e.EventType() != events.EventTypeChatSessionQueued {
		n.send(ctx, n.hubs.Chat, SessionGroup(e.SessionID), event)
		n.send(ctx, n.hubs.Notifications, UserGroup(e.CustomerID), event)
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, hub *Hub, group string, event events.Event) {
	if err := hub.Broadcast(ctx, group, NewFrame(event.EventType(), event.Payload())); err != nil {
		n.logger.Error("failed to broadcast event",
			"error", err,
			"hub", hub.Name(),
			"group", group,
			"event_type", event.EventType())
	}
}
