package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	HubNotifications = "notifications"
	HubChat          = "chat"
	HubQueue         = "queue"

	// QueueGroup is the single group of the queue hub; every staff connection joins it.
	QueueGroup = "queue"
)

func UserGroup(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func SessionGroup(sessionID int64) string {
	return fmt.Sprintf("session:%d", sessionID)
}

// Frame is what every connection receives.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
	At   time.Time   `json:"at"`
}

func NewFrame(frameType string, data interface{}) Frame {
	return Frame{Type: frameType, Data: data, At: time.Now().UTC()}
}

// Backplane carries broadcasts to hubs running in other processes.
// *cache.Client satisfies it.
type Backplane interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

type envelope struct {
	Origin string          `json:"origin"`
	Group  string          `json:"group"`
	Data   json.RawMessage `json:"data"`
}

// Hub groups connections and fans messages out to every member of a group.
// Delivery is best effort: a client whose send buffer is full is dropped.
type Hub struct {
	name      string
	instance  string
	backplane Backplane
	logger    *slog.Logger

	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
}

func NewHub(name string, backplane Backplane, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:      name,
		instance:  uuid.New().String(),
		backplane: backplane,
		logger:    logger.With("hub", name),
		groups:    make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) Name() string {
	return h.name
}

func (h *Hub) channel() string {
	return "realtime:" + h.name
}

func (h *Hub) Join(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[c] = struct{}{}
	c.groups[group] = struct{}{}
}

func (h *Hub) Leave(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(c, group)
}

func (h *Hub) leave(c *Client, group string) {
	delete(c.groups, group)
	if members, ok := h.groups[group]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// Remove takes the client out of every group and closes its send channel,
// which makes the write pump hang up.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	for group := range c.groups {
		h.leave(c, group)
	}
	c.closed = true
	close(c.send)
}

func (h *Hub) Members(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Broadcast delivers to local members of group and, with a backplane, to the
// same group on every other instance.
func (h *Hub) Broadcast(ctx context.Context, group string, frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	h.deliver(group, data)

	if h.backplane == nil {
		return nil
	}
	raw, err := json.Marshal(envelope{Origin: h.instance, Group: group, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := h.backplane.Publish(ctx, h.channel(), raw); err != nil {
		return fmt.Errorf("failed to publish to backplane: %w", err)
	}
	return nil
}

func (h *Hub) deliver(group string, data []byte) {
	var slow []*Client

	h.mu.RLock()
	for c := range h.groups[group] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow client", "user_id", c.UserID, "group", group)
		h.Remove(c)
	}
}

// Run relays backplane traffic from other instances until ctx ends. Without a
// backplane it just waits.
func (h *Hub) Run(ctx context.Context) error {
	if h.backplane == nil {
		<-ctx.Done()
		return nil
	}

	pubsub := h.backplane.Subscribe(ctx, h.channel())
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", h.channel(), err)
	}
	h.logger.Info("realtime backplane subscribed", "channel", h.channel())

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn("malformed backplane message", "error", err)
				continue
			}
			if env.Origin == h.instance {
				continue
			}
			h.deliver(env.Group, env.Data)
		}
	}
}

// Hubs is the set of hubs the server exposes.
type Hubs struct {
	Notifications *Hub
	Chat          *Hub
	Queue         *Hub
}

func NewHubs(backplane Backplane, logger *slog.Logger) *Hubs {
	return &Hubs{
		Notifications: NewHub(HubNotifications, backplane, logger),
		Chat:          NewHub(HubChat, backplane, logger),
		Queue:         NewHub(HubQueue, backplane, logger),
	}
}

// Run blocks until ctx ends or a hub fails.
func (hs *Hubs) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)
	for _, h := range []*Hub{hs.Notifications, hs.Chat, hs.Queue} {
		go func(h *Hub) {
			errCh <- h.Run(ctx)
		}(h)
	}

	var first error
	for range 3 {
		if err := <-errCh; err != nil && first == nil {
			first = err
			cancel()
		}
	}
	return first
}
