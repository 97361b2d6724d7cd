package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/auth"
	"github.com/frahmantamala/licensestore/internal/support"
	"github.com/frahmantamala/licensestore/internal/transport"
	"github.com/frahmantamala/licensestore/pkg/logger"
)

// ChatService is the part of the support service the chat socket needs.
type ChatService interface {
	CanJoinSession(sessionID, userID int64) (bool, error)
	SendMessage(ctx context.Context, sessionID, senderID int64, dto support.MessageDTO) (*support.Message, error)
}

// inbound is a frame sent by a chat client.
type inbound struct {
	Type string `json:"type"`
	Body string `json:"body"`
}

type Handler struct {
	*transport.BaseHandler
	Hubs     *Hubs
	Chat     ChatService
	cfg      internal.RealtimeConfig
	upgrader websocket.Upgrader
}

func NewHandler(hubs *Hubs, chat ChatService, cfg internal.RealtimeConfig, allowedOrigins string) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	h := &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Hubs:        hubs,
		Chat:        chat,
		cfg:         cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// originChecker accepts requests without an Origin header, any origin when the
// list contains "*", and otherwise only the listed origins.
func originChecker(allowed string) func(r *http.Request) bool {
	origins := make(map[string]struct{})
	wildcard := false
	for _, o := range strings.Split(allowed, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			wildcard = true
		}
		if o != "" {
			origins[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		_, ok := origins[strings.ToLower(strings.TrimRight(origin, "/"))]
		return ok
	}
}

// Notifications handles GET /ws/notifications. The caller joins its own user group.
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	h.serve(w, r, h.Hubs.Notifications, user, []string{UserGroup(user.ID)}, nil)
}

// Queue handles GET /ws/queue for staff watching incoming chats and tickets.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	h.serve(w, r, h.Hubs.Queue, user, []string{QueueGroup}, nil)
}

// ChatSession handles GET /ws/chat/{id}. Only the session's customer and the
// staff member who claimed it may connect.
func (h *Handler) ChatSession(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	sessionID, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	allowed, err := h.Chat.CanJoinSession(sessionID, user.ID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if !allowed {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	group := SessionGroup(sessionID)
	onFrame := func(ctx context.Context, c *Client, data []byte) {
		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.Reply(NewFrame("error", map[string]string{"message": "malformed frame"}))
			return
		}
		switch in.Type {
		case "message":
			// the stored message comes back to the whole group through the chat.message event
			if _, err := h.Chat.SendMessage(ctx, sessionID, c.UserID, support.MessageDTO{Body: in.Body}); err != nil {
				c.Reply(errorFrame(err))
			}
		case "typing":
			frame := NewFrame("typing", map[string]int64{"session_id": sessionID, "user_id": c.UserID})
			if err := h.Hubs.Chat.Broadcast(ctx, group, frame); err != nil {
				h.Logger.Warn("failed to relay typing frame", "error", err, "session_id", sessionID)
			}
		default:
			c.Reply(NewFrame("error", map[string]string{"message": "unknown frame type"}))
		}
	}
	h.serve(w, r, h.Hubs.Chat, user, []string{group}, onFrame)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, hub *Hub, user *auth.User, groups []string, onFrame FrameHandler) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the request
		h.Logger.Warn("websocket upgrade failed", "error", err, "hub", hub.Name())
		return
	}

	c := newClient(hub, conn, user.ID, user.Roles, h.cfg.SendBuffer)
	for _, g := range groups {
		hub.Join(c, g)
	}
	h.Logger.Debug("websocket connected", "hub", hub.Name(), "user_id", user.ID, "groups", groups)

	// the request context ends when the handler returns
	ctx := context.WithoutCancel(r.Context())
	go c.writePump(h.cfg)
	go c.readPump(ctx, h.cfg, onFrame, h.Logger)
}

func errorFrame(err error) Frame {
	if appErr, ok := internal.IsAppError(err); ok {
		return NewFrame("error", map[string]interface{}{"code": appErr.Code, "message": appErr.Message})
	}
	return NewFrame("error", map[string]string{"message": "internal error"})
}
