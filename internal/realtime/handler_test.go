package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/auth"
	"github.com/frahmantamala/licensestore/internal/core/events"
	"github.com/frahmantamala/licensestore/internal/support"
)

type fakeChat struct {
	bus     *events.EventBus
	members map[int64]bool
	nextID  int64
}

func (f *fakeChat) CanJoinSession(sessionID, userID int64) (bool, error) {
	return f.members[userID], nil
}

func (f *fakeChat) SendMessage(ctx context.Context, sessionID, senderID int64, dto support.MessageDTO) (*support.Message, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	f.nextID++
	m := &support.Message{ID: f.nextID, SessionID: sessionID, SenderID: senderID, Body: dto.Body, CreatedAt: time.Now()}
	return m, f.bus.PublishSync(ctx, events.NewChatMessageEvent(m.ID, sessionID, senderID, m.Body, m.CreatedAt))
}

var _ = ginkgo.Describe("Handler", func() {
	var (
		hubs   *Hubs
		server *httptest.Server
	)

	cfg := internal.RealtimeConfig{
		WriteWait:      time.Second,
		PongWait:       5 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     8,
	}

	dial := func(path string, userID int64) (*websocket.Conn, *http.Response, error) {
		url := "ws" + strings.TrimPrefix(server.URL, "http") + path + "?as=" + strconv.FormatInt(userID, 10)
		return websocket.DefaultDialer.Dial(url, nil)
	}

	read := func(conn *websocket.Conn) Frame {
		gomega.Expect(conn.SetReadDeadline(time.Now().Add(2 * time.Second))).To(gomega.Succeed())
		var f Frame
		gomega.Expect(conn.ReadJSON(&f)).To(gomega.Succeed())
		return f
	}

	ginkgo.BeforeEach(func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		hubs = NewHubs(nil, lg)
		bus := events.NewEventBus(lg)
		NewNotifier(hubs, lg).RegisterEventHandlers(bus)
		chat := &fakeChat{bus: bus, members: map[int64]bool{7: true, 20: true}}

		h := NewHandler(hubs, chat, cfg, "https://shop.example.vn")
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				id, _ := strconv.ParseInt(req.URL.Query().Get("as"), 10, 64)
				ctx := auth.ContextWithUser(req.Context(), &auth.User{ID: id, Roles: []string{auth.RoleCustomer}})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		r.Get("/ws/notifications", h.Notifications)
		r.Get("/ws/chat/{id}", h.ChatSession)
		server = httptest.NewServer(r)
	})

	ginkgo.AfterEach(func() {
		server.Close()
	})

	ginkgo.It("pushes notifications to the connected user", func() {
		conn, _, err := dial("/ws/notifications", 7)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		defer conn.Close()

		gomega.Eventually(func() int { return hubs.Notifications.Members(UserGroup(7)) }).Should(gomega.Equal(1))
		gomega.Expect(hubs.Notifications.Broadcast(context.Background(), UserGroup(7), NewFrame("order.paid", nil))).To(gomega.Succeed())

		gomega.Expect(read(conn).Type).To(gomega.Equal("order.paid"))
	})

	ginkgo.It("relays chat messages between participants", func() {
		customer, _, err := dial("/ws/chat/3", 7)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		defer customer.Close()
		staff, _, err := dial("/ws/chat/3", 20)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		defer staff.Close()
		gomega.Eventually(func() int { return hubs.Chat.Members(SessionGroup(3)) }).Should(gomega.Equal(2))

		gomega.Expect(customer.WriteJSON(map[string]string{"type": "message", "body": "my key is rejected"})).To(gomega.Succeed())

		f := read(staff)
		gomega.Expect(f.Type).To(gomega.Equal(events.EventTypeChatMessage))
		gomega.Expect(f.Data).To(gomega.HaveKeyWithValue("body", "my key is rejected"))
		gomega.Expect(read(customer).Type).To(gomega.Equal(events.EventTypeChatMessage))
	})

	ginkgo.It("answers invalid frames on the sender only", func() {
		conn, _, err := dial("/ws/chat/3", 7)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		defer conn.Close()

		gomega.Expect(conn.WriteJSON(map[string]string{"type": "message", "body": "   "})).To(gomega.Succeed())
		f := read(conn)
		gomega.Expect(f.Type).To(gomega.Equal("error"))
		gomega.Expect(f.Data).To(gomega.HaveKeyWithValue("code", "VALIDATION_FAILED"))
	})

	ginkgo.It("refuses outsiders before upgrading", func() {
		_, resp, err := dial("/ws/chat/3", 99)
		gomega.Expect(err).To(gomega.MatchError(websocket.ErrBadHandshake))
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("checks the origin", func() {
		check := originChecker("https://shop.example.vn, https://admin.example.vn/")
		req := httptest.NewRequest(http.MethodGet, "http://api.example.vn/ws/queue", nil)

		req.Header.Set("Origin", "https://admin.example.vn")
		gomega.Expect(check(req)).To(gomega.BeTrue())
		req.Header.Set("Origin", "https://evil.example.com")
		gomega.Expect(check(req)).To(gomega.BeFalse())
		req.Header.Set("Origin", "http://api.example.vn")
		gomega.Expect(check(req)).To(gomega.BeTrue())
	})
})
