package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/licensestore/internal/core/events"
)

func TestRealtime(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Realtime Suite")
}

func decode(data []byte) Frame {
	var f Frame
	gomega.Expect(json.Unmarshal(data, &f)).To(gomega.Succeed())
	return f
}

var _ = ginkgo.Describe("Hub", func() {
	var (
		hub *Hub
		ctx context.Context
		lg  *slog.Logger
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		lg = slog.New(slog.NewTextHandler(io.Discard, nil))
		hub = NewHub(HubChat, nil, lg)
	})

	ginkgo.It("relays to every member of a group and nobody else", func() {
		a := newClient(hub, nil, 1, nil, 4)
		b := newClient(hub, nil, 2, nil, 4)
		outsider := newClient(hub, nil, 3, nil, 4)
		hub.Join(a, SessionGroup(9))
		hub.Join(b, SessionGroup(9))
		hub.Join(outsider, SessionGroup(10))

		gomega.Expect(hub.Broadcast(ctx, SessionGroup(9), NewFrame("chat.message", "hi"))).To(gomega.Succeed())

		gomega.Expect(decode(<-a.send).Type).To(gomega.Equal("chat.message"))
		gomega.Expect(decode(<-b.send).Data).To(gomega.Equal("hi"))
		gomega.Expect(outsider.send).To(gomega.BeEmpty())
	})

	ginkgo.It("forgets empty groups", func() {
		c := newClient(hub, nil, 1, nil, 1)
		hub.Join(c, QueueGroup)
		gomega.Expect(hub.Members(QueueGroup)).To(gomega.Equal(1))

		hub.Leave(c, QueueGroup)
		gomega.Expect(hub.Members(QueueGroup)).To(gomega.Equal(0))
		gomega.Expect(hub.groups).ToNot(gomega.HaveKey(QueueGroup))
	})

	ginkgo.It("drops a client whose buffer is full", func() {
		slow := newClient(hub, nil, 1, nil, 1)
		fast := newClient(hub, nil, 2, nil, 4)
		hub.Join(slow, UserGroup(1))
		hub.Join(slow, QueueGroup)
		hub.Join(fast, UserGroup(1))

		gomega.Expect(hub.Broadcast(ctx, UserGroup(1), NewFrame("a", nil))).To(gomega.Succeed())
		gomega.Expect(hub.Broadcast(ctx, UserGroup(1), NewFrame("b", nil))).To(gomega.Succeed())

		gomega.Expect(hub.Members(UserGroup(1))).To(gomega.Equal(1))
		gomega.Expect(hub.Members(QueueGroup)).To(gomega.Equal(0))
		gomega.Expect(fast.send).To(gomega.HaveLen(2))

		// the buffered frame is still readable, then the channel reports closed
		gomega.Expect(decode(<-slow.send).Type).To(gomega.Equal("a"))
		_, open := <-slow.send
		gomega.Expect(open).To(gomega.BeFalse())
	})

	ginkgo.It("ignores joins after removal", func() {
		c := newClient(hub, nil, 1, nil, 1)
		hub.Remove(c)
		hub.Remove(c)
		hub.Join(c, QueueGroup)
		gomega.Expect(hub.Members(QueueGroup)).To(gomega.Equal(0))
	})

	ginkgo.It("returns from Run when the context ends without a backplane", func() {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- hub.Run(runCtx) }()
		cancel()
		gomega.Eventually(done).Should(gomega.Receive(gomega.BeNil()))
	})
})

var _ = ginkgo.Describe("Notifier", func() {
	var (
		hubs *Hubs
		bus  *events.EventBus
		ctx  context.Context
	)

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		hubs = NewHubs(nil, lg)
		bus = events.NewEventBus(lg)
		NewNotifier(hubs, lg).RegisterEventHandlers(bus)
	})

	ginkgo.It("sends order updates to the buyer", func() {
		buyer := newClient(hubs.Notifications, nil, 7, nil, 4)
		hubs.Notifications.Join(buyer, UserGroup(7))

		gomega.Expect(bus.PublishSync(ctx, events.NewOrderEvent(events.EventTypeOrderPaid, 1, 1001, 7, "Paid", 150000, ""))).To(gomega.Succeed())

		f := decode(<-buyer.send)
		gomega.Expect(f.Type).To(gomega.Equal(events.EventTypeOrderPaid))
		gomega.Expect(f.Data).To(gomega.HaveKeyWithValue("order_code", gomega.BeNumerically("==", 1001)))
	})

	ginkgo.It("puts new tickets and queued chats on the queue", func() {
		staff := newClient(hubs.Queue, nil, 20, nil, 4)
		hubs.Queue.Join(staff, QueueGroup)

		gomega.Expect(bus.PublishSync(ctx, events.NewTicketEvent(events.EventTypeTicketCreated, 1, 7, 0, "help", "high", "open", "on_track"))).To(gomega.Succeed())
		gomega.Expect(bus.PublishSync(ctx, events.NewChatSessionEvent(events.EventTypeChatSessionQueued, 3, 7, 0, "waiting", ""))).To(gomega.Succeed())

		gomega.Expect(decode(<-staff.send).Type).To(gomega.Equal(events.EventTypeTicketCreated))
		gomega.Expect(decode(<-staff.send).Type).To(gomega.Equal(events.EventTypeChatSessionQueued))
	})

	ginkgo.It("tells the customer when staff picks up the chat", func() {
		customer := newClient(hubs.Notifications, nil, 7, nil, 4)
		hubs.Notifications.Join(customer, UserGroup(7))
		room := newClient(hubs.Chat, nil, 7, nil, 4)
		hubs.Chat.Join(room, SessionGroup(3))

		gomega.Expect(bus.PublishSync(ctx, events.NewChatSessionEvent(events.EventTypeChatSessionClaim, 3, 7, 20, "active", ""))).To(gomega.Succeed())

		gomega.Expect(decode(<-customer.send).Type).To(gomega.Equal(events.EventTypeChatSessionClaim))
		gomega.Expect(decode(<-room.send).Type).To(gomega.Equal(events.EventTypeChatSessionClaim))
	})

	ginkgo.It("notifies the assignee of an SLA breach", func() {
		assignee := newClient(hubs.Notifications, nil, 20, nil, 4)
		hubs.Notifications.Join(assignee, UserGroup(20))

		gomega.Expect(bus.PublishSync(ctx, events.NewTicketEvent(events.EventTypeTicketSLABreached, 1, 7, 20, "help", "urgent", "open", "breached"))).To(gomega.Succeed())

		gomega.Expect(decode(<-assignee.send).Type).To(gomega.Equal(events.EventTypeTicketSLABreached))
	})
})
