package paymentgateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	payos "github.com/frahmantamala/licensestore/internal/core/datamodel/paymentgateway"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Client", func() {
	var (
		server  *httptest.Server
		client  *Client
		handler http.HandlerFunc
	)

	ginkgo.BeforeEach(func() {
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		ginkgo.DeferCleanup(server.Close)
		client = NewClient(Config{BaseURL: server.URL, ClientID: "cid", APIKey: "key", ChecksumKey: testChecksumKey, Timeout: 2 * time.Second}, nil)
	})

	request := func() *payos.CreatePaymentLinkRequest {
		return &payos.CreatePaymentLinkRequest{
			OrderCode:   1001,
			Amount:      150000,
			Description: "DH 1001",
			CancelURL:   "https://shop.vn/cancel",
			ReturnURL:   "https://shop.vn/return",
		}
	}

	ginkgo.It("creates a signed payment link with merchant headers", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			defer ginkgo.GinkgoRecover()
			gomega.Expect(r.Method).To(gomega.Equal(http.MethodPost))
			gomega.Expect(r.URL.Path).To(gomega.Equal("/v2/payment-requests"))
			gomega.Expect(r.Header.Get("x-client-id")).To(gomega.Equal("cid"))
			gomega.Expect(r.Header.Get("x-api-key")).To(gomega.Equal("key"))

			var body payos.CreatePaymentLinkRequest
			gomega.Expect(json.NewDecoder(r.Body).Decode(&body)).To(gomega.Succeed())
			gomega.Expect(body.Signature).To(gomega.Equal("63c761764e3f2f14a49830e77563c4ccf419dd2eb44e0a881fd4e40f351bac30"))

			_, _ = w.Write([]byte(`{"code":"00","desc":"success","data":{"orderCode":1001,"amount":150000,"paymentLinkId":"abc123","status":"PENDING","checkoutUrl":"https://pay.payos.vn/web/abc123","qrCode":"000201"}}`))
		}

		link, err := client.CreatePaymentLink(context.Background(), request())
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(link.PaymentLinkID).To(gomega.Equal("abc123"))
		gomega.Expect(link.CheckoutURL).To(gomega.ContainSubstring("abc123"))
	})

	ginkgo.It("returns APIError for non-success envelopes", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code":"231","desc":"Đơn thanh toán đã tồn tại","data":null}`))
		}

		_, err := client.CreatePaymentLink(context.Background(), request())
		var apiErr *APIError
		gomega.Expect(errors.As(err, &apiErr)).To(gomega.BeTrue())
		gomega.Expect(apiErr.Code).To(gomega.Equal("231"))
	})

	ginkgo.It("validates requests before calling out", func() {
		req := request()
		req.Description = "this description is much too long for payos"
		_, err := client.CreatePaymentLink(context.Background(), req)
		gomega.Expect(err).To(gomega.MatchError(gomega.ContainSubstring("25 characters")))
	})

	ginkgo.It("reads and cancels links by order code", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v2/payment-requests/1001":
				_, _ = w.Write([]byte(`{"code":"00","desc":"success","data":{"id":"abc123","orderCode":1001,"amount":150000,"amountPaid":150000,"status":"PAID"}}`))
			case "/v2/payment-requests/1001/cancel":
				_, _ = w.Write([]byte(`{"code":"00","desc":"success","data":{"id":"abc123","orderCode":1001,"status":"CANCELLED"}}`))
			default:
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"code":"101","desc":"not found"}`))
			}
		}

		info, err := client.GetPaymentLink(context.Background(), 1001)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(info.Status).To(gomega.Equal(payos.LinkStatusPaid))

		info, err = client.CancelPaymentLink(context.Background(), 1001, "customer cancelled")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(info.Status).To(gomega.Equal(payos.LinkStatusCancelled))

		_, err = client.GetPaymentLink(context.Background(), 42)
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("verifies webhook bodies", func() {
		body := []byte(`{"code":"00","desc":"success","success":true,"data":` + webhookData + `,"signature":"` + webhookSig + `"}`)
		data, err := client.VerifyWebhook(body)
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(data.OrderCode).To(gomega.Equal(int64(1001)))
		gomega.Expect(data.Paid()).To(gomega.BeTrue())

		_, err = client.VerifyWebhook([]byte(`{"code":"00","data":` + webhookData + `,"signature":"deadbeef"}`))
		gomega.Expect(errors.Is(err, ErrInvalidSignature)).To(gomega.BeTrue())
	})
})

var _ = ginkgo.Describe("Pool", func() {
	ginkgo.It("runs every submitted job", func() {
		pool := NewPool(3, 10, nil)
		defer pool.Shutdown()

		var ran int32
		for i := 0; i < 10; i++ {
			gomega.Expect(pool.Submit(Job{Name: "poll", Run: func(context.Context) { atomic.AddInt32(&ran, 1) }})).To(gomega.Succeed())
		}
		pool.Drain()
		gomega.Expect(atomic.LoadInt32(&ran)).To(gomega.Equal(int32(10)))
	})

	ginkgo.It("rejects work when the queue is full", func() {
		pool := NewPool(1, 1, nil)
		release := make(chan struct{})
		defer func() {
			close(release)
			pool.Drain()
			pool.Shutdown()
		}()

		started := make(chan struct{})
		block := Job{Name: "block", Run: func(context.Context) { close(started); <-release }}
		gomega.Expect(pool.Submit(block)).To(gomega.Succeed())
		gomega.Eventually(started).Should(gomega.BeClosed())

		gomega.Expect(pool.Submit(Job{Name: "queued", Run: func(context.Context) {}})).To(gomega.Succeed())
		gomega.Eventually(func() error {
			return pool.Submit(Job{Name: "overflow", Run: func(context.Context) {}})
		}).Should(gomega.MatchError(ErrQueueFull))
	})
})
