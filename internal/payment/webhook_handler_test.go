package payment_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	paymentPkg "github.com/frahmantamala/licensestore/internal/payment"
)

type stubProcessor struct {
	body []byte
	err  error
}

func (s *stubProcessor) ProcessWebhook(ctx context.Context, body []byte) error {
	s.body = body
	return s.err
}

var _ = Describe("WebhookHandler", func() {
	var (
		processor *stubProcessor
		handler   *paymentPkg.WebhookHandler
		recorder  *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		processor = &stubProcessor{}
		handler = paymentPkg.NewWebhookHandler(processor)
		recorder = httptest.NewRecorder()
	})

	It("passes the raw body through and acknowledges", func() {
		payload := []byte(`{"code":"00","data":{"orderCode":1},"signature":"x"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/payos/webhook", bytes.NewReader(payload))

		handler.HandlePayOSWebhook(recorder, req)

		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(processor.body).To(Equal(payload))
		Expect(recorder.Body.String()).To(ContainSubstring(`"success":true`))
	})

	It("answers 400 for a bad signature", func() {
		processor.err = paymentPkg.ErrInvalidSignature
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/payos/webhook", bytes.NewReader([]byte(`{}`)))

		handler.HandlePayOSWebhook(recorder, req)

		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		Expect(recorder.Body.String()).To(ContainSubstring("INVALID_SIGNATURE"))
	})

	It("answers 500 when fulfilment fails so PayOS redelivers", func() {
		processor.err = errors.New("database is locked")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/payos/webhook", bytes.NewReader([]byte(`{}`)))

		handler.HandlePayOSWebhook(recorder, req)

		Expect(recorder.Code).To(Equal(http.StatusInternalServerError))
	})
})
