package payment

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("rawPayload", func() {
	var (
		logs    *bytes.Buffer
		service *Service
	)

	BeforeEach(func() {
		logs = &bytes.Buffer{}
		service = NewService(nil, nil, nil, Config{}, slog.New(slog.NewTextHandler(logs, nil)))
	})

	It("encodes the gateway payload as JSON", func() {
		Expect(service.rawPayload(map[string]int64{"orderCode": 42}, 7)).To(Equal(`{"orderCode":42}`))
		Expect(logs.Len()).To(BeZero())
	})

	It("logs and stores nothing when the payload cannot be encoded", func() {
		Expect(service.rawPayload(map[string]interface{}{"bad": func() {}}, 7)).To(BeEmpty())
		Expect(logs.String()).To(ContainSubstring("failed to encode gateway payload"))
		Expect(logs.String()).To(ContainSubstring("payment_id=7"))
	})
})
