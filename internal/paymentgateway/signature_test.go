package paymentgateway

import (
	"testing"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func TestPaymentGateway(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Payment Gateway Suite")
}

const (
	testChecksumKey = "checksum-key"
	webhookData     = `{"orderCode":1001,"amount":150000,"description":"DH 1001","accountNumber":"12345678","reference":"FT123","transactionDateTime":"2024-05-01 10:00:00","currency":"VND","paymentLinkId":"abc123","code":"00","desc":"success","counterAccountBankId":null}`
	webhookSig      = "cd879266ba0a0efdf361de65f009175330f18037944f9fa5af48b63427f03c6c"
)

var _ = ginkgo.Describe("Signatures", func() {
	ginkgo.It("signs payment requests over the five sorted fields", func() {
		sig := SignPaymentRequest(testChecksumKey, 150000, "https://shop.vn/cancel", "DH 1001", 1001, "https://shop.vn/return")
		gomega.Expect(sig).To(gomega.Equal("63c761764e3f2f14a49830e77563c4ccf419dd2eb44e0a881fd4e40f351bac30"))
	})

	ginkgo.It("canonicalizes data with sorted keys and empty nulls", func() {
		canonical, err := CanonicalData([]byte(webhookData))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(canonical).To(gomega.Equal("accountNumber=12345678&amount=150000&code=00&counterAccountBankId=&currency=VND&desc=success&description=DH 1001&orderCode=1001&paymentLinkId=abc123&reference=FT123&transactionDateTime=2024-05-01 10:00:00"))
	})

	ginkgo.It("JSON-encodes nested values", func() {
		canonical, err := CanonicalData([]byte(`{"b":[{"y":1,"x":"<a>"}],"a":true,"c":"null"}`))
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(canonical).To(gomega.Equal(`a=true&b=[{"x":"<a>","y":1}]&c=`))
	})

	ginkgo.It("verifies a genuine signature regardless of case", func() {
		gomega.Expect(VerifyData(testChecksumKey, []byte(webhookData), webhookSig)).To(gomega.Succeed())
		gomega.Expect(VerifyData(testChecksumKey, []byte(webhookData), "CD879266BA0A0EFDF361DE65F009175330F18037944F9FA5AF48B63427F03C6C")).To(gomega.Succeed())
	})

	ginkgo.It("rejects tampered data and wrong keys", func() {
		tampered := `{"orderCode":1001,"amount":1,"description":"DH 1001","accountNumber":"12345678","reference":"FT123","transactionDateTime":"2024-05-01 10:00:00","currency":"VND","paymentLinkId":"abc123","code":"00","desc":"success","counterAccountBankId":null}`
		gomega.Expect(VerifyData(testChecksumKey, []byte(tampered), webhookSig)).To(gomega.MatchError(ErrInvalidSignature))
		gomega.Expect(VerifyData("other", []byte(webhookData), webhookSig)).To(gomega.MatchError(ErrInvalidSignature))
	})

	ginkgo.It("fails on data that is not an object", func() {
		_, err := SignData(testChecksumKey, []byte(`[1,2]`))
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})
