package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/text/language"

	"github.com/frahmantamala/licensestore/internal"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = Describe("Locale", func() {
	DescribeTable("picks the response language",
		func(header string, want language.Tag) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Accept-Language", header)
			}
			Expect(Locale(req)).To(Equal(mustBase(want)))
		},
		Entry("no header", "", language.Vietnamese),
		Entry("english", "en-US,en;q=0.9", language.English),
		Entry("vietnamese preferred", "vi-VN,en;q=0.5", language.Vietnamese),
		Entry("unsupported language", "fr-FR", language.Vietnamese),
		Entry("garbage", ";;;", language.Vietnamese),
	)
})

var _ = Describe("LocalizedAuthErrors", func() {
	serve := func(h http.HandlerFunc, lang string) (*httptest.ResponseRecorder, internal.Response) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", lang)
		rec := httptest.NewRecorder()
		LocalizedAuthErrors(h).ServeHTTP(rec, req)

		var body internal.Response
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		return rec, body
	}

	It("fills an empty 403 with an english envelope", func() {
		rec, body := serve(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}, "en")

		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(body.Error).ToNot(BeNil())
		Expect(body.Error.Code).To(Equal(internal.ErrCodeAccessDenied))
		Expect(body.Error.Message).To(ContainSubstring("permission"))
	})

	It("fills an empty 401 in vietnamese by default", func() {
		rec, body := serve(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, "")

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(body.Error.Code).To(Equal(internal.ErrCodeInvalidToken))
		Expect(body.Error.Message).To(ContainSubstring("đăng nhập"))
	})

	It("leaves handler-written bodies alone", func() {
		rec, _ := serve(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"custom":true}`))
		}, "en")

		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(Equal(`{"custom":true}`))
	})

	It("passes other statuses through", func() {
		rec, _ := serve(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}, "en")

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Body.Len()).To(BeZero())
	})
})

var _ = Describe("CORS", func() {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	It("echoes a listed origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://shop.example")
		rec := httptest.NewRecorder()
		CORS("https://shop.example/, https://admin.example")(next).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://shop.example"))
	})

	It("ignores an unlisted origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		CORS("https://shop.example")(next).ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("short-circuits preflight requests", func() {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://any.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		CORS("*")(next).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://any.example"))
	})
})

var _ = Describe("filterSensitiveBody", func() {
	It("masks nested secrets", func() {
		out := filterSensitiveBody([]byte(`{"email":"a@b.c","password":"x","data":{"signature":"abc"}}`))
		Expect(out).To(ContainSubstring(`"password":"[FILTERED]"`))
		Expect(out).To(ContainSubstring(`"signature":"[FILTERED]"`))
		Expect(out).To(ContainSubstring(`"email":"a@b.c"`))
	})
})

var _ = Describe("RequestID", func() {
	It("exposes one id to the response header and chi", func() {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = chimw.GetReqID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(seen).ToNot(BeEmpty())
		Expect(rec.Header().Get("X-Trace-ID")).To(Equal(seen))
	})

	It("keeps the caller's trace id", func() {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = chimw.GetReqID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", "trace-123")
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(seen).To(Equal("trace-123"))
	})
})
