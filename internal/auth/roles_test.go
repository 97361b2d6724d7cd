package auth

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("HasAnyRole", func() {
	ginkgo.DescribeTable("allow-list membership",
		func(caller []string, allowed []string, expected bool) {
			gomega.Expect(HasAnyRole(caller, allowed...)).To(gomega.Equal(expected))
		},
		ginkgo.Entry("admin bypasses any list", []string{"ADMIN"}, []string{"STAFF"}, true),
		ginkgo.Entry("admin bypasses an empty list", []string{"admin"}, nil, true),
		ginkgo.Entry("member matches", []string{"CUSTOMER", "STAFF"}, []string{"STAFF"}, true),
		ginkgo.Entry("case-insensitive", []string{"staff"}, []string{"STAFF"}, true),
		ginkgo.Entry("non member denied", []string{"CUSTOMER"}, []string{"STAFF", "MANAGER"}, false),
		ginkgo.Entry("no roles denied", nil, []string{"STAFF"}, false),
	)
})

var _ = ginkgo.Describe("Route guards", func() {
	var (
		handler *Handler
		gen     *JWTTokenGenerator
		reached bool
		next    http.Handler
	)

	ginkgo.BeforeEach(func() {
		gen = NewJWTTokenGenerator("test-access-secret-0123456789abcdef", "test-refresh-secret-0123456789abcdef", time.Minute, time.Hour)
		handler = NewHandler(NewService(newMockRepository(), gen, 4, nil))
		reached = false
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			user, ok := UserFromContext(r.Context())
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(user.ID).To(gomega.Equal(int64(9)))
			w.WriteHeader(http.StatusOK)
		})
	})

	bearer := func(roles ...string) string {
		token, err := gen.GenerateAccessToken(&User{ID: 9, Email: "x@example.com", Roles: roles})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return token
	}

	ginkgo.It("rejects requests without a token with a bare 401", func() {
		rec := httptest.NewRecorder()
		handler.AuthMiddleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(rec.Body.Len()).To(gomega.Equal(0))
		gomega.Expect(reached).To(gomega.BeFalse())
	})

	ginkgo.It("accepts the query token only on websocket upgrades", func() {
		token := bearer(RoleCustomer)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ws/notifications?access_token="+token, nil)
		handler.AuthMiddleware(next).ServeHTTP(rec, req)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))

		rec = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/ws/notifications?access_token="+token, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		handler.AuthMiddleware(next).ServeHTTP(rec, req)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("enforces roles from claims only", func() {
		guard := handler.AuthMiddleware(NewRoleAuthorization(nil).Require(RoleStaff)(next))

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+bearer(RoleCustomer))
		guard.ServeHTTP(rec, req)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))

		rec = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+bearer(RoleAdmin))
		guard.ServeHTTP(rec, req)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(reached).To(gomega.BeTrue())
	})
})
