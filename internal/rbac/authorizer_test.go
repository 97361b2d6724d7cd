package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/licensestore/internal/auth"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

type fakeChecker struct {
	grants map[string]bool
	err    error
	calls  int
}

func (f *fakeChecker) HasPermission(ctx context.Context, userID int64, module, permission string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.grants[module+":"+permission], nil
}

var _ = ginkgo.Describe("Authorizer", func() {
	var (
		checker    *fakeChecker
		authorizer *Authorizer
		next       http.Handler
	)

	ginkgo.BeforeEach(func() {
		checker = &fakeChecker{grants: map[string]bool{"PRODUCT:EDIT": true}}
		authorizer = NewAuthorizer(checker, nil)
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	})

	serve := func(policy string, user *auth.User) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user != nil {
			req = req.WithContext(auth.ContextWithUser(req.Context(), user))
		}
		rec := httptest.NewRecorder()
		authorizer.Require(policy)(next).ServeHTTP(rec, req)
		return rec.Code
	}

	ginkgo.It("returns 401 without a caller", func() {
		gomega.Expect(serve("RequirePermission:PRODUCT:EDIT", nil)).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(checker.calls).To(gomega.Equal(0))
	})

	ginkgo.It("allows a granted caller", func() {
		gomega.Expect(serve("RequirePermission:PRODUCT:EDIT", &auth.User{ID: 1})).To(gomega.Equal(http.StatusNoContent))
	})

	ginkgo.It("checks the store on every request", func() {
		serve("RequirePermission:PRODUCT:EDIT", &auth.User{ID: 1})
		serve("RequirePermission:PRODUCT:EDIT", &auth.User{ID: 1})
		gomega.Expect(checker.calls).To(gomega.Equal(2))
	})

	ginkgo.It("denies a caller without the grant", func() {
		gomega.Expect(serve("RequirePermission:PRODUCT:DELETE", &auth.User{ID: 1})).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("does not let ADMIN bypass permission policies", func() {
		gomega.Expect(serve("RequirePermission:ORDER:VIEW", &auth.User{ID: 1, Roles: []string{"ADMIN"}})).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("denies with 403 when the lookup fails", func() {
		checker.err = errors.New("connection refused")
		gomega.Expect(serve("RequirePermission:PRODUCT:EDIT", &auth.User{ID: 1})).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("denies every request behind a malformed policy", func() {
		gomega.Expect(serve("RequirePermission:PRODUCT", &auth.User{ID: 1})).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("evaluates role policies from claims", func() {
		gomega.Expect(serve("RequireRole:STAFF", &auth.User{ID: 1, Roles: []string{"staff"}})).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(serve("RequireRole:STAFF", &auth.User{ID: 1, Roles: []string{"CUSTOMER"}})).To(gomega.Equal(http.StatusForbidden))
		gomega.Expect(serve("RequireRole:STAFF", &auth.User{ID: 1, Roles: []string{"ADMIN"}})).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(checker.calls).To(gomega.Equal(0))
	})
})
