package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/auth"
	"github.com/frahmantamala/licensestore/internal/cart"
	"github.com/frahmantamala/licensestore/internal/catalog"
	"github.com/frahmantamala/licensestore/internal/content"
	"github.com/frahmantamala/licensestore/internal/order"
	"github.com/frahmantamala/licensestore/internal/payment"
	"github.com/frahmantamala/licensestore/internal/rbac"
	"github.com/frahmantamala/licensestore/internal/realtime"
	"github.com/frahmantamala/licensestore/internal/support"
	"github.com/frahmantamala/licensestore/internal/transport/swagger"
	"github.com/frahmantamala/licensestore/internal/user"
)

func TestRest(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "REST Suite")
}

// tokenService accepts "staff" and "customer" as access tokens.
type tokenService struct{ auth.ServiceAPI }

func (tokenService) ValidateAccessToken(token string) (*auth.Claims, error) {
	switch token {
	case "staff":
		return &auth.Claims{UserID: "2", Roles: []string{auth.RoleStaff}}, nil
	case "customer":
		return &auth.Claims{UserID: "7", Roles: []string{auth.RoleCustomer}}, nil
	}
	return nil, auth.ErrInvalidToken
}

type denyAll struct{ err error }

func (d denyAll) HasPermission(ctx context.Context, userID int64, module, permission string) (bool, error) {
	return false, d.err
}

var _ = ginkgo.Describe("Router", func() {
	var (
		router *chi.Mux
		doc    *swagger.Document
	)

	ginkgo.BeforeEach(func() {
		var err error
		doc, err = swagger.Load(context.Background(), "../../../api/openapi.yml")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		router = chi.NewRouter()
		RegisterAllRoutes(router, Handlers{
			Health:   NewHealthHandler(map[string]Checker{"postgres": func(context.Context) error { return nil }}),
			Auth:     auth.NewHandler(tokenService{}),
			User:     user.NewHandler(nil),
			RBAC:     rbac.NewHandler(nil),
			Catalog:  catalog.NewHandler(nil),
			Cart:     cart.NewHandler(nil),
			Order:    order.NewHandler(nil),
			Payment:  payment.NewHandler(nil),
			Webhook:  payment.NewWebhookHandler(nil),
			Support:  support.NewHandler(nil),
			Content:  content.NewHandler(nil),
			Realtime: realtime.NewHandler(nil, nil, internal.RealtimeConfig{}, "*"),
			OpenAPI:  doc,
		}, rbac.NewAuthorizer(denyAll{}, lg), auth.NewRoleAuthorization(lg), "*", lg)
	})

	ginkgo.It("mounts exactly the documented API", func() {
		var mounted []string
		err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if !strings.HasPrefix(route, "/api/v1/") {
				return nil
			}
			route = strings.TrimSuffix(route, "/")
			mounted = append(mounted, method+" "+route)
			return nil
		})
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		sort.Strings(mounted)

		gomega.Expect(mounted).To(gomega.Equal(doc.Routes()))
	})

	ginkgo.It("serves the OpenAPI document", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yml", nil))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.HavePrefix("openapi: 3.0.3"))
	})

	ginkgo.It("reports health", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

		var resp HealthResponse
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
		gomega.Expect(resp.Components).To(gomega.HaveKey("postgres"))
	})

	decodeError := func(rec *httptest.ResponseRecorder) *internal.AppError {
		var resp struct {
			Error internal.AppError `json:"error"`
		}
		gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
		return &resp.Error
	}

	ginkgo.It("answers a missing token with a Vietnamese 401 by default", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
		gomega.Expect(rec.Header().Get("Content-Type")).To(gomega.HavePrefix("application/json"))
		appErr := decodeError(rec)
		gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeInvalidToken))
		gomega.Expect(appErr.Message).To(gomega.ContainSubstring("đăng nhập"))
	})

	ginkgo.It("answers a denied permission with an English 403 when asked", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
		req.Header.Set("Authorization", "Bearer staff")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
		appErr := decodeError(rec)
		gomega.Expect(appErr.Code).To(gomega.Equal(internal.ErrCodeAccessDenied))
		gomega.Expect(appErr.Message).To(gomega.Equal("You do not have permission to perform this action."))
	})

	ginkgo.It("keeps the queue socket away from customers", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/ws/queue", nil)
		req.Header.Set("Authorization", "Bearer customer")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
	})

	ginkgo.It("denies when the permission lookup fails", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		failing := chi.NewRouter()
		RegisterAllRoutes(failing, Handlers{
			Auth:  auth.NewHandler(tokenService{}),
			Order: order.NewHandler(nil),
		}, rbac.NewAuthorizer(denyAll{err: errors.New("connection reset")}, lg), auth.NewRoleAuthorization(lg), "", lg)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders/export", nil)
		req.Header.Set("Authorization", "Bearer staff")
		rec := httptest.NewRecorder()
		failing.ServeHTTP(rec, req)

		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
	})
})
