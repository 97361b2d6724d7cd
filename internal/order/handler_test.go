package order_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/licensestore/internal/auth"
	catalogdm "github.com/frahmantamala/licensestore/internal/core/datamodel/catalog"
	orderdm "github.com/frahmantamala/licensestore/internal/core/datamodel/order"
	"github.com/frahmantamala/licensestore/internal/order"
	"github.com/frahmantamala/licensestore/internal/payment"
)

func TestOrder(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Order Suite")
}

type mockOrderService struct {
	lastFilter order.ListFilter
	lastUserID int64
	checkout   *order.Order
	err        error
}

func (m *mockOrderService) Checkout(ctx context.Context, userID int64, dto order.CheckoutDTO) (*order.Order, error) {
	m.lastUserID = userID
	return m.checkout, m.err
}

func (m *mockOrderService) PayOrder(ctx context.Context, userID, orderID int64) (*payment.Payment, error) {
	return &payment.Payment{OrderID: orderID}, m.err
}

func (m *mockOrderService) GetMine(userID, orderID int64) (*order.Order, error) {
	m.lastUserID = userID
	return &order.Order{ID: orderID, UserID: userID}, m.err
}

func (m *mockOrderService) ListMine(userID int64, filter order.ListFilter) ([]*order.Order, int64, error) {
	m.lastUserID = userID
	m.lastFilter = filter
	return nil, 0, m.err
}

func (m *mockOrderService) CancelMine(ctx context.Context, userID, orderID int64, dto order.CancelDTO) (*order.Order, error) {
	return &order.Order{ID: orderID}, m.err
}

func (m *mockOrderService) Get(orderID int64) (*order.Order, error) {
	return &order.Order{ID: orderID}, m.err
}

func (m *mockOrderService) List(filter order.ListFilter) ([]*order.Order, int64, error) {
	m.lastFilter = filter
	return nil, 0, m.err
}

func (m *mockOrderService) Cancel(ctx context.Context, orderID int64, dto order.CancelDTO) (*order.Order, error) {
	return &order.Order{ID: orderID}, m.err
}

func (m *mockOrderService) Export(filter order.ListFilter) (*bytes.Buffer, error) {
	m.lastFilter = filter
	return bytes.NewBufferString("xlsx"), m.err
}

func withUser(req *http.Request, id int64) *http.Request {
	return req.WithContext(auth.ContextWithUser(req.Context(), &auth.User{ID: id, Email: "lan@example.vn", Roles: []string{auth.RoleCustomer}}))
}

var _ = Describe("CanTransition", func() {
	It("only lets pending orders move", func() {
		Expect(order.CanTransition(orderdm.StatusPending, orderdm.StatusPaid)).To(BeTrue())
		Expect(order.CanTransition(orderdm.StatusPending, orderdm.StatusCancelled)).To(BeTrue())
		Expect(order.CanTransition(orderdm.StatusPaid, orderdm.StatusCancelled)).To(BeFalse())
		Expect(order.CanTransition(orderdm.StatusCancelled, orderdm.StatusPaid)).To(BeFalse())
		Expect(order.CanTransition(orderdm.StatusPaid, orderdm.StatusPending)).To(BeFalse())
	})
})

var _ = Describe("FromDataModel", func() {
	build := func(status string) *orderdm.Order {
		return &orderdm.Order{
			ID:     1,
			Status: status,
			Details: []orderdm.OrderDetail{{
				ID:          1,
				LicenseKeys: []catalogdm.LicenseKey{{Key: "AAAA-BBBB"}},
			}},
		}
	}

	It("exposes license keys on paid orders", func() {
		Expect(order.FromDataModel(build(orderdm.StatusPaid)).Details[0].LicenseKeys).To(ConsistOf("AAAA-BBBB"))
	})

	It("withholds license keys otherwise", func() {
		Expect(order.FromDataModel(build(orderdm.StatusPending)).Details[0].LicenseKeys).To(BeEmpty())
	})
})

var _ = Describe("Handler", func() {
	var (
		svc      *mockOrderService
		handler  *order.Handler
		recorder *httptest.ResponseRecorder
	)

	BeforeEach(func() {
		svc = &mockOrderService{checkout: &order.Order{ID: 9, Status: orderdm.StatusPending}}
		handler = order.NewHandler(svc)
		recorder = httptest.NewRecorder()
	})

	It("requires a caller for checkout", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		handler.Checkout(recorder, req)
		Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
	})

	It("creates an order for the caller", func() {
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewBufferString(`{"note":"gift"}`)), 7)
		handler.Checkout(recorder, req)
		Expect(recorder.Code).To(Equal(http.StatusCreated))
		Expect(svc.lastUserID).To(Equal(int64(7)))
	})

	It("parses list filters with an inclusive end date", func() {
		req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/orders?status=Paid&from=2024-01-01&to=2024-01-31&page=2&page_size=5", nil), 7)
		handler.ListMyOrders(recorder, req)

		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(svc.lastFilter.Status).To(Equal("Paid"))
		Expect(svc.lastFilter.Offset).To(Equal(5))
		Expect(*svc.lastFilter.From).To(Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		Expect(*svc.lastFilter.To).To(Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	})

	It("rejects malformed dates", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?from=yesterday", nil)
		handler.AdminListOrders(recorder, req)
		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
	})

	It("reads the order id from the route", func() {
		router := chi.NewRouter()
		router.Get("/orders/{id}", handler.GetMyOrder)
		req := withUser(httptest.NewRequest(http.MethodGet, "/orders/42", nil), 7)
		router.ServeHTTP(recorder, req)

		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(recorder.Body.String()).To(ContainSubstring(`"id":42`))
	})

	It("streams the export as an xlsx attachment", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders/export?status=Paid", nil)
		handler.ExportOrders(recorder, req)

		Expect(recorder.Code).To(Equal(http.StatusOK))
		Expect(recorder.Header().Get("Content-Type")).To(Equal("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"))
		Expect(recorder.Header().Get("Content-Disposition")).To(HavePrefix(`attachment; filename="orders-`))
		Expect(svc.lastFilter.Limit).To(BeZero())
	})
})
