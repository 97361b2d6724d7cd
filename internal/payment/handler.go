package payment

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/licensestore/internal/transport"
	"github.com/frahmantamala/licensestore/pkg/logger"
)

type ServiceAPI interface {
	GetByID(id int64) (*Payment, error)
	List(filter ListFilter) ([]*Payment, int64, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// ListPayments handles GET /admin/payments?status=&order_code=
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	page := transport.ParsePagination(r)
	filter := ListFilter{
		Status: r.URL.Query().Get("status"),
		Limit:  page.PageSize,
		Offset: page.Offset(),
	}
	if code, err := strconv.ParseInt(r.URL.Query().Get("order_code"), 10, 64); err == nil {
		filter.OrderCode = code
	}

	items, total, err := h.Service.List(filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.NewPageResult(items, total, page))
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	p, err := h.Service.GetByID(id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}
