package order

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/auth"
	"github.com/frahmantamala/licensestore/internal/payment"
	"github.com/frahmantamala/licensestore/internal/transport"
	"github.com/frahmantamala/licensestore/pkg/logger"
)

type ServiceAPI interface {
	Checkout(ctx context.Context, userID int64, dto CheckoutDTO) (*Order, error)
	PayOrder(ctx context.Context, userID, orderID int64) (*payment.Payment, error)
	GetMine(userID, orderID int64) (*Order, error)
	ListMine(userID int64, filter ListFilter) ([]*Order, int64, error)
	CancelMine(ctx context.Context, userID, orderID int64, dto CancelDTO) (*Order, error)
	Get(orderID int64) (*Order, error)
	List(filter ListFilter) ([]*Order, int64, error)
	Cancel(ctx context.Context, orderID int64, dto CancelDTO) (*Order, error)
	Export(filter ListFilter) (*bytes.Buffer, error)
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

// Checkout handles POST /orders
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var dto CheckoutDTO
	if r.ContentLength > 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
	}
	o, err := h.Service.Checkout(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	page := transport.ParsePagination(r)
	filter, err := parseFilter(r, page)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	items, total, err := h.Service.ListMine(user.ID, filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.NewPageResult(items, total, page))
}

func (h *Handler) GetMyOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	o, err := h.Service.GetMine(user.ID, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, o)
}

// PayMyOrder handles POST /orders/{id}/payment
func (h *Handler) PayMyOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	p, err := h.Service.PayOrder(r.Context(), user.ID, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) CancelMyOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto CancelDTO
	if r.ContentLength > 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
	}
	o, err := h.Service.CancelMine(r.Context(), user.ID, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, o)
}

// AdminListOrders handles GET /admin/orders?status=&search=&from=&to=
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	page := transport.ParsePagination(r)
	filter, err := parseFilter(r, page)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	items, total, err := h.Service.List(filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.NewPageResult(items, total, page))
}

func (h *Handler) AdminGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	o, err := h.Service.Get(id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) AdminCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto CancelDTO
	if r.ContentLength > 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.HandleServiceError(w, r, err)
			return
		}
	}
	o, err := h.Service.Cancel(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, o)
}

// ExportOrders handles GET /admin/orders/export and streams an XLSX file.
func (h *Handler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r, transport.Pagination{})
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	buf, err := h.Service.Export(filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.Error("failed to write export", "error", err)
	}
}

// parseFilter reads status, search and a from/to date range (YYYY-MM-DD, to inclusive).
func parseFilter(r *http.Request, page transport.Pagination) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{
		Status: q.Get("status"),
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  page.PageSize,
		Offset: page.Offset(),
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return filter, internal.NewValidationFieldError("from", "from must be YYYY-MM-DD", internal.ErrCodeInvalidValue)
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return filter, internal.NewValidationFieldError("to", "to must be YYYY-MM-DD", internal.ErrCodeInvalidValue)
		}
		end := t.AddDate(0, 0, 1)
		filter.To = &end
	}
	return filter, nil
}
