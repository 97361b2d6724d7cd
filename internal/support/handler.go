package support

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/licensestore/internal/auth"
	"github.com/frahmantamala/licensestore/internal/transport"
	"github.com/frahmantamala/licensestore/pkg/logger"
)

type ServiceAPI interface {
	CreateTicket(ctx context.Context, userID int64, dto CreateTicketDTO) (*Ticket, error)
	GetTicket(id int64) (*Ticket, error)
	GetMyTicket(userID, id int64) (*Ticket, error)
	ListTickets(filter TicketFilter) ([]*Ticket, int64, error)
	ListMyTickets(userID int64, filter TicketFilter) ([]*Ticket, int64, error)
	AssignTicket(ctx context.Context, id int64, dto AssignDTO) (*Ticket, error)
	UpdateStatus(ctx context.Context, id int64, dto StatusDTO) (*Ticket, error)
	Reply(ctx context.Context, staffID, ticketID int64, dto ReplyDTO) (*Ticket, error)
	ReplyMine(ctx context.Context, userID, ticketID int64, dto ReplyDTO) (*Ticket, error)

	OpenSession(ctx context.Context, customerID int64, dto OpenSessionDTO) (*Session, error)
	ListQueue(filter SessionFilter) ([]*Session, int64, error)
	ListMySessions(customerID int64, filter SessionFilter) ([]*Session, int64, error)
	ClaimSession(ctx context.Context, sessionID, staffID int64) (*Session, error)
	GetSession(sessionID, userID int64) (*Session, error)
	SendMessage(ctx context.Context, sessionID, senderID int64, dto MessageDTO) (*Message, error)
	ListMessages(sessionID, userID, beforeID int64) ([]*Message, error)
	CloseSession(ctx context.Context, sessionID, userID int64) (*Session, error)
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

// CreateTicket handles POST /tickets
func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var dto CreateTicketDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	t, err := h.Service.CreateTicket(r.Context(), user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) ListMyTickets(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	page := transport.ParsePagination(r)
	items, total, err := h.Service.ListMyTickets(user.ID, ticketFilter(r, page))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.NewPageResult(items, total, page))
}

func (h *Handler) GetMyTicket(w http.ResponseWriter, r *http.Request) {
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
	t, err := h.Service.GetMyTicket(user.ID, id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

// ReplyMyTicket handles POST /tickets/{id}/replies
func (h *Handler) ReplyMyTicket(w http.ResponseWriter, r *http.Request) {
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
	var dto ReplyDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	t, err := h.Service.ReplyMine(r.Context(), user.ID, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

// AdminListTickets handles GET /admin/tickets?status=&priority=&assignee_id=&search=
func (h *Handler) AdminListTickets(w http.ResponseWriter, r *http.Request) {
	page := transport.ParsePagination(r)
	filter := ticketFilter(r, page)
	if raw := r.URL.Query().Get("assignee_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.AssigneeID = id
		}
	}
	items, total, err := h.Service.ListTickets(filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.NewPageResult(items, total, page))
}

func (h *Handler) AdminGetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	t, err := h.Service.GetTicket(id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) AdminAssignTicket(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto AssignDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	t, err := h.Service.AssignTicket(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) AdminUpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto StatusDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	t, err := h.Service.UpdateStatus(r.Context(), id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) AdminReplyTicket(w http.ResponseWriter, r *http.Request) {
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
	var dto ReplyDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	t, err := h.Service.Reply(r.Context(), user.ID, id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, t)
}

func ticketFilter(r *http.Request, page transport.Pagination) TicketFilter {
	q := r.URL.Query()
	return TicketFilter{
		Status:   strings.ToLower(q.Get("status")),
		Priority: strings.ToLower(q.Get("priority")),
		Search:   strings.TrimSpace(q.Get("search")),
		Limit:    page.PageSize,
		Offset:   page.Offset(),
	}
}
