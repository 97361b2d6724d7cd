package content

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/licensestore/internal/auth"
	"github.com/frahmantamala/licensestore/internal/transport"
	"github.com/frahmantamala/licensestore/pkg/logger"
)

type ServiceAPI interface {
	Create(authorID int64, dto PostDTO) (*Post, error)
	Update(id int64, dto PostDTO) (*Post, error)
	TogglePublish(id int64) (*Post, error)
	Delete(id int64) error
	Get(id int64) (*Post, error)
	GetPublished(slug string) (*Post, error)
	List(filter ListFilter) ([]*Post, int64, error)
	ListPublished(filter ListFilter) ([]*Post, int64, error)
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

func listFilter(r *http.Request, page transport.Pagination) ListFilter {
	q := r.URL.Query()
	return ListFilter{
		Type:   strings.ToLower(q.Get("type")),
		Search: strings.TrimSpace(q.Get("search")),
		Limit:  page.PageSize,
		Offset: page.Offset(),
	}
}

// PublicPosts handles GET /posts?type=&search=
func (h *Handler) PublicPosts(w http.ResponseWriter, r *http.Request) {
	page := transport.ParsePagination(r)
	items, total, err := h.Service.ListPublished(listFilter(r, page))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.NewPageResult(items, total, page))
}

// PublicPost handles GET /posts/{slug}
func (h *Handler) PublicPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.GetPublished(chi.URLParam(r, "slug"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) AdminPosts(w http.ResponseWriter, r *http.Request) {
	page := transport.ParsePagination(r)
	items, total, err := h.Service.List(listFilter(r, page))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.NewPageResult(items, total, page))
}

func (h *Handler) AdminGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	p, err := h.Service.Get(id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var dto PostDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	p, err := h.Service.Create(user.ID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto PostDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	p, err := h.Service.Update(id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) TogglePost(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	p, err := h.Service.TogglePublish(id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := h.Service.Delete(id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
