package catalog

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/transport"
	"github.com/frahmantamala/licensestore/pkg/logger"
	"github.com/go-chi/chi"
)

const maxImageSize = 5 << 20

type ServiceAPI interface {
	ListCategories(activeOnly bool) ([]Category, error)
	CreateCategory(dto CategoryDTO) (*Category, error)
	UpdateCategory(id int64, dto CategoryDTO) (*Category, error)
	ToggleCategory(id int64) (*Category, error)
	DeleteCategory(id int64) error

	ListProducts(filter ProductFilter) ([]Product, int64, error)
	GetProduct(id int64) (*Product, error)
	GetPublicProduct(ctx context.Context, slug string) (*Product, error)
	CreateProduct(dto ProductDTO) (*Product, error)
	UpdateProduct(id int64, dto ProductDTO) (*Product, error)
	ToggleProduct(id int64) (*Product, error)
	DeleteProduct(id int64) error
	UploadProductImage(ctx context.Context, id int64, filename string, file io.Reader) (string, error)

	CreateVariant(productID int64, dto VariantDTO) (*Variant, error)
	UpdateVariant(id int64, dto VariantDTO) (*Variant, error)
	ToggleVariant(id int64) (*Variant, error)
	DeleteVariant(id int64) error

	AddLicenseKeys(variantID int64, dto LicenseKeysDTO) (*LicenseKeysResponse, error)
	CountAvailableKeys(variantID int64) (*LicenseKeysResponse, error)
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

// Storefront

func (h *Handler) PublicCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.ListCategories(true)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, categories)
}

// PublicProducts handles GET /products?search=&category_id=&page=&page_size=
func (h *Handler) PublicProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, true)
}

func (h *Handler) PublicProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.GetPublicProduct(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

// Back office

func (h *Handler) AdminCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.ListCategories(false)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, categories)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var dto CategoryDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	c, err := h.Service.CreateCategory(dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto CategoryDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	c, err := h.Service.UpdateCategory(id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) ToggleCategory(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	c, err := h.Service.ToggleCategory(id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := h.Service.DeleteCategory(id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AdminProducts(w http.ResponseWriter, r *http.Request) {
	h.listProducts(w, r, false)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	page := transport.ParsePagination(r)
	q := r.URL.Query()
	filter := ProductFilter{
		Search:     strings.TrimSpace(q.Get("search")),
		ActiveOnly: activeOnly,
		Limit:      page.PageSize,
		Offset:     page.Offset(),
	}
	if raw := q.Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("category_id", "invalid category_id", internal.ErrCodeInvalidValue))
			return
		}
		filter.CategoryID = id
	}

	products, total, err := h.Service.ListProducts(filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, transport.NewPageResult(products, total, page))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	p, err := h.Service.GetProduct(id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var dto ProductDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	p, err := h.Service.CreateProduct(dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto ProductDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	p, err := h.Service.UpdateProduct(id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) ToggleProduct(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	p, err := h.Service.ToggleProduct(id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := h.Service.DeleteProduct(id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadProductImage handles multipart POST /admin/products/{id}/image with field "image".
func (h *Handler) UploadProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1024)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		h.HandleServiceError(w, r, internal.NewValidationError("image must be a multipart upload under 5MB", internal.ErrCodeInvalidValue).WithCause(err))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		h.HandleServiceError(w, r, internal.NewValidationFieldError("image", "image is required", internal.ErrCodeValidationFailed))
		return
	}
	defer file.Close()

	url, err := h.Service.UploadProductImage(r.Context(), id, header.Filename, file)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ImageResponse{ImageURL: url})
}

func (h *Handler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	productID, err := h.ParseIDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto VariantDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	v, err := h.Service.CreateVariant(productID, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, v)
}

func (h *Handler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "variantID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto VariantDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	v, err := h.Service.UpdateVariant(id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) ToggleVariant(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "variantID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	v, err := h.Service.ToggleVariant(id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "variantID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	if err := h.Service.DeleteVariant(id); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddLicenseKeys(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "variantID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	var dto LicenseKeysDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	res, err := h.Service.AddLicenseKeys(id, dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) LicenseKeyStock(w http.ResponseWriter, r *http.Request) {
	id, err := h.ParseIDParam(r, "variantID")
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	res, err := h.Service.CountAvailableKeys(id)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}
