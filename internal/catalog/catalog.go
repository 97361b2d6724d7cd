package catalog

import (
	"context"
	"time"

	"github.com/frahmantamala/licensestore/internal"
	catalogdm "github.com/frahmantamala/licensestore/internal/core/datamodel/catalog"
)

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Variant struct {
	ID             int64  `json:"id"`
	ProductID      int64  `json:"product_id"`
	Name           string `json:"name"`
	SKU            string `json:"sku"`
	Price          int64  `json:"price"`
	CompareAtPrice int64  `json:"compare_at_price,omitempty"`
	DurationDays   int    `json:"duration_days"`
	Stock          int    `json:"stock"`
	SortOrder      int    `json:"sort_order"`
	IsActive       bool   `json:"is_active"`
}

func (v Variant) InStock() bool {
	return v.IsActive && v.Stock > 0
}

type Product struct {
	ID               int64     `json:"id"`
	CategoryID       int64     `json:"category_id"`
	CategoryName     string    `json:"category_name,omitempty"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	ShortDescription string    `json:"short_description"`
	Description      string    `json:"description,omitempty"`
	ImageURL         string    `json:"image_url"`
	IsActive         bool      `json:"is_active"`
	MinPrice         int64     `json:"min_price"`
	Variants         []Variant `json:"variants"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ProductFilter struct {
	Search     string
	CategoryID int64
	ActiveOnly bool
	Limit      int
	Offset     int
}

type RepositoryAPI interface {
	ListCategories(activeOnly bool) ([]catalogdm.Category, error)
	GetCategory(id int64) (*catalogdm.Category, error)
	CategorySlugExists(slug string, excludeID int64) (bool, error)
	CreateCategory(c *catalogdm.Category) error
	UpdateCategory(c *catalogdm.Category) error
	DeleteCategory(id int64) error
	CountProductsInCategory(id int64) (int64, error)

	ListProducts(filter ProductFilter) ([]catalogdm.Product, int64, error)
	GetProduct(id int64) (*catalogdm.Product, error)
	GetActiveProductBySlug(slug string) (*catalogdm.Product, error)
	ProductSlugExists(slug string, excludeID int64) (bool, error)
	CreateProduct(p *catalogdm.Product) error
	UpdateProduct(p *catalogdm.Product) error
	DeleteProduct(id int64) error

	GetVariant(id int64) (*catalogdm.ProductVariant, error)
	SKUExists(sku string, excludeID int64) (bool, error)
	CreateVariant(v *catalogdm.ProductVariant) error
	UpdateVariant(v *catalogdm.ProductVariant) error
	DeleteVariant(id int64) error

	AddLicenseKeys(variantID int64, keys []string) (int, error)
	CountAvailableKeys(variantID int64) (int64, error)
}

// ProductCache holds public product detail pages keyed by slug.
type ProductCache interface {
	Get(ctx context.Context, slug string) (*Product, bool)
	Set(ctx context.Context, p *Product)
	Invalidate(ctx context.Context)
}

var (
	ErrCategoryNotFound = internal.NewNotFoundError("Category not found", internal.ErrCodeCategoryNotFound)
	ErrProductNotFound  = internal.NewNotFoundError("Product not found", internal.ErrCodeProductNotFound)
	ErrVariantNotFound  = internal.NewNotFoundError("Product variant not found", internal.ErrCodeVariantNotFound)
	ErrDuplicateSKU     = internal.NewConflictError("SKU already exists", internal.ErrCodeDuplicateSKU)
	ErrCategoryInUse    = internal.NewConflictError("Category still has products", internal.ErrCodeInvalidValue)
	ErrInvalidImage     = internal.NewValidationError("Only jpg, png, webp and gif images are accepted", internal.ErrCodeInvalidValue)
)

func CategoryFromDataModel(c *catalogdm.Category) Category {
	return Category{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func VariantFromDataModel(v *catalogdm.ProductVariant) Variant {
	return Variant{
		ID:             v.ID,
		ProductID:      v.ProductID,
		Name:           v.Name,
		SKU:            v.SKU,
		Price:          v.Price,
		CompareAtPrice: v.CompareAtPrice,
		DurationDays:   v.DurationDays,
		Stock:          v.Stock,
		SortOrder:      v.SortOrder,
		IsActive:       v.IsActive,
	}
}

// ProductFromDataModel converts a product row. MinPrice is taken over active
// variants only.
func ProductFromDataModel(p *catalogdm.Product) Product {
	out := Product{
		ID:               p.ID,
		CategoryID:       p.CategoryID,
		Name:             p.Name,
		Slug:             p.Slug,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		ImageURL:         p.ImageURL,
		IsActive:         p.IsActive,
		Variants:         make([]Variant, 0, len(p.Variants)),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if p.Category != nil {
		out.CategoryName = p.Category.Name
	}
	for i := range p.Variants {
		v := VariantFromDataModel(&p.Variants[i])
		out.Variants = append(out.Variants, v)
		if v.IsActive && (out.MinPrice == 0 || v.Price < out.MinPrice) {
			out.MinPrice = v.Price
		}
	}
	return out
}
