package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/frahmantamala/licensestore/internal/core/common/slug"
	catalogdm "github.com/frahmantamala/licensestore/internal/core/datamodel/catalog"
	"github.com/frahmantamala/licensestore/internal/core/events"
	"github.com/frahmantamala/licensestore/internal/storage"
	"github.com/google/uuid"
)

type Service struct {
	repo    RepositoryAPI
	cache   ProductCache
	storage storage.Driver
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, cache ProductCache, store storage.Driver, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		cache:   cache,
		storage: store,
		logger:  logger,
	}
}

func (s *Service) invalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.cache.Invalidate(ctx)
}

// Categories

func (s *Service) ListCategories(activeOnly bool) ([]Category, error) {
	rows, err := s.repo.ListCategories(activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	out := make([]Category, 0, len(rows))
	for i := range rows {
		out = append(out, CategoryFromDataModel(&rows[i]))
	}
	return out, nil
}

func (s *Service) CreateCategory(dto CategoryDTO) (*Category, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	slugValue, err := s.categorySlug(dto, 0)
	if err != nil {
		return nil, err
	}

	row := &catalogdm.Category{
		Name:        dto.Name,
		Slug:        slugValue,
		Description: dto.Description,
		SortOrder:   dto.SortOrder,
		IsActive:    true,
	}
	if err := s.repo.CreateCategory(row); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.logger.Info("category created", "category_id", row.ID, "slug", row.Slug)
	c := CategoryFromDataModel(row)
	return &c, nil
}

func (s *Service) UpdateCategory(id int64, dto CategoryDTO) (*Category, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	row, err := s.getCategory(id)
	if err != nil {
		return nil, err
	}

	slugValue, err := s.categorySlug(dto, id)
	if err != nil {
		return nil, err
	}

	row.Name = dto.Name
	row.Slug = slugValue
	row.Description = dto.Description
	row.SortOrder = dto.SortOrder
	if err := s.repo.UpdateCategory(row); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	s.invalidate()
	c := CategoryFromDataModel(row)
	return &c, nil
}

func (s *Service) ToggleCategory(id int64) (*Category, error) {
	row, err := s.getCategory(id)
	if err != nil {
		return nil, err
	}
	row.IsActive = !row.IsActive
	if err := s.repo.UpdateCategory(row); err != nil {
		return nil, fmt.Errorf("failed to toggle category: %w", err)
	}

	s.invalidate()
	c := CategoryFromDataModel(row)
	return &c, nil
}

func (s *Service) DeleteCategory(id int64) error {
	if _, err := s.getCategory(id); err != nil {
		return err
	}
	count, err := s.repo.CountProductsInCategory(id)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return ErrCategoryInUse.WithDetails(map[string]int64{"products": count})
	}
	if err := s.repo.DeleteCategory(id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	s.logger.Info("category deleted", "category_id", id)
	return nil
}

func (s *Service) getCategory(id int64) (*catalogdm.Category, error) {
	row, err := s.repo.GetCategory(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if row == nil {
		return nil, ErrCategoryNotFound
	}
	return row, nil
}

func (s *Service) categorySlug(dto CategoryDTO, excludeID int64) (string, error) {
	base := dto.Slug
	if base == "" {
		base = dto.Name
	}
	return slug.Unique(slug.Make(base), func(c string) (bool, error) {
		return s.repo.CategorySlugExists(c, excludeID)
	})
}

// Products

func (s *Service) ListProducts(filter ProductFilter) ([]Product, int64, error) {
	rows, total, err := s.repo.ListProducts(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	out := make([]Product, 0, len(rows))
	for i := range rows {
		p := ProductFromDataModel(&rows[i])
		p.Description = ""
		out = append(out, p)
	}
	return out, total, nil
}

func (s *Service) GetProduct(id int64) (*Product, error) {
	row, err := s.getProduct(id)
	if err != nil {
		return nil, err
	}
	p := ProductFromDataModel(row)
	return &p, nil
}

// GetPublicProduct serves the storefront detail page: active product in an
// active category with its active variants.
func (s *Service) GetPublicProduct(ctx context.Context, slugValue string) (*Product, error) {
	if p, ok := s.cache.Get(ctx, slugValue); ok {
		return p, nil
	}

	row, err := s.repo.GetActiveProductBySlug(slugValue)
	if err != nil {
		return nil, fmt.Errorf("failed to get product by slug: %w", err)
	}
	if row == nil {
		return nil, ErrProductNotFound
	}

	p := ProductFromDataModel(row)
	s.cache.Set(ctx, &p)
	return &p, nil
}

func (s *Service) CreateProduct(dto ProductDTO) (*Product, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.getCategory(dto.CategoryID); err != nil {
		return nil, err
	}

	slugValue, err := s.productSlug(dto, 0)
	if err != nil {
		return nil, err
	}

	row := &catalogdm.Product{
		CategoryID:       dto.CategoryID,
		Name:             dto.Name,
		Slug:             slugValue,
		ShortDescription: dto.ShortDescription,
		Description:      dto.Description,
		ImageURL:         dto.ImageURL,
		IsActive:         true,
	}
	if err := s.repo.CreateProduct(row); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("product created", "product_id", row.ID, "slug", row.Slug)
	return s.GetProduct(row.ID)
}

func (s *Service) UpdateProduct(id int64, dto ProductDTO) (*Product, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	row, err := s.getProduct(id)
	if err != nil {
		return nil, err
	}
	if _, err := s.getCategory(dto.CategoryID); err != nil {
		return nil, err
	}

	slugValue, err := s.productSlug(dto, id)
	if err != nil {
		return nil, err
	}

	row.CategoryID = dto.CategoryID
	row.Name = dto.Name
	row.Slug = slugValue
	row.ShortDescription = dto.ShortDescription
	row.Description = dto.Description
	if dto.ImageURL != "" {
		row.ImageURL = dto.ImageURL
	}
	if err := s.repo.UpdateProduct(row); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidate()
	return s.GetProduct(id)
}

func (s *Service) ToggleProduct(id int64) (*Product, error) {
	row, err := s.getProduct(id)
	if err != nil {
		return nil, err
	}
	row.IsActive = !row.IsActive
	if err := s.repo.UpdateProduct(row); err != nil {
		return nil, fmt.Errorf("failed to toggle product: %w", err)
	}

	s.invalidate()
	p := ProductFromDataModel(row)
	return &p, nil
}

func (s *Service) DeleteProduct(id int64) error {
	if _, err := s.getProduct(id); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.invalidate()
	s.logger.Info("product deleted", "product_id", id)
	return nil
}

// UploadProductImage stores the image under products/{id}/ and points the
// product at it.
func (s *Service) UploadProductImage(ctx context.Context, id int64, filename string, file io.Reader) (string, error) {
	if storage.ContentType(filename) == "" {
		return "", ErrInvalidImage
	}
	row, err := s.getProduct(id)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("products/%d/%s%s", id, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
	url, err := s.storage.Upload(ctx, file, key)
	if err != nil {
		return "", fmt.Errorf("failed to store product image: %w", err)
	}

	row.ImageURL = url
	if err := s.repo.UpdateProduct(row); err != nil {
		return "", fmt.Errorf("failed to update product image: %w", err)
	}

	s.invalidate()
	s.logger.Info("product image uploaded", "product_id", id, "key", key)
	return url, nil
}

func (s *Service) getProduct(id int64) (*catalogdm.Product, error) {
	row, err := s.repo.GetProduct(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if row == nil {
		return nil, ErrProductNotFound
	}
	return row, nil
}

func (s *Service) productSlug(dto ProductDTO, excludeID int64) (string, error) {
	base := dto.Slug
	if base == "" {
		base = dto.Name
	}
	return slug.Unique(slug.Make(base), func(c string) (bool, error) {
		return s.repo.ProductSlugExists(c, excludeID)
	})
}

// Variants

func (s *Service) CreateVariant(productID int64, dto VariantDTO) (*Variant, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.getProduct(productID); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSKU(dto.SKU, 0); err != nil {
		return nil, err
	}

	row := &catalogdm.ProductVariant{
		ProductID:      productID,
		Name:           dto.Name,
		SKU:            dto.SKU,
		Price:          dto.Price,
		CompareAtPrice: dto.CompareAtPrice,
		DurationDays:   dto.DurationDays,
		Stock:          dto.Stock,
		SortOrder:      dto.SortOrder,
		IsActive:       true,
	}
	if err := s.repo.CreateVariant(row); err != nil {
		return nil, fmt.Errorf("failed to create variant: %w", err)
	}

	s.invalidate()
	s.logger.Info("variant created", "variant_id", row.ID, "product_id", productID, "sku", row.SKU)
	v := VariantFromDataModel(row)
	return &v, nil
}

func (s *Service) UpdateVariant(id int64, dto VariantDTO) (*Variant, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	row, err := s.getVariant(id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSKU(dto.SKU, id); err != nil {
		return nil, err
	}

	row.Name = dto.Name
	row.SKU = dto.SKU
	row.Price = dto.Price
	row.CompareAtPrice = dto.CompareAtPrice
	row.DurationDays = dto.DurationDays
	row.Stock = dto.Stock
	row.SortOrder = dto.SortOrder
	if err := s.repo.UpdateVariant(row); err != nil {
		return nil, fmt.Errorf("failed to update variant: %w", err)
	}

	s.invalidate()
	v := VariantFromDataModel(row)
	return &v, nil
}

func (s *Service) ToggleVariant(id int64) (*Variant, error) {
	row, err := s.getVariant(id)
	if err != nil {
		return nil, err
	}
	row.IsActive = !row.IsActive
	if err := s.repo.UpdateVariant(row); err != nil {
		return nil, fmt.Errorf("failed to toggle variant: %w", err)
	}

	s.invalidate()
	v := VariantFromDataModel(row)
	return &v, nil
}

func (s *Service) DeleteVariant(id int64) error {
	if _, err := s.getVariant(id); err != nil {
		return err
	}
	if err := s.repo.DeleteVariant(id); err != nil {
		return fmt.Errorf("failed to delete variant: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *Service) getVariant(id int64) (*catalogdm.ProductVariant, error) {
	row, err := s.repo.GetVariant(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	if row == nil {
		return nil, ErrVariantNotFound
	}
	return row, nil
}

func (s *Service) ensureUniqueSKU(sku string, excludeID int64) error {
	exists, err := s.repo.SKUExists(sku, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check sku: %w", err)
	}
	if exists {
		return ErrDuplicateSKU.WithDetails(map[string]string{"sku": sku})
	}
	return nil
}

// License keys

// AddLicenseKeys stores new keys for a variant and raises its stock by the
// number actually inserted. Keys already on file are skipped.
func (s *Service) AddLicenseKeys(variantID int64, dto LicenseKeysDTO) (*LicenseKeysResponse, error) {
	if err := dto.Normalize(); err != nil {
		return nil, err
	}
	if _, err := s.getVariant(variantID); err != nil {
		return nil, err
	}

	added, err := s.repo.AddLicenseKeys(variantID, dto.Keys)
	if err != nil {
		return nil, fmt.Errorf("failed to add license keys: %w", err)
	}
	available, err := s.repo.CountAvailableKeys(variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count license keys: %w", err)
	}

	s.invalidate()
	s.logger.Info("license keys added", "variant_id", variantID, "added", added, "skipped", len(dto.Keys)-added)
	return &LicenseKeysResponse{
		VariantID: variantID,
		Added:     added,
		Skipped:   len(dto.Keys) - added,
		Available: available,
	}, nil
}

func (s *Service) CountAvailableKeys(variantID int64) (*LicenseKeysResponse, error) {
	if _, err := s.getVariant(variantID); err != nil {
		return nil, err
	}
	available, err := s.repo.CountAvailableKeys(variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count license keys: %w", err)
	}
	return &LicenseKeysResponse{VariantID: variantID, Available: available}, nil
}

// HandleOrderPaid drops cached product pages once stock has moved.
func (s *Service) HandleOrderPaid(ctx context.Context, event events.Event) error {
	s.cache.Invalidate(ctx)
	return nil
}
