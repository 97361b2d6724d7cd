package catalog

import (
	"strings"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/core/common/validation"
)

type CategoryDTO struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

func (d *CategoryDTO) Validate() *internal.AppError {
	d.Name = strings.TrimSpace(d.Name)
	d.Slug = strings.TrimSpace(d.Slug)
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(150)
	v.Field("slug", d.Slug).MaxLength(160)
	v.Field("sort_order", d.SortOrder).MinInt(0, internal.ErrCodeInvalidValue)
	return v.Validate()
}

type ProductDTO struct {
	CategoryID       int64  `json:"category_id"`
	Name             string `json:"name"`
	Slug             string `json:"slug"`
	ShortDescription string `json:"short_description"`
	Description      string `json:"description"`
	ImageURL         string `json:"image_url"`
}

func (d *ProductDTO) Validate() *internal.AppError {
	d.Name = strings.TrimSpace(d.Name)
	d.Slug = strings.TrimSpace(d.Slug)
	v := validation.NewValidator()
	v.Field("category_id", d.CategoryID).Required()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("slug", d.Slug).MaxLength(220)
	v.Field("short_description", d.ShortDescription).MaxLength(500)
	return v.Validate()
}

type VariantDTO struct {
	Name           string `json:"name"`
	SKU            string `json:"sku"`
	Price          int64  `json:"price"`
	CompareAtPrice int64  `json:"compare_at_price"`
	DurationDays   int    `json:"duration_days"`
	Stock          int    `json:"stock"`
	SortOrder      int    `json:"sort_order"`
}

func (d *VariantDTO) Validate() *internal.AppError {
	d.Name = strings.TrimSpace(d.Name)
	d.SKU = strings.ToUpper(strings.TrimSpace(d.SKU))
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(150)
	v.Field("sku", d.SKU).Required().MaxLength(64)
	v.Field("compare_at_price", d.CompareAtPrice).MinInt(0, internal.ErrCodeInvalidValue)
	v.Field("duration_days", d.DurationDays).MinInt(0, internal.ErrCodeInvalidValue)
	v.Field("stock", d.Stock).MinInt(0, internal.ErrCodeInvalidValue)
	if err := v.Validate(); err != nil {
		return err
	}
	return validation.ValidatePrice("price", d.Price)
}

type LicenseKeysDTO struct {
	Keys []string `json:"keys"`
}

// Normalize trims keys and drops blanks and in-request duplicates, keeping order.
func (d *LicenseKeysDTO) Normalize() *internal.AppError {
	seen := make(map[string]struct{}, len(d.Keys))
	keys := make([]string, 0, len(d.Keys))
	for _, k := range d.Keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	d.Keys = keys

	v := validation.NewValidator()
	v.Field("keys", d.Keys).Required()
	v.Field("keys_count", len(d.Keys)).MaxInt(1000, internal.ErrCodeInvalidValue)
	return v.Validate()
}

type LicenseKeysResponse struct {
	VariantID int64 `json:"variant_id"`
	Added     int   `json:"added"`
	Skipped   int   `json:"skipped"`
	Available int64 `json:"available"`
}

type ImageResponse struct {
	ImageURL string `json:"image_url"`
}
