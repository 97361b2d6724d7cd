package cart

import (
	"github.com/frahmantamala/licensestore/internal"
	cartdm "github.com/frahmantamala/licensestore/internal/core/datamodel/cart"
	catalogdm "github.com/frahmantamala/licensestore/internal/core/datamodel/catalog"
)

const MaxQuantity = 100

type Item struct {
	VariantID   int64  `json:"variant_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ProductSlug string `json:"product_slug"`
	ImageURL    string `json:"image_url"`
	VariantName string `json:"variant_name"`
	SKU         string `json:"sku"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   int64  `json:"line_total"`
	// Available is false when the variant was disabled or sold out after it
	// was added; checkout rejects such carts.
	Available bool `json:"available"`
}

type Cart struct {
	Items         []Item `json:"items"`
	TotalQuantity int    `json:"total_quantity"`
	TotalAmount   int64  `json:"total_amount"`
}

type RepositoryAPI interface {
	ListItems(userID int64) ([]cartdm.CartItem, error)
	GetItem(userID, variantID int64) (*cartdm.CartItem, error)
	SaveItem(item *cartdm.CartItem) error
	DeleteItem(userID, variantID int64) error
	Clear(userID int64) error
	GetVariant(variantID int64) (*catalogdm.ProductVariant, error)
}

var (
	ErrItemNotFound    = internal.NewNotFoundError("Cart item not found", internal.ErrCodeCartItemNotFound)
	ErrVariantNotFound = internal.NewNotFoundError("Product variant not found", internal.ErrCodeVariantNotFound)
	ErrVariantInactive = internal.NewValidationError("Product variant is not available", internal.ErrCodeVariantInactive)
	ErrOutOfStock      = internal.NewValidationError("Not enough stock for this variant", internal.ErrCodeOutOfStock)
)

func itemFromDataModel(row *cartdm.CartItem) Item {
	item := Item{
		VariantID: row.VariantID,
		Quantity:  row.Quantity,
	}
	v := row.Variant
	if v == nil {
		return item
	}
	item.VariantName = v.Name
	item.SKU = v.SKU
	item.UnitPrice = v.Price
	item.LineTotal = v.Price * int64(row.Quantity)
	item.ProductID = v.ProductID
	item.Available = v.IsActive && v.Stock >= row.Quantity
	if p := v.Product; p != nil {
		item.ProductName = p.Name
		item.ProductSlug = p.Slug
		item.ImageURL = p.ImageURL
		item.Available = item.Available && p.IsActive && !p.DeletedAt.Valid
	}
	return item
}

func FromDataModel(rows []cartdm.CartItem) *Cart {
	c := &Cart{Items: make([]Item, 0, len(rows))}
	for i := range rows {
		item := itemFromDataModel(&rows[i])
		c.Items = append(c.Items, item)
		c.TotalQuantity += item.Quantity
		c.TotalAmount += item.LineTotal
	}
	return c
}
