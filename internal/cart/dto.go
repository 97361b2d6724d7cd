package cart

import (
	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/core/common/validation"
)

type AddItemDTO struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

func (d *AddItemDTO) Validate() *internal.AppError {
	if d.Quantity == 0 {
		d.Quantity = 1
	}
	v := validation.NewValidator()
	v.Field("variant_id", d.VariantID).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return validation.ValidateQuantity(d.Quantity)
}

type UpdateItemDTO struct {
	Quantity int `json:"quantity"`
}

// Validate accepts 0, which removes the line.
func (d UpdateItemDTO) Validate() *internal.AppError {
	if d.Quantity == 0 {
		return nil
	}
	return validation.ValidateQuantity(d.Quantity)
}
