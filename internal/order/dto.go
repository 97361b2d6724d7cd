package order

import (
	"strings"

	"github.com/frahmantamala/licensestore/internal/core/common/validation"
	orderdm "github.com/frahmantamala/licensestore/internal/core/datamodel/order"
)

type CheckoutDTO struct {
	Note string `json:"note"`
}

func (d *CheckoutDTO) Validate() error {
	d.Note = strings.TrimSpace(d.Note)

	v := validation.NewValidator()
	v.Field("note", d.Note).MaxLength(500)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CancelDTO struct {
	Reason string `json:"reason"`
}

func (d *CancelDTO) Validate() error {
	d.Reason = strings.TrimSpace(d.Reason)

	v := validation.NewValidator()
	v.Field("reason", d.Reason).MaxLength(255)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func validateStatusFilter(status string) error {
	v := validation.NewValidator()
	v.Field("status", status).OneOf(orderdm.StatusPending, orderdm.StatusPaid, orderdm.StatusCancelled)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
