package user

import (
	"strings"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/core/common/validation"
)

type UpdateProfileDTO struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func (d *UpdateProfileDTO) Validate() *internal.AppError {
	d.FullName = strings.TrimSpace(d.FullName)
	d.Phone = strings.TrimSpace(d.Phone)
	v := validation.NewValidator()
	v.Field("full_name", d.FullName).Required().MaxLength(150)
	v.Field("phone", d.Phone).MaxLength(20)
	return v.Validate()
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(8).MaxLength(72)
	return v.Validate()
}
