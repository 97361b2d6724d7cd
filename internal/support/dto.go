package support

import (
	"strings"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/core/common/validation"
	supportdm "github.com/frahmantamala/licensestore/internal/core/datamodel/support"
)

var priorities = []string{supportdm.PriorityLow, supportdm.PriorityMedium, supportdm.PriorityHigh, supportdm.PriorityUrgent}

var ticketStatuses = []string{supportdm.TicketOpen, supportdm.TicketInProgress, supportdm.TicketResolved, supportdm.TicketClosed}

type CreateTicketDTO struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	OrderID     *int64 `json:"order_id,omitempty"`
}

func (d *CreateTicketDTO) Validate() error {
	d.Subject = strings.TrimSpace(d.Subject)
	d.Description = strings.TrimSpace(d.Description)
	d.Priority = strings.ToLower(strings.TrimSpace(d.Priority))
	if d.Priority == "" {
		d.Priority = supportdm.PriorityMedium
	}

	v := validation.NewValidator()
	v.Field("subject", d.Subject).Required().MaxLength(200)
	v.Field("description", d.Description).Required().MaxLength(5000)
	v.Field("priority", d.Priority).OneOf(priorities...)
	if d.OrderID != nil {
		v.Field("order_id", *d.OrderID).MinInt(1, internal.ErrCodeInvalidValue)
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type ReplyDTO struct {
	Body string `json:"body"`
}

func (d *ReplyDTO) Validate() error {
	d.Body = strings.TrimSpace(d.Body)

	v := validation.NewValidator()
	v.Field("body", d.Body).Required().MaxLength(5000)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type AssignDTO struct {
	StaffID int64 `json:"staff_id"`
}

func (d *AssignDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("staff_id", d.StaffID).Required().MinInt(1, internal.ErrCodeInvalidValue)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type StatusDTO struct {
	Status string `json:"status"`
}

func (d *StatusDTO) Validate() error {
	d.Status = strings.ToLower(strings.TrimSpace(d.Status))

	v := validation.NewValidator()
	v.Field("status", d.Status).Required().OneOf(ticketStatuses...)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type OpenSessionDTO struct {
	Subject string `json:"subject"`
}

func (d *OpenSessionDTO) Validate() error {
	d.Subject = strings.TrimSpace(d.Subject)

	v := validation.NewValidator()
	v.Field("subject", d.Subject).MaxLength(200)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type MessageDTO struct {
	Body string `json:"body"`
}

func (d *MessageDTO) Validate() error {
	d.Body = strings.TrimSpace(d.Body)

	v := validation.NewValidator()
	v.Field("body", d.Body).Required().MaxLength(2000)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
