package content

import (
	"strings"

	"github.com/frahmantamala/licensestore/internal"
	"github.com/frahmantamala/licensestore/internal/core/common/validation"
	contentdm "github.com/frahmantamala/licensestore/internal/core/datamodel/content"
)

type PostDTO struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Excerpt     string `json:"excerpt"`
	Body        string `json:"body"`
	CoverImage  string `json:"cover_image"`
	IsPublished bool   `json:"is_published"`
}

func (d *PostDTO) Validate() *internal.AppError {
	d.Type = strings.ToLower(strings.TrimSpace(d.Type))
	if d.Type == "" {
		d.Type = contentdm.TypePost
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Slug = strings.TrimSpace(d.Slug)
	d.Excerpt = strings.TrimSpace(d.Excerpt)

	v := validation.NewValidator()
	v.Field("type", d.Type).OneOf(contentdm.TypePost, contentdm.TypePage)
	v.Field("title", d.Title).Required().MaxLength(250)
	v.Field("slug", d.Slug).MaxLength(260)
	v.Field("excerpt", d.Excerpt).MaxLength(500)
	v.Field("cover_image", d.CoverImage).MaxLength(500)
	return v.Validate()
}
