package content

import (
	"time"

	"github.com/frahmantamala/licensestore/internal"
	contentdm "github.com/frahmantamala/licensestore/internal/core/datamodel/content"
)

type Post struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Body        string     `json:"body,omitempty"`
	CoverImage  string     `json:"cover_image,omitempty"`
	IsPublished bool       `json:"is_published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	AuthorID    int64      `json:"author_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromDataModel(p *contentdm.Post) *Post {
	return &Post{
		ID:          p.ID,
		Type:        p.Type,
		Title:       p.Title,
		Slug:        p.Slug,
		Excerpt:     p.Excerpt,
		Body:        p.Body,
		CoverImage:  p.CoverImage,
		IsPublished: p.IsPublished,
		PublishedAt: p.PublishedAt,
		AuthorID:    p.AuthorID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// summary drops the body for list responses.
func summary(p *contentdm.Post) *Post {
	out := FromDataModel(p)
	out.Body = ""
	return out
}

type ListFilter struct {
	Type          string
	PublishedOnly bool
	Search        string
	Limit         int
	Offset        int
}

type RepositoryAPI interface {
	Create(p *contentdm.Post) error
	Update(p *contentdm.Post) error
	Delete(id int64) error
	GetByID(id int64) (*contentdm.Post, error)
	GetBySlug(slug string, publishedOnly bool) (*contentdm.Post, error)
	SlugExists(slug string, excludeID int64) (bool, error)
	List(filter ListFilter) ([]contentdm.Post, int64, error)
}

var ErrNotFound = internal.NewNotFoundError("Post not found", internal.ErrCodePostNotFound)
