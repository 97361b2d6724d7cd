package content

import "time"

const (
	TypePost = "post"
	TypePage = "page"
)

type Post struct {
	ID          int64      `gorm:"primaryKey"`
	Type        string     `gorm:"column:type;not null;default:post;index"`
	Title       string     `gorm:"column:title;not null"`
	Slug        string     `gorm:"column:slug;uniqueIndex;not null"`
	Excerpt     string     `gorm:"column:excerpt"`
	Body        string     `gorm:"column:body"`
	CoverImage  string     `gorm:"column:cover_image"`
	IsPublished bool       `gorm:"column:is_published;not null"`
	PublishedAt *time.Time `gorm:"column:published_at"`
	AuthorID    int64      `gorm:"column:author_id;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
