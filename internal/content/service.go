package content

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/licensestore/internal/core/common/slug"
	contentdm "github.com/frahmantamala/licensestore/internal/core/datamodel/content"
)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) Create(authorID int64, dto PostDTO) (*Post, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	slugValue, err := s.slugFor(dto, 0)
	if err != nil {
		return nil, err
	}

	p := &contentdm.Post{
		Type:       dto.Type,
		Title:      dto.Title,
		Slug:       slugValue,
		Excerpt:    dto.Excerpt,
		Body:       dto.Body,
		CoverImage: dto.CoverImage,
		AuthorID:   authorID,
	}
	s.setPublished(p, dto.IsPublished)
	if err := s.repo.Create(p); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.logger.Info("post created", "post_id", p.ID, "slug", p.Slug, "type", p.Type)
	return FromDataModel(p), nil
}

// Update keeps the current slug unless a new one is given or the title changed.
func (s *Service) Update(id int64, dto PostDTO) (*Post, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	p, err := s.get(id)
	if err != nil {
		return nil, err
	}

	if dto.Slug != "" || dto.Title != p.Title {
		slugValue, err := s.slugFor(dto, id)
		if err != nil {
			return nil, err
		}
		p.Slug = slugValue
	}
	p.Type = dto.Type
	p.Title = dto.Title
	p.Excerpt = dto.Excerpt
	p.Body = dto.Body
	p.CoverImage = dto.CoverImage
	s.setPublished(p, dto.IsPublished)

	if err := s.repo.Update(p); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return FromDataModel(p), nil
}

func (s *Service) TogglePublish(id int64) (*Post, error) {
	p, err := s.get(id)
	if err != nil {
		return nil, err
	}
	s.setPublished(p, !p.IsPublished)
	if err := s.repo.Update(p); err != nil {
		return nil, fmt.Errorf("failed to toggle post: %w", err)
	}

	s.logger.Info("post publish toggled", "post_id", id, "published", p.IsPublished)
	return FromDataModel(p), nil
}

func (s *Service) Delete(id int64) error {
	if _, err := s.get(id); err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	s.logger.Info("post deleted", "post_id", id)
	return nil
}

func (s *Service) Get(id int64) (*Post, error) {
	p, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(p), nil
}

func (s *Service) GetPublished(slugValue string) (*Post, error) {
	p, err := s.repo.GetBySlug(slugValue, true)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return FromDataModel(p), nil
}

func (s *Service) List(filter ListFilter) ([]*Post, int64, error) {
	rows, total, err := s.repo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	out := make([]*Post, 0, len(rows))
	for i := range rows {
		out = append(out, summary(&rows[i]))
	}
	return out, total, nil
}

func (s *Service) ListPublished(filter ListFilter) ([]*Post, int64, error) {
	filter.PublishedOnly = true
	return s.List(filter)
}

func (s *Service) get(id int64) (*contentdm.Post, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) slugFor(dto PostDTO, excludeID int64) (string, error) {
	base := dto.Slug
	if base == "" {
		base = dto.Title
	}
	return slug.Unique(slug.Make(base), func(c string) (bool, error) {
		return s.repo.SlugExists(c, excludeID)
	})
}

// setPublished stamps the first publish time and keeps it across unpublish.
func (s *Service) setPublished(p *contentdm.Post, published bool) {
	p.IsPublished = published
	if published && p.PublishedAt == nil {
		now := s.now()
		p.PublishedAt = &now
	}
}
