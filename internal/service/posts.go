package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/iago/blog-generation-back/internal/artifact"
	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/iago/blog-generation-back/internal/repository"
)

type PostsConfig struct {
	AppURL string
	Now    func() time.Time
	Logger *zerolog.Logger
}

// PostsService edits content artifacts after generation.
type PostsService struct {
	repo     repository.PostsRepository
	validate *validator.Validate
	appURL   string
	now      func() time.Time
	logger   zerolog.Logger
}

func NewPostsService(repo repository.PostsRepository, config PostsConfig) *PostsService {
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = config.Logger.With().Str("component", "posts").Logger()
	}
	return &PostsService{
		repo:     repo,
		validate: newValidator(),
		appURL:   strings.TrimSuffix(strings.TrimSpace(config.AppURL), "/"),
		now:      config.Now,
		logger:   logger,
	}
}

func (s *PostsService) Get(ctx context.Context, ownerID, postID string) (*domain.Post, error) {
	return s.repo.GetPostForOwner(ctx, postID, ownerID)
}

type ContentInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// SaveContent replaces the body and recomputes the derived counters.
func (s *PostsService) SaveContent(ctx context.Context, ownerID, postID string, input ContentInput) (*domain.Post, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, domain.NewValidationError("content", "is required")
	}

	post, err := s.repo.GetPostForOwner(ctx, postID, ownerID)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(input.Title); title != "" {
		if len([]rune(title)) > artifact.MaxTitleLength {
			return nil, domain.NewValidationError("title", fmt.Sprintf("must be at most %d characters", artifact.MaxTitleLength))
		}
		post.Title = title
	}
	post.Content = input.Content
	post.WordCount = artifact.WordCount(input.Content)
	post.ReadingTimeMinutes = artifact.ReadingTime(post.WordCount)
	post.Excerpt = artifact.Excerpt(input.Content)
	post.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("update post content: %w", err)
	}
	return post, nil
}

type MetadataInput struct {
	Title            string `json:"title" validate:"omitempty,max=255"`
	Slug             string `json:"slug" validate:"omitempty,max=60"`
	MetaDescription  string `json:"meta_description" validate:"omitempty,max=320"`
	Keywords         string `json:"keywords" validate:"omitempty,max=500"`
	Category         string `json:"category" validate:"omitempty,max=100"`
	FeaturedImageURL string `json:"featured_image_url" validate:"omitempty,url"`
	AuthorName       string `json:"author_name" validate:"omitempty,max=100"`
}

// SaveMetadata stores SEO fields. The slug is always regenerated, from the
// explicit slug when given and from the title otherwise, with a fresh
// timestamp suffix.
func (s *PostsService) SaveMetadata(ctx context.Context, ownerID, postID string, input MetadataInput) (*domain.Post, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Slug = strings.TrimSpace(input.Slug)
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	post, err := s.repo.GetPostForOwner(ctx, postID, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if input.Title != "" {
		post.Title = input.Title
	}
	post.Slug = artifact.Slug(firstNonEmpty(input.Slug, post.Title), now)
	post.MetaDescription = strings.TrimSpace(input.MetaDescription)
	post.Keywords = strings.TrimSpace(input.Keywords)
	post.Category = strings.TrimSpace(input.Category)
	post.FeaturedImageURL = strings.TrimSpace(input.FeaturedImageURL)
	post.AuthorName = strings.TrimSpace(input.AuthorName)
	post.UpdatedAt = now

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("update post metadata: %w", err)
	}
	return post, nil
}

// Publish marks the post published and returns its public URL.
func (s *PostsService) Publish(ctx context.Context, ownerID, postID string) (*domain.Post, string, error) {
	post, err := s.repo.GetPostForOwner(ctx, postID, ownerID)
	if err != nil {
		return nil, "", err
	}

	now := s.now().UTC()
	post.Status = domain.PostStatusPublished
	post.PublishedAt = &now
	post.ScheduledAt = nil
	post.UpdatedAt = now

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, "", fmt.Errorf("publish post: %w", err)
	}

	s.logger.Info().Str("post_id", post.ID).Str("slug", post.Slug).Msg("post published")
	return post, s.PublicURL(post), nil
}

func (s *PostsService) Schedule(ctx context.Context, ownerID, postID string, at time.Time) (*domain.Post, error) {
	now := s.now().UTC()
	if at.IsZero() {
		return nil, domain.NewValidationError("scheduled_at", "is required")
	}
	if !at.After(now) {
		return nil, domain.NewValidationError("scheduled_at", "must be in the future")
	}

	post, err := s.repo.GetPostForOwner(ctx, postID, ownerID)
	if err != nil {
		return nil, err
	}

	scheduled := at.UTC()
	post.Status = domain.PostStatusScheduled
	post.ScheduledAt = &scheduled
	post.UpdatedAt = now

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("schedule post: %w", err)
	}
	return post, nil
}

func (s *PostsService) PublicURL(post *domain.Post) string {
	return s.appURL + "/posts/" + post.Slug
}
