package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id, owner_id, job_id, title, slug, content, excerpt, word_count,
	reading_time_minutes, status, meta_description, keywords, category, featured_image_url,
	author_name, scheduled_at, published_at, created_at, updated_at`

func (r *PostgresStore) CreatePost(ctx context.Context, post *domain.Post) error {
	return insertPost(ctx, r.pool, post)
}

func insertPost(ctx context.Context, db execer, post *domain.Post) error {
	_, err := db.Exec(ctx, `
		INSERT INTO blog_posts (`+postColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`,
		post.ID,
		post.OwnerID,
		post.JobID,
		post.Title,
		post.Slug,
		post.Content,
		post.Excerpt,
		post.WordCount,
		post.ReadingTimeMinutes,
		string(post.Status),
		post.MetaDescription,
		post.Keywords,
		post.Category,
		post.FeaturedImageURL,
		post.AuthorName,
		post.ScheduledAt,
		post.PublishedAt,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostgresStore) GetPostForOwner(ctx context.Context, postID, ownerID string) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts
		WHERE id = $1 AND owner_id = $2
	`, postID, ownerID)
	return scanPostRow(row)
}

func (r *PostgresStore) GetPostByJob(ctx context.Context, jobID string) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM blog_posts
		WHERE job_id = $1
		LIMIT 1
	`, jobID)
	return scanPostRow(row)
}

func (r *PostgresStore) UpdatePost(ctx context.Context, post *domain.Post) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE blog_posts
		SET title = $2,
			slug = $3,
			content = $4,
			excerpt = $5,
			word_count = $6,
			reading_time_minutes = $7,
			status = $8,
			meta_description = $9,
			keywords = $10,
			category = $11,
			featured_image_url = $12,
			author_name = $13,
			scheduled_at = $14,
			published_at = $15,
			updated_at = $16
		WHERE id = $1
	`,
		post.ID,
		post.Title,
		post.Slug,
		post.Content,
		post.Excerpt,
		post.WordCount,
		post.ReadingTimeMinutes,
		string(post.Status),
		post.MetaDescription,
		post.Keywords,
		post.Category,
		post.FeaturedImageURL,
		post.AuthorName,
		post.ScheduledAt,
		post.PublishedAt,
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if command.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPostRow(row pgx.Row) (*domain.Post, error) {
	var (
		post   domain.Post
		status string
	)
	err := row.Scan(
		&post.ID,
		&post.OwnerID,
		&post.JobID,
		&post.Title,
		&post.Slug,
		&post.Content,
		&post.Excerpt,
		&post.WordCount,
		&post.ReadingTimeMinutes,
		&status,
		&post.MetaDescription,
		&post.Keywords,
		&post.Category,
		&post.FeaturedImageURL,
		&post.AuthorName,
		&post.ScheduledAt,
		&post.PublishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query post: %w", err)
	}
	post.Status = domain.PostStatus(status)
	return &post, nil
}
