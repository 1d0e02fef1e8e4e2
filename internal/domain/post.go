package domain

import "time"

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
)

// Post is the editable content artifact. JobID is nil for directly authored posts.
type Post struct {
	ID                 string
	OwnerID            string
	JobID              *string
	Title              string
	Slug               string
	Content            string
	Excerpt            string
	WordCount          int
	ReadingTimeMinutes int
	Status             PostStatus

	MetaDescription  string
	Keywords         string
	Category         string
	FeaturedImageURL string
	AuthorName       string

	ScheduledAt *time.Time
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
