package repository

import (
	"context"
	"time"

	"github.com/iago/blog-generation-back/internal/domain"
)

// ErrNotFound is kept as an alias so callers can match either name.
var ErrNotFound = domain.ErrNotFound

// JobsRepository is the narrow contract the pipeline uses for generation jobs.
// Lifecycle writes are conditional on the status the caller last observed.
type JobsRepository interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	// CreateJobWithinQuota inserts job only while the owner has fewer than
	// quota jobs created at or after since. The count and the insert are one
	// atomic step; it returns the count seen and domain.ErrQuotaExceeded when
	// the limit is already reached.
	CreateJobWithinQuota(ctx context.Context, job *domain.Job, since time.Time, quota int) (int, error)
	FindPending(ctx context.Context, limit int) ([]*domain.Job, error)
	FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]*domain.Job, error)
	UpdateLifecycle(ctx context.Context, job *domain.Job, expected domain.JobStatus) error
	CompleteJob(ctx context.Context, job *domain.Job, post *domain.Post) error
	GetJobForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error)
	CountJobsSince(ctx context.Context, ownerID string, since time.Time) (int, error)
}

// PostsRepository persists content artifacts.
type PostsRepository interface {
	CreatePost(ctx context.Context, post *domain.Post) error
	GetPostForOwner(ctx context.Context, postID, ownerID string) (*domain.Post, error)
	GetPostByJob(ctx context.Context, jobID string) (*domain.Post, error)
	UpdatePost(ctx context.Context, post *domain.Post) error
}

// Store bundles both contracts. CompleteJob needs them in one backend so the
// artifact insert and the job completion commit together.
type Store interface {
	JobsRepository
	PostsRepository
}
