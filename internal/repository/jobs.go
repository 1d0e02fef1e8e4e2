package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iago/blog-generation-back/internal/domain"
)

// MemoryStore keeps jobs and posts in memory for local development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	jobs  map[string]*domain.Job
	posts map[string]*domain.Post

	// failPostInsert lets tests simulate a content store outage.
	failPostInsert error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:  make(map[string]*domain.Job),
		posts: make(map[string]*domain.Post),
	}
}

// FailPostInserts makes every following post insert return err (nil resets).
func (r *MemoryStore) FailPostInserts(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failPostInsert = err
}

func (r *MemoryStore) CreateJob(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insertJobLocked(job)
}

func (r *MemoryStore) CreateJobWithinQuota(_ context.Context, job *domain.Job, since time.Time, quota int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.countSinceLocked(job.OwnerID, since)
	if count >= quota {
		return count, domain.ErrQuotaExceeded
	}
	return count, r.insertJobLocked(job)
}

func (r *MemoryStore) insertJobLocked(job *domain.Job) error {
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("insert job: duplicate id %s", job.ID)
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryStore) FindPending(_ context.Context, limit int) ([]*domain.Job, error) {
	return r.collect(limit, func(job *domain.Job) bool {
		return job.Status == domain.JobStatusQueued
	}), nil
}

func (r *MemoryStore) FindStale(_ context.Context, startedBefore time.Time, limit int) ([]*domain.Job, error) {
	return r.collect(limit, func(job *domain.Job) bool {
		return job.Status == domain.JobStatusGenerating &&
			job.ProcessingStartedAt != nil &&
			job.ProcessingStartedAt.Before(startedBefore)
	}), nil
}

func (r *MemoryStore) collect(limit int, match func(*domain.Job) bool) []*domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*domain.Job, 0)
	for _, job := range r.jobs {
		if match(job) {
			items = append(items, cloneJob(job))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func (r *MemoryStore) UpdateLifecycle(_ context.Context, job *domain.Job, expected domain.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updateLifecycleLocked(job, expected)
}

func (r *MemoryStore) updateLifecycleLocked(job *domain.Job, expected domain.JobStatus) error {
	stored, ok := r.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status != expected {
		return fmt.Errorf("%w: job %s is %s, expected %s", domain.ErrConflict, job.ID, stored.Status, expected)
	}

	stored.Status = job.Status
	stored.ProcessingStartedAt = cloneTime(job.ProcessingStartedAt)
	stored.Result = job.Result
	stored.ErrorMessage = job.ErrorMessage
	stored.CompletedAt = cloneTime(job.CompletedAt)
	stored.UpdatedAt = job.UpdatedAt
	return nil
}

func (r *MemoryStore) CompleteJob(_ context.Context, job *domain.Job, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failPostInsert != nil {
		return fmt.Errorf("insert post: %w", r.failPostInsert)
	}
	if _, exists := r.posts[post.ID]; exists {
		return fmt.Errorf("insert post: duplicate id %s", post.ID)
	}
	if err := r.updateLifecycleLocked(job, domain.JobStatusGenerating); err != nil {
		return err
	}
	r.posts[post.ID] = clonePost(post)
	return nil
}

func (r *MemoryStore) GetJobForOwner(_ context.Context, jobID, ownerID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok || job.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *MemoryStore) CountJobsSince(_ context.Context, ownerID string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countSinceLocked(ownerID, since), nil
}

func (r *MemoryStore) countSinceLocked(ownerID string, since time.Time) int {
	total := 0
	for _, job := range r.jobs {
		if job.OwnerID == ownerID && !job.CreatedAt.Before(since) {
			total++
		}
	}
	return total
}

func cloneJob(job *domain.Job) *domain.Job {
	if job == nil {
		return nil
	}
	clone := *job
	clone.Params.Audience = append(domain.TagList(nil), job.Params.Audience...)
	clone.Params.Sections = append(domain.TagList(nil), job.Params.Sections...)
	clone.ProcessingStartedAt = cloneTime(job.ProcessingStartedAt)
	clone.CompletedAt = cloneTime(job.CompletedAt)
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
