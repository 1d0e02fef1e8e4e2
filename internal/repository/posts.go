package repository

import (
	"context"
	"fmt"

	"github.com/iago/blog-generation-back/internal/domain"
)

func (r *MemoryStore) CreatePost(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failPostInsert != nil {
		return fmt.Errorf("insert post: %w", r.failPostInsert)
	}
	if _, exists := r.posts[post.ID]; exists {
		return fmt.Errorf("insert post: duplicate id %s", post.ID)
	}
	r.posts[post.ID] = clonePost(post)
	return nil
}

func (r *MemoryStore) GetPostForOwner(_ context.Context, postID, ownerID string) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[postID]
	if !ok || post.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return clonePost(post), nil
}

func (r *MemoryStore) GetPostByJob(_ context.Context, jobID string) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, post := range r.posts {
		if post.JobID != nil && *post.JobID == jobID {
			return clonePost(post), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryStore) UpdatePost(_ context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[post.ID]; !ok {
		return ErrNotFound
	}
	r.posts[post.ID] = clonePost(post)
	return nil
}

func clonePost(post *domain.Post) *domain.Post {
	if post == nil {
		return nil
	}
	clone := *post
	if post.JobID != nil {
		jobID := *post.JobID
		clone.JobID = &jobID
	}
	clone.ScheduledAt = cloneTime(post.ScheduledAt)
	clone.PublishedAt = cloneTime(post.PublishedAt)
	return &clone
}
