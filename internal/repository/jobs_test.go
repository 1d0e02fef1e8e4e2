package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/iago/blog-generation-back/internal/domain"
)

func seedJobs(t *testing.T, store *MemoryStore, base time.Time, count int) []*domain.Job {
	t.Helper()
	jobs := make([]*domain.Job, 0, count)
	for i := 0; i < count; i++ {
		job := domain.NewJob(
			fmt.Sprintf("job-%d", i),
			"user-1",
			domain.JobParameters{Topic: fmt.Sprintf("topic %d", i)}.WithDefaults(),
			base.Add(time.Duration(i)*time.Minute),
		)
		if err := store.CreateJob(context.Background(), job); err != nil {
			t.Fatalf("create job: %v", err)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

func TestFindPendingReturnsOldestFirstWithinLimit(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	// insert out of order to make sure ordering is by created_at
	late := domain.NewJob("late", "user-2", domain.JobParameters{Topic: "late"}.WithDefaults(), base.Add(time.Hour))
	_ = store.CreateJob(context.Background(), late)
	seedJobs(t, store, base, 4)

	pending, err := store.FindPending(context.Background(), 3)
	if err != nil {
		t.Fatalf("find pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(pending))
	}
	for i, job := range pending {
		if job.ID != fmt.Sprintf("job-%d", i) {
			t.Fatalf("unexpected order at %d: %s", i, job.ID)
		}
	}
}

func TestUpdateLifecycleIsConditional(t *testing.T) {
	store := NewMemoryStore()
	jobs := seedJobs(t, store, time.Now().UTC(), 1)
	now := time.Now().UTC()

	first := *jobs[0]
	if err := first.Start(now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := store.UpdateLifecycle(context.Background(), &first, domain.JobStatusQueued); err != nil {
		t.Fatalf("first claim should win: %v", err)
	}

	second := *jobs[0]
	_ = second.Start(now)
	err := store.UpdateLifecycle(context.Background(), &second, domain.JobStatusQueued)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second claim should lose with ErrConflict, got %v", err)
	}
}

func TestCompleteJobIsAtomicWithPostInsert(t *testing.T) {
	store := NewMemoryStore()
	jobs := seedJobs(t, store, time.Now().UTC(), 1)
	now := time.Now().UTC()

	job := jobs[0]
	_ = job.Start(now)
	if err := store.UpdateLifecycle(context.Background(), job, domain.JobStatusQueued); err != nil {
		t.Fatalf("claim: %v", err)
	}

	store.FailPostInserts(errors.New("content store down"))
	completed := *job
	_ = completed.Complete("# Title", now)
	jobID := job.ID
	post := &domain.Post{ID: "post-1", OwnerID: job.OwnerID, JobID: &jobID, Status: domain.PostStatusDraft}
	if err := store.CompleteJob(context.Background(), &completed, post); err == nil {
		t.Fatalf("expected completion to fail when post insert fails")
	}

	stored, err := store.GetJobForOwner(context.Background(), job.ID, job.OwnerID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.Status != domain.JobStatusGenerating {
		t.Fatalf("job must stay generating when artifact insert fails, got %s", stored.Status)
	}

	store.FailPostInserts(nil)
	if err := store.CompleteJob(context.Background(), &completed, post); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := store.GetPostByJob(context.Background(), job.ID); err != nil {
		t.Fatalf("expected post linked to job: %v", err)
	}
}

func TestGetJobForOwnerHidesForeignJobs(t *testing.T) {
	store := NewMemoryStore()
	jobs := seedJobs(t, store, time.Now().UTC(), 1)

	if _, err := store.GetJobForOwner(context.Background(), jobs[0].ID, "someone-else"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
	if _, err := store.GetJobForOwner(context.Background(), "missing", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown id, got %v", err)
	}
}

func TestFindStaleAndCountSince(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	jobs := seedJobs(t, store, base, 3)

	_ = jobs[0].Start(base)
	_ = store.UpdateLifecycle(context.Background(), jobs[0], domain.JobStatusQueued)
	_ = jobs[1].Start(base.Add(30 * time.Minute))
	_ = store.UpdateLifecycle(context.Background(), jobs[1], domain.JobStatusQueued)

	stale, err := store.FindStale(context.Background(), base.Add(10*time.Minute), 10)
	if err != nil {
		t.Fatalf("find stale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != jobs[0].ID {
		t.Fatalf("expected only the oldest generating job to be stale, got %d", len(stale))
	}

	count, err := store.CountJobsSince(context.Background(), "user-1", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 jobs since cutoff, got %d", count)
	}
}

func TestCreateJobWithinQuota(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	seedJobs(t, store, base, 2)

	third := domain.NewJob("job-2", "user-1", domain.JobParameters{Topic: "third"}.WithDefaults(), base.Add(time.Hour))
	count, err := store.CreateJobWithinQuota(context.Background(), third, base, 3)
	if err != nil || count != 2 {
		t.Fatalf("expected insert below quota, got count=%d err=%v", count, err)
	}

	fourth := domain.NewJob("job-3", "user-1", domain.JobParameters{Topic: "fourth"}.WithDefaults(), base.Add(2*time.Hour))
	count, err = store.CreateJobWithinQuota(context.Background(), fourth, base, 3)
	if !errors.Is(err, domain.ErrQuotaExceeded) || count != 3 {
		t.Fatalf("expected quota exceeded at 3, got count=%d err=%v", count, err)
	}
	if _, err := store.GetJobForOwner(context.Background(), "job-3", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rejected job must not be stored, got %v", err)
	}

	// Jobs before the cutoff do not count.
	if _, err := store.CreateJobWithinQuota(context.Background(), fourth, base.Add(30*time.Minute), 3); err != nil {
		t.Fatalf("expected insert after cutoff moved, got %v", err)
	}
}
