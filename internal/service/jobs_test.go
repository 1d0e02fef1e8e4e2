package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/iago/blog-generation-back/internal/repository"
)

func TestSubmitAppliesDefaultsAndQueues(t *testing.T) {
	store := repository.NewMemoryStore()
	service := NewJobsService(store, JobsConfig{Location: time.UTC})

	job, err := service.Submit(context.Background(), "user-1", domain.JobParameters{Topic: "  Remote Work Tips  "})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if job.Status != domain.JobStatusQueued {
		t.Fatalf("expected queued, got %s", job.Status)
	}
	if job.Params.Topic != "Remote Work Tips" {
		t.Fatalf("topic should be trimmed, got %q", job.Params.Topic)
	}
	if job.Params.Tone != domain.ToneProfessional || job.Params.Length != domain.LengthMedium {
		t.Fatalf("defaults not applied: %+v", job.Params)
	}
	if err := job.CheckInvariants(); err != nil {
		t.Fatalf("new job violates invariants: %v", err)
	}
}

func TestSubmitRejectsInvalidParameters(t *testing.T) {
	service := NewJobsService(repository.NewMemoryStore(), JobsConfig{})

	cases := map[string]domain.JobParameters{
		"topic":    {Topic: "   "},
		"tone":     {Topic: "Go", Tone: "sarcastic"},
		"length":   {Topic: "Go", Length: "epic"},
		"audience": {Topic: "Go", Audience: domain.TagList{"kids"}},
		"sections": {Topic: "Go", Sections: domain.TagList{"appendix"}},
	}
	for field, params := range cases {
		_, err := service.Submit(context.Background(), "user-1", params)
		var validationErr *domain.ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("%s: expected validation error, got %v", field, err)
		}
		if validationErr.Field != field {
			t.Fatalf("expected field %q, got %q", field, validationErr.Field)
		}
	}

	long := make([]byte, domain.MaxTopicLength+1)
	for index := range long {
		long[index] = 'a'
	}
	if _, err := service.Submit(context.Background(), "user-1", domain.JobParameters{Topic: string(long)}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected overlong topic to be rejected, got %v", err)
	}
}

func TestSubmitEnforcesDailyQuotaFromLocalMidnight(t *testing.T) {
	store := repository.NewMemoryStore()
	now := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	service := NewJobsService(store, JobsConfig{
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})

	for index := 0; index < DefaultDailyQuota; index++ {
		if _, err := service.Submit(context.Background(), "user-1", domain.JobParameters{Topic: "Go"}); err != nil {
			t.Fatalf("submission %d should pass, got %v", index+1, err)
		}
	}

	if _, err := service.Submit(context.Background(), "user-1", domain.JobParameters{Topic: "Go"}); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("sixth submission should exceed quota, got %v", err)
	}
	if _, err := service.Submit(context.Background(), "user-2", domain.JobParameters{Topic: "Go"}); err != nil {
		t.Fatalf("quota is per owner, got %v", err)
	}

	now = now.Add(time.Hour)
	if _, err := service.Submit(context.Background(), "user-1", domain.JobParameters{Topic: "Go"}); err != nil {
		t.Fatalf("quota should reset after midnight, got %v", err)
	}
}

func TestSubmitQuotaHoldsUnderConcurrentSubmissions(t *testing.T) {
	store := repository.NewMemoryStore()
	service := NewJobsService(store, JobsConfig{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) },
	})

	var accepted, rejected atomic.Int32
	var wg sync.WaitGroup
	for index := 0; index < 20; index++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Submit(context.Background(), "user-1", domain.JobParameters{Topic: "Go"})
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, domain.ErrQuotaExceeded):
				rejected.Add(1)
			default:
				t.Errorf("unexpected submit error: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted.Load() != DefaultDailyQuota || rejected.Load() != 20-DefaultDailyQuota {
		t.Fatalf("expected %d accepted, got %d accepted and %d rejected", DefaultDailyQuota, accepted.Load(), rejected.Load())
	}
	count, err := store.CountJobsSince(context.Background(), "user-1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != DefaultDailyQuota {
		t.Fatalf("expected %d stored jobs, got %d", DefaultDailyQuota, count)
	}
}

func TestStatusHidesForeignJobs(t *testing.T) {
	store := repository.NewMemoryStore()
	service := NewJobsService(store, JobsConfig{})

	job, err := service.Submit(context.Background(), "user-1", domain.JobParameters{Topic: "Go"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	view, err := service.Status(context.Background(), "user-1", job.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.Status != domain.JobStatusQueued || view.Progress != 5 {
		t.Fatalf("unexpected view %+v", view)
	}

	if _, err := service.Status(context.Background(), "user-2", job.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("foreign owner should get not found, got %v", err)
	}
	if _, err := service.Status(context.Background(), "user-1", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown id should get not found, got %v", err)
	}
}

func TestProgress(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(offset time.Duration) *time.Time {
		value := now.Add(-offset)
		return &value
	}

	cases := []struct {
		name    string
		status  domain.JobStatus
		started *time.Time
		want    int
	}{
		{"queued", domain.JobStatusQueued, nil, 5},
		{"generating without start", domain.JobStatusGenerating, nil, 0},
		{"generating just started", domain.JobStatusGenerating, at(500 * time.Millisecond), 0},
		{"generating 3s", domain.JobStatusGenerating, at(3 * time.Second), 45},
		{"generating capped", domain.JobStatusGenerating, at(time.Minute), 90},
		{"generating clock skew", domain.JobStatusGenerating, at(-5 * time.Second), 0},
		{"completed", domain.JobStatusCompleted, at(time.Minute), 100},
		{"failed", domain.JobStatusFailed, at(time.Minute), 0},
	}
	for _, tc := range cases {
		if got := Progress(tc.status, tc.started, now); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestStartOfDayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	now := time.Date(2024, 6, 2, 1, 0, 0, 0, time.UTC)

	start := StartOfDay(now, loc)
	want := time.Date(2024, 6, 1, 0, 0, 0, 0, loc)
	if !start.Equal(want) {
		t.Fatalf("expected %s, got %s", want, start)
	}
}
