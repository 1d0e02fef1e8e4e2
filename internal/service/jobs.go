package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/iago/blog-generation-back/internal/repository"
)

const (
	DefaultDailyQuota          = 5
	EstimatedGenerationSeconds = 60
)

type JobsConfig struct {
	DailyQuota int
	// Location defines where the quota day starts. Defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
	Logger   *zerolog.Logger
}

type JobsService struct {
	repo     repository.Store
	validate *validator.Validate
	quota    int
	location *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

func NewJobsService(repo repository.Store, config JobsConfig) *JobsService {
	if config.DailyQuota <= 0 {
		config.DailyQuota = DefaultDailyQuota
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = config.Logger.With().Str("component", "jobs").Logger()
	}

	return &JobsService{
		repo:     repo,
		validate: newValidator(),
		quota:    config.DailyQuota,
		location: config.Location,
		now:      config.Now,
		logger:   logger,
	}
}

// Submit validates params, enforces the daily quota and stores a queued job.
// Nothing else happens at intake; generation is left to the dispatcher.
func (s *JobsService) Submit(ctx context.Context, ownerID string, params domain.JobParameters) (*domain.Job, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, domain.NewValidationError("owner", "is required")
	}

	params = params.WithDefaults()
	if err := s.validate.Struct(params); err != nil {
		return nil, validationError(err)
	}

	now := s.now()
	since := StartOfDay(now, s.location)
	job := domain.NewJob(uuid.NewString(), ownerID, params, now.UTC())
	count, err := s.repo.CreateJobWithinQuota(ctx, job, since, s.quota)
	if errors.Is(err, domain.ErrQuotaExceeded) {
		return nil, fmt.Errorf("%w: %d of %d used since %s", domain.ErrQuotaExceeded, count, s.quota, since.Format(time.RFC3339))
	}
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", ownerID).
		Str("length", string(params.Length)).
		Msg("generation job queued")
	return job, nil
}

type StatusView struct {
	JobID          string
	Status         domain.JobStatus
	Progress       int
	Topic          string
	Tone           domain.Tone
	Length         domain.Length
	Result         string
	PartialContent string
	Error          string
	PostID         string
	CreatedAt      time.Time
	CompletedAt    *time.Time
}

// Status returns the owner's view of a job. Unknown and foreign ids are both
// reported as not found.
func (s *JobsService) Status(ctx context.Context, ownerID, jobID string) (StatusView, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return StatusView{}, domain.NewValidationError("jobId", "is required")
	}

	job, err := s.repo.GetJobForOwner(ctx, jobID, ownerID)
	if err != nil {
		return StatusView{}, err
	}

	view := StatusView{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    Progress(job.Status, job.ProcessingStartedAt, s.now()),
		Topic:       job.Params.Topic,
		Tone:        job.Params.Tone,
		Length:      job.Params.Length,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}

	switch job.Status {
	case domain.JobStatusCompleted:
		view.Result = job.Result
		post, postErr := s.repo.GetPostByJob(ctx, job.ID)
		switch {
		case postErr == nil:
			view.PostID = post.ID
		case !errors.Is(postErr, domain.ErrNotFound):
			return StatusView{}, fmt.Errorf("find post for job %s: %w", job.ID, postErr)
		}
	case domain.JobStatusFailed:
		view.Error = job.ErrorMessage
	case domain.JobStatusGenerating:
		view.PartialContent = job.Result
	}
	return view, nil
}

// Progress is a display heuristic, not a measurement. Generating jobs gain 15
// points per elapsed second and stay capped at 90 until they complete.
func Progress(status domain.JobStatus, startedAt *time.Time, now time.Time) int {
	switch status {
	case domain.JobStatusQueued:
		return 5
	case domain.JobStatusCompleted:
		return 100
	case domain.JobStatusGenerating:
		if startedAt == nil {
			return 0
		}
		elapsed := now.Sub(*startedAt)
		if elapsed <= 0 {
			return 0
		}
		seconds := math.Floor(elapsed.Seconds())
		return int(math.Min(90, seconds*15))
	default:
		return 0
	}
}

// StartOfDay returns local midnight of now in loc.
func StartOfDay(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
