package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iago/blog-generation-back/internal/ai"
	"github.com/iago/blog-generation-back/internal/artifact"
	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/iago/blog-generation-back/internal/events"
	"github.com/iago/blog-generation-back/internal/lock"
	"github.com/iago/blog-generation-back/internal/repository"
)

const (
	DefaultBatchSize  = 3
	DefaultStaleAfter = 10 * time.Minute
	DefaultLeaseTTL   = 5 * time.Minute

	staleScanLimit     = 100
	maxErrorMessageLen = 500
	timedOutMessage    = "generation timed out"
	writeTimeout       = 10 * time.Second
)

// ArticleGenerator produces the markdown body for a job.
type ArticleGenerator interface {
	GenerateArticle(ctx context.Context, params domain.JobParameters) (string, error)
}

type Config struct {
	BatchSize  int
	StaleAfter time.Duration
	LeaseTTL   time.Duration
	// GenerationTimeout bounds one generation call. Zero leaves it to the provider client.
	GenerationTimeout time.Duration
	Now               func() time.Time
	Logger            *zerolog.Logger
}

type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

type Outcome struct {
	JobID  string        `json:"job_id"`
	Status OutcomeStatus `json:"status"`
	PostID string        `json:"post_id,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type Summary struct {
	Processed int       `json:"processed"`
	Reclaimed int       `json:"reclaimed"`
	Results   []Outcome `json:"results"`
}

// Dispatcher drains a bounded batch of queued jobs per pass. Jobs are handled
// sequentially and every lifecycle write is conditional on the status read
// before it, so overlapping passes cannot process the same job twice.
type Dispatcher struct {
	repo      repository.JobsRepository
	generator ArticleGenerator
	lease     lock.Lease
	events    events.Publisher

	batchSize         int
	staleAfter        time.Duration
	leaseTTL          time.Duration
	generationTimeout time.Duration
	now               func() time.Time
	logger            zerolog.Logger
}

func NewDispatcher(
	repo repository.JobsRepository,
	generator ArticleGenerator,
	lease lock.Lease,
	publisher events.Publisher,
	config Config,
) *Dispatcher {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = DefaultStaleAfter
	}
	if config.LeaseTTL <= 0 {
		config.LeaseTTL = DefaultLeaseTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if lease == nil {
		lease = lock.NewLocalLease()
	}
	if publisher == nil {
		publisher = events.NewLocalPublisher(0)
	}
	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = config.Logger.With().Str("component", "dispatcher").Logger()
	}

	return &Dispatcher{
		repo:              repo,
		generator:         generator,
		lease:             lease,
		events:            publisher,
		batchSize:         config.BatchSize,
		staleAfter:        config.StaleAfter,
		leaseTTL:          config.LeaseTTL,
		generationTimeout: config.GenerationTimeout,
		now:               config.Now,
		logger:            logger,
	}
}

// RunOnce runs a single dispatch pass. It returns domain.ErrDispatchInProgress
// when another pass holds the lease. A store failure while recording an
// outcome aborts the pass; the summary still lists the jobs finished before it.
//
// Cancelling ctx stops the pass from claiming further jobs. A job already
// claimed runs to completion or failure regardless.
func (d *Dispatcher) RunOnce(ctx context.Context) (Summary, error) {
	summary := Summary{Results: []Outcome{}}

	release, ok, err := d.lease.Acquire(ctx, d.leaseTTL)
	if err != nil {
		return summary, err
	}
	if !ok {
		return summary, domain.ErrDispatchInProgress
	}
	defer release()

	reclaimed, err := d.reclaimStale(ctx)
	summary.Reclaimed = reclaimed
	if err != nil {
		return summary, err
	}

	jobs, err := d.repo.FindPending(ctx, d.batchSize)
	if err != nil {
		return summary, fmt.Errorf("find pending jobs: %w", err)
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}

		outcome, processErr := d.process(ctx, job)
		if outcome.JobID != "" {
			summary.Results = append(summary.Results, outcome)
			if outcome.Status != OutcomeSkipped {
				summary.Processed++
			}
		}
		if processErr != nil {
			return summary, processErr
		}
	}

	d.logger.Info().
		Int("processed", summary.Processed).
		Int("reclaimed", summary.Reclaimed).
		Int("pending_seen", len(jobs)).
		Msg("dispatch pass finished")
	return summary, nil
}

func (d *Dispatcher) process(ctx context.Context, job *domain.Job) (Outcome, error) {
	log := d.logger.With().Str("job_id", job.ID).Logger()

	if err := job.Start(d.now().UTC()); err != nil {
		return Outcome{JobID: job.ID, Status: OutcomeSkipped, Error: err.Error()}, nil
	}
	if err := d.repo.UpdateLifecycle(ctx, job, domain.JobStatusQueued); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.Debug().Msg("job claimed by another pass")
			return Outcome{JobID: job.ID, Status: OutcomeSkipped}, nil
		}
		return Outcome{}, fmt.Errorf("claim job %s: %w", job.ID, err)
	}
	log.Info().Str("topic", job.Params.Topic).Msg("job claimed")

	// From here on the job is generating; a cancelled pass must not strand it.
	ctx = context.WithoutCancel(ctx)

	content, err := d.generate(ctx, job.Params)
	if err != nil {
		log.Warn().Err(err).Str("kind", string(ai.KindOf(err))).Msg("generation failed")
		return d.fail(ctx, job, err.Error())
	}

	generating := *job
	completedAt := d.now().UTC()
	fields := artifact.Materialize(content, job.Params.Topic, completedAt)
	if err := job.Complete(content, completedAt); err != nil {
		return d.fail(ctx, &generating, fmt.Sprintf("invalid generation result: %v", err))
	}

	jobID := job.ID
	post := &domain.Post{
		ID:                 uuid.NewString(),
		OwnerID:            job.OwnerID,
		JobID:              &jobID,
		Title:              fields.Title,
		Slug:               fields.Slug,
		Content:            content,
		Excerpt:            fields.Excerpt,
		WordCount:          fields.WordCount,
		ReadingTimeMinutes: fields.ReadingTimeMinutes,
		Status:             domain.PostStatusDraft,
		CreatedAt:          completedAt,
		UpdatedAt:          completedAt,
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := d.repo.CompleteJob(writeCtx, job, post); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			log.Warn().Msg("job left generating before completion was recorded")
			return Outcome{JobID: job.ID, Status: OutcomeSkipped, Error: "job no longer generating"}, nil
		}
		log.Error().Err(err).Msg("artifact persistence failed")
		return d.fail(ctx, &generating, fmt.Sprintf("failed to save generated post: %v", err))
	}

	log.Info().Str("post_id", post.ID).Int("word_count", post.WordCount).Msg("job completed")
	d.publish(ctx, domain.DispatchEvent{
		JobID:   job.ID,
		OwnerID: job.OwnerID,
		Status:  domain.JobStatusCompleted,
		PostID:  post.ID,
		At:      completedAt,
	})
	return Outcome{JobID: job.ID, Status: OutcomeCompleted, PostID: post.ID}, nil
}

func (d *Dispatcher) generate(ctx context.Context, params domain.JobParameters) (string, error) {
	if d.generator == nil {
		return "", ai.ErrProviderUnavailable
	}
	if d.generationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.generationTimeout)
		defer cancel()
	}
	return d.generator.GenerateArticle(ctx, params)
}

// fail records the failure of a job this pass holds in generating.
func (d *Dispatcher) fail(ctx context.Context, job *domain.Job, message string) (Outcome, error) {
	message = truncate(message, maxErrorMessageLen)
	failedAt := d.now().UTC()
	if err := job.Fail(message, failedAt); err != nil {
		return Outcome{}, fmt.Errorf("fail job %s: %w", job.ID, err)
	}

	// The pass context may already be cancelled; the failure still has to land.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := d.repo.UpdateLifecycle(writeCtx, job, domain.JobStatusGenerating); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return Outcome{JobID: job.ID, Status: OutcomeSkipped, Error: message}, nil
		}
		return Outcome{JobID: job.ID, Status: OutcomeFailed, Error: message}, fmt.Errorf("record failure of job %s: %w", job.ID, err)
	}

	d.publish(ctx, domain.DispatchEvent{
		JobID:   job.ID,
		OwnerID: job.OwnerID,
		Status:  domain.JobStatusFailed,
		Error:   job.ErrorMessage,
		At:      failedAt,
	})
	return Outcome{JobID: job.ID, Status: OutcomeFailed, Error: job.ErrorMessage}, nil
}

// reclaimStale fails jobs stuck in generating longer than staleAfter, which
// happens when a pass dies between claim and completion.
func (d *Dispatcher) reclaimStale(ctx context.Context) (int, error) {
	now := d.now().UTC()
	stale, err := d.repo.FindStale(ctx, now.Add(-d.staleAfter), staleScanLimit)
	if err != nil {
		return 0, fmt.Errorf("find stale jobs: %w", err)
	}

	reclaimed := 0
	for _, job := range stale {
		if err := job.Fail(timedOutMessage, now); err != nil {
			continue
		}
		if err := d.repo.UpdateLifecycle(ctx, job, domain.JobStatusGenerating); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return reclaimed, fmt.Errorf("reclaim stale job %s: %w", job.ID, err)
		}

		reclaimed++
		d.logger.Warn().Str("job_id", job.ID).Time("started_at", *job.ProcessingStartedAt).Msg("stale job reclaimed")
		d.publish(ctx, domain.DispatchEvent{
			JobID:     job.ID,
			OwnerID:   job.OwnerID,
			Status:    domain.JobStatusFailed,
			Error:     timedOutMessage,
			Reclaimed: true,
			At:        now,
		})
	}
	return reclaimed, nil
}

func (d *Dispatcher) publish(ctx context.Context, event domain.DispatchEvent) {
	if err := d.events.Publish(context.WithoutCancel(ctx), event); err != nil {
		d.logger.Warn().Err(err).Str("job_id", event.JobID).Msg("publish dispatch event failed")
	}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
