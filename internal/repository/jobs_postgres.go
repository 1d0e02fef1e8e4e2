package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (r *PostgresStore) Close() {
	r.pool.Close()
}

// Ping backs the health endpoint.
func (r *PostgresStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// execer is satisfied by both the pool and a transaction.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const jobColumns = `id, owner_id, topic, tone, content_type, length_preference, target_audience,
	sections_to_include, status, processing_started_at, result, error_message, completed_at,
	created_at, updated_at`

func (r *PostgresStore) CreateJob(ctx context.Context, job *domain.Job) error {
	return insertJob(ctx, r.pool, job)
}

// CreateJobWithinQuota serializes intake per owner with a transaction-scoped
// advisory lock, so concurrent submissions cannot both pass the count.
func (r *PostgresStore) CreateJobWithinQuota(ctx context.Context, job *domain.Job, since time.Time, quota int) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin intake tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, job.OwnerID); err != nil {
		return 0, fmt.Errorf("lock owner quota: %w", err)
	}

	var count int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM generation_jobs
		WHERE owner_id = $1 AND created_at >= $2
	`, job.OwnerID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	if count >= quota {
		return count, domain.ErrQuotaExceeded
	}

	if err := insertJob(ctx, tx, job); err != nil {
		return count, err
	}
	if err := tx.Commit(ctx); err != nil {
		return count, fmt.Errorf("commit intake tx: %w", err)
	}
	return count, nil
}

func insertJob(ctx context.Context, db execer, job *domain.Job) error {
	_, err := db.Exec(ctx, `
		INSERT INTO generation_jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULLIF($11,''),NULLIF($12,''),$13,$14,$15)
	`,
		job.ID,
		job.OwnerID,
		job.Params.Topic,
		string(job.Params.Tone),
		string(job.Params.ContentType),
		string(job.Params.Length),
		job.Params.Audience.CSV(),
		job.Params.Sections.CSV(),
		string(job.Status),
		job.ProcessingStartedAt,
		job.Result,
		job.ErrorMessage,
		job.CompletedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *PostgresStore) FindPending(ctx context.Context, limit int) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM generation_jobs
		WHERE status = 'queued'
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}
	return collectJobs(rows)
}

func (r *PostgresStore) FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+`
		FROM generation_jobs
		WHERE status = 'generating' AND processing_started_at < $1
		ORDER BY processing_started_at ASC
		LIMIT $2
	`, startedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale jobs: %w", err)
	}
	return collectJobs(rows)
}

func (r *PostgresStore) UpdateLifecycle(ctx context.Context, job *domain.Job, expected domain.JobStatus) error {
	return updateLifecycle(ctx, r.pool, job, expected)
}

func updateLifecycle(ctx context.Context, db execer, job *domain.Job, expected domain.JobStatus) error {
	command, err := db.Exec(ctx, `
		UPDATE generation_jobs
		SET status = $3,
			processing_started_at = $4,
			result = NULLIF($5,''),
			error_message = NULLIF($6,''),
			completed_at = $7,
			updated_at = $8
		WHERE id = $1 AND status = $2
	`,
		job.ID,
		string(expected),
		string(job.Status),
		job.ProcessingStartedAt,
		job.Result,
		job.ErrorMessage,
		job.CompletedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update job lifecycle: %w", err)
	}
	if command.RowsAffected() == 0 {
		return fmt.Errorf("%w: job %s no longer %s", domain.ErrConflict, job.ID, expected)
	}
	return nil
}

func (r *PostgresStore) CompleteJob(ctx context.Context, job *domain.Job, post *domain.Post) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin complete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := insertPost(ctx, tx, post); err != nil {
		return err
	}
	if err := updateLifecycle(ctx, tx, job, domain.JobStatusGenerating); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit complete tx: %w", err)
	}
	return nil
}

func (r *PostgresStore) GetJobForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM generation_jobs
		WHERE id = $1 AND owner_id = $2
	`, jobID, ownerID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

func (r *PostgresStore) CountJobsSince(ctx context.Context, ownerID string, since time.Time) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM generation_jobs
		WHERE owner_id = $1 AND created_at >= $2
	`, ownerID, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return total, nil
}

func collectJobs(rows pgx.Rows) ([]*domain.Job, error) {
	defer rows.Close()

	items := make([]*domain.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, job)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate jobs: %w", rows.Err())
	}
	return items, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job          domain.Job
		tone         string
		contentType  string
		length       string
		audience     string
		sections     string
		status       string
		result       *string
		errorMessage *string
	)
	err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.Params.Topic,
		&tone,
		&contentType,
		&length,
		&audience,
		&sections,
		&status,
		&job.ProcessingStartedAt,
		&result,
		&errorMessage,
		&job.CompletedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Params.Tone = domain.Tone(tone)
	job.Params.ContentType = domain.ContentType(contentType)
	job.Params.Length = domain.Length(length)
	job.Params.Audience = domain.ParseTagList(strings.Split(audience, ","))
	job.Params.Sections = domain.ParseTagList(strings.Split(sections, ","))
	job.Status = domain.JobStatus(status)
	if result != nil {
		job.Result = *result
	}
	if errorMessage != nil {
		job.ErrorMessage = *errorMessage
	}
	return &job, nil
}
