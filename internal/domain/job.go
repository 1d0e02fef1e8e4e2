package domain

import (
	"fmt"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further automatic transition can happen.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

const unknownFailure = "unknown error"

// Job is a tracked request to generate one blog post asynchronously.
// Params never change after intake; lifecycle fields only change through
// Start, Complete and Fail.
type Job struct {
	ID                  string
	OwnerID             string
	Params              JobParameters
	Status              JobStatus
	ProcessingStartedAt *time.Time
	Result              string
	ErrorMessage        string
	CompletedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewJob builds a queued job for already validated parameters.
func NewJob(id, ownerID string, params JobParameters, now time.Time) *Job {
	return &Job{
		ID:        id,
		OwnerID:   ownerID,
		Params:    params,
		Status:    JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

var allowedTransitions = map[JobStatus][]JobStatus{
	JobStatusQueued:     {JobStatusGenerating},
	JobStatusGenerating: {JobStatusCompleted, JobStatusFailed},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to JobStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (j *Job) transition(to JobStatus, at time.Time) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s -> %s (job %s)", ErrInvalidTransition, j.Status, to, j.ID)
	}
	j.Status = to
	j.UpdatedAt = at
	return nil
}

// Start moves a queued job into generating and stamps ProcessingStartedAt.
func (j *Job) Start(at time.Time) error {
	if err := j.transition(JobStatusGenerating, at); err != nil {
		return err
	}
	started := at
	j.ProcessingStartedAt = &started
	return nil
}

func (j *Job) Complete(result string, at time.Time) error {
	if strings.TrimSpace(result) == "" {
		return fmt.Errorf("%w: empty result for job %s", ErrInvalidTransition, j.ID)
	}
	if err := j.transition(JobStatusCompleted, at); err != nil {
		return err
	}
	completed := at
	j.Result = result
	j.ErrorMessage = ""
	j.CompletedAt = &completed
	return nil
}

func (j *Job) Fail(message string, at time.Time) error {
	if err := j.transition(JobStatusFailed, at); err != nil {
		return err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = unknownFailure
	}
	j.ErrorMessage = message
	j.Result = ""
	return nil
}

// CheckInvariants validates the lifecycle field invariants for the current status.
func (j *Job) CheckInvariants() error {
	if (j.ProcessingStartedAt == nil) != (j.Status == JobStatusQueued) {
		return fmt.Errorf("job %s: processing_started_at inconsistent with status %s", j.ID, j.Status)
	}
	if (j.Result != "") != (j.Status == JobStatusCompleted) {
		return fmt.Errorf("job %s: result inconsistent with status %s", j.ID, j.Status)
	}
	if (j.ErrorMessage != "") != (j.Status == JobStatusFailed) {
		return fmt.Errorf("job %s: error_message inconsistent with status %s", j.ID, j.Status)
	}
	return nil
}

// DispatchEvent records one job outcome of a dispatcher pass.
type DispatchEvent struct {
	JobID     string    `json:"job_id"`
	OwnerID   string    `json:"owner_id"`
	Status    JobStatus `json:"status"`
	PostID    string    `json:"post_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Reclaimed bool      `json:"reclaimed,omitempty"`
	At        time.Time `json:"at"`
}
