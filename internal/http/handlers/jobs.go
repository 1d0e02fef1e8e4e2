package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/iago/blog-generation-back/internal/http/middleware"
	"github.com/iago/blog-generation-back/internal/service"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 128
	statusRetryAfter  = "2"
)

// generateRequest accepts the snake_case fields and the camelCase names older
// clients still send.
type generateRequest struct {
	Topic             string         `json:"topic"`
	Tone              string         `json:"tone"`
	ContentType       string         `json:"content_type"`
	ContentTypeAlias  string         `json:"contentType"`
	Length            string         `json:"length"`
	LengthPreference  string         `json:"lengthPreference"`
	Audience          domain.TagList `json:"audience"`
	TargetAudience    domain.TagList `json:"targetAudience"`
	Sections          domain.TagList `json:"sections"`
	SectionsToInclude domain.TagList `json:"sectionsToInclude"`
}

func (req generateRequest) params() domain.JobParameters {
	params := domain.JobParameters{
		Topic:       req.Topic,
		Tone:        domain.Tone(normalizeEnum(req.Tone)),
		ContentType: domain.ContentType(normalizeEnum(firstNonEmpty(req.ContentType, req.ContentTypeAlias))),
		Length:      domain.Length(normalizeEnum(firstNonEmpty(req.Length, req.LengthPreference))),
		Audience:    req.Audience,
		Sections:    req.Sections,
	}
	if len(params.Audience) == 0 {
		params.Audience = req.TargetAudience
	}
	if len(params.Sections) == 0 {
		params.Sections = req.SectionsToInclude
	}
	return params
}

type generateResponse struct {
	JobID            string           `json:"job_id"`
	Status           domain.JobStatus `json:"status"`
	StatusURL        string           `json:"status_url"`
	EstimatedSeconds int              `json:"estimated_seconds"`
	RequestID        string           `json:"request_id"`
}

// Generate queues a generation job and answers before any model call happens.
func (api *API) Generate(w http.ResponseWriter, r *http.Request) {
	var request generateRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	ownerID := middleware.GetOwnerID(r.Context())
	params := request.params()

	idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if len(idempotencyKey) > maxIdempotencyKey {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "Idempotency-Key must have at most 128 chars")
		return
	}
	var payloadHash uint64
	scopedKey := ""
	if idempotencyKey != "" {
		scopedKey = ownerID + ":" + idempotencyKey
		payloadHash = hashPayload(params)
		if entry, ok := api.idempotency.Get(scopedKey); ok {
			if entry.PayloadHash != payloadHash {
				writeError(w, r, http.StatusConflict, "idempotency_conflict", "Idempotency-Key was already used with a different payload")
				return
			}
			status := domain.JobStatusQueued
			if view, err := api.jobs.Status(r.Context(), ownerID, entry.JobID); err == nil {
				status = view.Status
			}
			api.writeAccepted(w, r, entry.JobID, status)
			return
		}
	}

	job, err := api.jobs.Submit(r.Context(), ownerID, params)
	if err != nil {
		api.writeServiceError(w, r, err, "failed to queue generation job")
		return
	}
	if scopedKey != "" {
		api.idempotency.Put(scopedKey, payloadHash, job.ID)
	}

	api.writeAccepted(w, r, job.ID, job.Status)
}

func (api *API) writeAccepted(w http.ResponseWriter, r *http.Request, jobID string, status domain.JobStatus) {
	statusURL := "/v1/status?jobId=" + url.QueryEscape(jobID)
	w.Header().Set("Location", statusURL)
	w.Header().Set("Retry-After", statusRetryAfter)
	writeJSON(w, http.StatusAccepted, generateResponse{
		JobID:            jobID,
		Status:           status,
		StatusURL:        statusURL,
		EstimatedSeconds: service.EstimatedGenerationSeconds,
		RequestID:        middleware.GetRequestID(r.Context()),
	})
}

type statusResponse struct {
	JobID          string           `json:"job_id"`
	Status         domain.JobStatus `json:"status"`
	Progress       int              `json:"progress"`
	Topic          string           `json:"topic"`
	Tone           domain.Tone      `json:"tone"`
	Length         domain.Length    `json:"length"`
	Result         string           `json:"result,omitempty"`
	PartialContent string           `json:"partial_content,omitempty"`
	Error          *statusError     `json:"error,omitempty"`
	PostID         string           `json:"post_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
}

type statusError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JobStatus serves both /v1/status?jobId= and /v1/jobs/{jobID}.
func (api *API) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(chi.URLParam(r, "jobID"))
	if jobID == "" {
		jobID = strings.TrimSpace(r.URL.Query().Get("jobId"))
	}

	view, err := api.jobs.Status(r.Context(), middleware.GetOwnerID(r.Context()), jobID)
	if err != nil {
		api.writeServiceError(w, r, err, "failed to load job")
		return
	}

	response := statusResponse{
		JobID:          view.JobID,
		Status:         view.Status,
		Progress:       view.Progress,
		Topic:          view.Topic,
		Tone:           view.Tone,
		Length:         view.Length,
		Result:         view.Result,
		PartialContent: view.PartialContent,
		PostID:         view.PostID,
		CreatedAt:      view.CreatedAt,
		CompletedAt:    view.CompletedAt,
	}
	if view.Status == domain.JobStatusFailed {
		response.Error = &statusError{Code: "generation_failed", Message: view.Error}
	}
	if !view.Status.Terminal() {
		w.Header().Set("Retry-After", statusRetryAfter)
	}

	writeJSON(w, http.StatusOK, response)
}

func normalizeEnum(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseLimit(raw string, fallback, max int) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
