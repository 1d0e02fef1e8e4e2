package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iago/blog-generation-back/internal/ai"
	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/iago/blog-generation-back/internal/events"
	"github.com/iago/blog-generation-back/internal/http/middleware"
	"github.com/iago/blog-generation-back/internal/service"
	"github.com/iago/blog-generation-back/internal/worker"
)

const idempotencyTTL = 24 * time.Hour

var errInvalidPayload = errors.New("invalid payload")

// Dispatcher runs one dispatch pass on demand.
type Dispatcher interface {
	RunOnce(ctx context.Context) (worker.Summary, error)
}

// HealthCheck reports whether a backing dependency answers.
type HealthCheck func(ctx context.Context) error

type Dependencies struct {
	Jobs         *service.JobsService
	Posts        *service.PostsService
	Generation   *service.GenerationService
	Dispatcher   Dispatcher
	Events       events.Publisher
	HealthChecks map[string]HealthCheck
	Logger       *zerolog.Logger
}

type API struct {
	jobs         *service.JobsService
	posts        *service.PostsService
	generation   *service.GenerationService
	dispatcher   Dispatcher
	events       events.Publisher
	healthChecks map[string]HealthCheck
	idempotency  *idempotencyStore
	logger       zerolog.Logger
}

func NewAPI(deps Dependencies) *API {
	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = deps.Logger.With().Str("component", "http").Logger()
	}
	return &API{
		jobs:         deps.Jobs,
		posts:        deps.Posts,
		generation:   deps.Generation,
		dispatcher:   deps.Dispatcher,
		events:       deps.Events,
		healthChecks: deps.HealthChecks,
		idempotency:  newIdempotencyStore(idempotencyTTL),
		logger:       logger,
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

// writeServiceError maps domain and provider failures onto the error envelope.
func (api *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var validation *domain.ValidationError
	var providerErr *ai.ProviderError

	switch {
	case errors.As(err, &validation):
		writeError(w, r, http.StatusBadRequest, "invalid_request", validation.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeError(w, r, http.StatusTooManyRequests, "rate_limited", domain.ErrQuotaExceeded.Error())
	case errors.Is(err, domain.ErrDispatchInProgress):
		writeError(w, r, http.StatusConflict, "dispatch_in_progress", domain.ErrDispatchInProgress.Error())
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, ai.ErrProviderUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "provider_unavailable", "generation provider is not configured")
	case errors.As(err, &providerErr):
		api.logger.Warn().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg("provider call failed")
		writeError(w, r, http.StatusBadGateway, "provider_error", string(providerErr.Kind))
	default:
		api.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg(fallback)
		writeError(w, r, http.StatusInternalServerError, "internal_error", fallback)
	}
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

type idempotencyEntry struct {
	PayloadHash uint64
	JobID       string
	CreatedAt   time.Time
}

type idempotencyStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]idempotencyEntry
}

func newIdempotencyStore(ttl time.Duration) *idempotencyStore {
	return &idempotencyStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]idempotencyEntry),
	}
}

func (s *idempotencyStore) Get(key string) (idempotencyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return idempotencyEntry{}, false
	}
	if s.ttl > 0 && s.now().Sub(entry.CreatedAt) > s.ttl {
		delete(s.entries, key)
		return idempotencyEntry{}, false
	}
	return entry, true
}

func (s *idempotencyStore) Put(key string, payloadHash uint64, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = idempotencyEntry{
		PayloadHash: payloadHash,
		JobID:       jobID,
		CreatedAt:   s.now().UTC(),
	}
}

func hashPayload(value any) uint64 {
	payload, _ := json.Marshal(value)
	hasher := fnv.New64a()
	_, _ = hasher.Write(payload)
	return hasher.Sum64()
}
