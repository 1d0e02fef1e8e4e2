package handlers

import (
	"net/http"

	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/iago/blog-generation-back/internal/worker"
)

const (
	defaultEventsLimit = 50
	maxEventsLimit     = 500
)

// Dispatch runs a single pass. It is triggered by the scheduler's cron call
// and answers with the per-job outcomes of that pass.
func (api *API) Dispatch(w http.ResponseWriter, r *http.Request) {
	summary, err := api.dispatcher.RunOnce(r.Context())
	if err != nil {
		api.writeServiceError(w, r, err, "dispatch pass failed")
		return
	}
	if summary.Results == nil {
		summary.Results = []worker.Outcome{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func (api *API) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"), defaultEventsLimit, maxEventsLimit)

	items, err := api.events.Recent(r.Context(), limit)
	if err != nil {
		api.writeServiceError(w, r, err, "failed to read dispatch events")
		return
	}
	if items == nil {
		items = []domain.DispatchEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": items})
}
