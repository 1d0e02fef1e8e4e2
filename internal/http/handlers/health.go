package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	if len(api.healthChecks) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	statusCode := http.StatusOK
	checks := make(map[string]string, len(api.healthChecks))
	for name, check := range api.healthChecks {
		if err := check(ctx); err != nil {
			api.logger.Warn().Err(err).Str("check", name).Msg("health check failed")
			checks[name] = "unavailable"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, statusCode, map[string]any{"status": status, "checks": checks})
}
