package handlers

import (
	"net/http"

	"github.com/iago/blog-generation-back/internal/service"
)

type rewriteRequest struct {
	Text        string `json:"text"`
	Instruction string `json:"instruction"`
	Tone        string `json:"tone,omitempty"`
}

func (api *API) Rewrite(w http.ResponseWriter, r *http.Request) {
	var request rewriteRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	result, err := api.generation.Rewrite(r.Context(), service.RewriteInput{
		Text:        request.Text,
		Instruction: request.Instruction,
		Tone:        request.Tone,
	})
	if err != nil {
		api.writeServiceError(w, r, err, "failed to rewrite text")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

type keywordsRequest struct {
	Content string `json:"content"`
	Count   int    `json:"count,omitempty"`
}

// ExtractKeywords always answers 200; generation problems yield an empty list.
func (api *API) ExtractKeywords(w http.ResponseWriter, r *http.Request) {
	var request keywordsRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if request.Count < 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "count must not be negative")
		return
	}

	keywords := api.generation.ExtractKeywords(r.Context(), request.Content, request.Count)
	writeJSON(w, http.StatusOK, map[string]any{"keywords": keywords})
}
