package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iago/blog-generation-back/internal/domain"
	"github.com/iago/blog-generation-back/internal/http/middleware"
	"github.com/iago/blog-generation-back/internal/service"
)

type postResponse struct {
	ID                 string            `json:"id"`
	JobID              *string           `json:"job_id,omitempty"`
	Title              string            `json:"title"`
	Slug               string            `json:"slug"`
	Content            string            `json:"content"`
	Excerpt            string            `json:"excerpt"`
	WordCount          int               `json:"word_count"`
	ReadingTimeMinutes int               `json:"reading_time_minutes"`
	Status             domain.PostStatus `json:"status"`
	MetaDescription    string            `json:"meta_description,omitempty"`
	Keywords           string            `json:"keywords,omitempty"`
	Category           string            `json:"category,omitempty"`
	FeaturedImageURL   string            `json:"featured_image_url,omitempty"`
	AuthorName         string            `json:"author_name,omitempty"`
	ScheduledAt        *time.Time        `json:"scheduled_at,omitempty"`
	PublishedAt        *time.Time        `json:"published_at,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func toPostResponse(post *domain.Post) postResponse {
	return postResponse{
		ID:                 post.ID,
		JobID:              post.JobID,
		Title:              post.Title,
		Slug:               post.Slug,
		Content:            post.Content,
		Excerpt:            post.Excerpt,
		WordCount:          post.WordCount,
		ReadingTimeMinutes: post.ReadingTimeMinutes,
		Status:             post.Status,
		MetaDescription:    post.MetaDescription,
		Keywords:           post.Keywords,
		Category:           post.Category,
		FeaturedImageURL:   post.FeaturedImageURL,
		AuthorName:         post.AuthorName,
		ScheduledAt:        post.ScheduledAt,
		PublishedAt:        post.PublishedAt,
		CreatedAt:          post.CreatedAt,
		UpdatedAt:          post.UpdatedAt,
	}
}

func postID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "postID"))
}

func (api *API) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := api.posts.Get(r.Context(), middleware.GetOwnerID(r.Context()), postID(r))
	if err != nil {
		api.writeServiceError(w, r, err, "failed to load post")
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(post))
}

func (api *API) SavePostContent(w http.ResponseWriter, r *http.Request) {
	var input service.ContentInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	post, err := api.posts.SaveContent(r.Context(), middleware.GetOwnerID(r.Context()), postID(r), input)
	if err != nil {
		api.writeServiceError(w, r, err, "failed to save post content")
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(post))
}

func (api *API) SavePostMetadata(w http.ResponseWriter, r *http.Request) {
	var input service.MetadataInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	post, err := api.posts.SaveMetadata(r.Context(), middleware.GetOwnerID(r.Context()), postID(r), input)
	if err != nil {
		api.writeServiceError(w, r, err, "failed to save post metadata")
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(post))
}

func (api *API) PublishPost(w http.ResponseWriter, r *http.Request) {
	post, publicURL, err := api.posts.Publish(r.Context(), middleware.GetOwnerID(r.Context()), postID(r))
	if err != nil {
		api.writeServiceError(w, r, err, "failed to publish post")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"post": toPostResponse(post),
		"url":  publicURL,
	})
}

type scheduleRequest struct {
	ScheduledAt string `json:"scheduled_at"`
}

func (api *API) SchedulePost(w http.ResponseWriter, r *http.Request) {
	var request scheduleRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	var at time.Time
	if raw := strings.TrimSpace(request.ScheduledAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "scheduled_at must be an RFC3339 timestamp")
			return
		}
		at = parsed
	}

	post, err := api.posts.Schedule(r.Context(), middleware.GetOwnerID(r.Context()), postID(r), at)
	if err != nil {
		api.writeServiceError(w, r, err, "failed to schedule post")
		return
	}
	writeJSON(w, http.StatusOK, toPostResponse(post))
}
