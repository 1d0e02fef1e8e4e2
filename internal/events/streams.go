package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iago/blog-generation-back/internal/domain"
)

type StreamsConfig struct {
	Stream string
	MaxLen int64
}

// StreamsPublisher appends dispatch outcomes to a Redis stream trimmed to
// roughly MaxLen entries.
type StreamsPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamsPublisher(client *redis.Client, cfg StreamsConfig) (*StreamsPublisher, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if strings.TrimSpace(cfg.Stream) == "" {
		cfg.Stream = "blog_dispatch_events"
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = 10000
	}
	return &StreamsPublisher{client: client, stream: cfg.Stream, maxLen: cfg.MaxLen}, nil
}

func (p *StreamsPublisher) Publish(ctx context.Context, event domain.DispatchEvent) error {
	_, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: encodeEvent(event),
	}).Result()
	if err != nil {
		return fmt.Errorf("publish dispatch event: %w", err)
	}
	return nil
}

func (p *StreamsPublisher) Recent(ctx context.Context, limit int) ([]domain.DispatchEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	messages, err := p.client.XRevRangeN(ctx, p.stream, "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("read dispatch events: %w", err)
	}

	result := make([]domain.DispatchEvent, 0, len(messages))
	for _, message := range messages {
		event, parseErr := decodeEvent(message)
		if parseErr != nil {
			continue
		}
		result = append(result, event)
	}
	return result, nil
}

func encodeEvent(event domain.DispatchEvent) map[string]any {
	return map[string]any{
		"job_id":    event.JobID,
		"owner_id":  event.OwnerID,
		"status":    string(event.Status),
		"post_id":   event.PostID,
		"error":     event.Error,
		"reclaimed": strconv.FormatBool(event.Reclaimed),
		"at":        event.At.UTC().Format(time.RFC3339Nano),
	}
}

func decodeEvent(item redis.XMessage) (domain.DispatchEvent, error) {
	getString := func(key string) string {
		switch casted := item.Values[key].(type) {
		case string:
			return casted
		case []byte:
			return string(casted)
		case nil:
			return ""
		default:
			return fmt.Sprintf("%v", casted)
		}
	}

	jobID := getString("job_id")
	if jobID == "" {
		return domain.DispatchEvent{}, fmt.Errorf("stream entry %s: missing job_id", item.ID)
	}
	at, err := time.Parse(time.RFC3339Nano, getString("at"))
	if err != nil {
		return domain.DispatchEvent{}, fmt.Errorf("stream entry %s: parse at: %w", item.ID, err)
	}
	reclaimed, _ := strconv.ParseBool(getString("reclaimed"))

	return domain.DispatchEvent{
		JobID:     jobID,
		OwnerID:   getString("owner_id"),
		Status:    domain.JobStatus(getString("status")),
		PostID:    getString("post_id"),
		Error:     getString("error"),
		Reclaimed: reclaimed,
		At:        at,
	}, nil
}
