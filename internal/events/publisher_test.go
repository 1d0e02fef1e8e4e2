package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iago/blog-generation-back/internal/domain"
)

func TestLocalPublisherKeepsNewestFirst(t *testing.T) {
	publisher := NewLocalPublisher(3)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := publisher.Publish(ctx, domain.DispatchEvent{JobID: id}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	recent, err := publisher.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected ring capacity 3, got %d", len(recent))
	}
	if recent[0].JobID != "d" || recent[2].JobID != "b" {
		t.Fatalf("unexpected order %+v", recent)
	}

	limited, _ := publisher.Recent(ctx, 1)
	if len(limited) != 1 || limited[0].JobID != "d" {
		t.Fatalf("unexpected limited result %+v", limited)
	}
}

func TestDecodeEventRoundTrip(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	values := encodeEvent(domain.DispatchEvent{
		JobID:     "job-1",
		OwnerID:   "user-1",
		Status:    domain.JobStatusFailed,
		Error:     "generation timed out",
		Reclaimed: true,
		At:        at,
	})

	event, err := decodeEvent(redis.XMessage{ID: "1-0", Values: values})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.JobID != "job-1" || event.Status != domain.JobStatusFailed || !event.Reclaimed || !event.At.Equal(at) {
		t.Fatalf("unexpected event %+v", event)
	}

	if _, err := decodeEvent(redis.XMessage{ID: "2-0", Values: map[string]any{"status": "completed"}}); err == nil {
		t.Fatalf("expected error for entry without job_id")
	}
}

func TestStreamsPublisher(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	stream := "blog_test_events_" + time.Now().Format("150405.000000")
	defer client.Del(ctx, stream)

	publisher, err := NewStreamsPublisher(client, StreamsConfig{Stream: stream, MaxLen: 100})
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if err := publisher.Publish(ctx, domain.DispatchEvent{JobID: "job-1", Status: domain.JobStatusCompleted, At: time.Now()}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	recent, err := publisher.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0].JobID != "job-1" {
		t.Fatalf("unexpected recent events %+v", recent)
	}
}
