package events

import (
	"context"
	"sync"

	"github.com/iago/blog-generation-back/internal/domain"
)

// Publisher records dispatch outcomes for downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event domain.DispatchEvent) error
	Recent(ctx context.Context, limit int) ([]domain.DispatchEvent, error)
}

// LocalPublisher keeps the last events in a bounded ring.
type LocalPublisher struct {
	mu       sync.Mutex
	events   []domain.DispatchEvent
	next     int
	full     bool
	capacity int
}

func NewLocalPublisher(capacity int) *LocalPublisher {
	if capacity <= 0 {
		capacity = 256
	}
	return &LocalPublisher{
		events:   make([]domain.DispatchEvent, capacity),
		capacity: capacity,
	}
}

func (p *LocalPublisher) Publish(_ context.Context, event domain.DispatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events[p.next] = event
	p.next = (p.next + 1) % p.capacity
	if p.next == 0 {
		p.full = true
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (p *LocalPublisher) Recent(_ context.Context, limit int) ([]domain.DispatchEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	size := p.next
	if p.full {
		size = p.capacity
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	result := make([]domain.DispatchEvent, 0, limit)
	for index := 1; index <= limit; index++ {
		position := (p.next - index + p.capacity) % p.capacity
		result = append(result, p.events[position])
	}
	return result, nil
}
