package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iago/blog-generation-back/internal/domain"
)

// Scheduler triggers dispatch passes from inside the process, for deployments
// without an external cron hitting the dispatch endpoint.
type Scheduler struct {
	dispatcher *Dispatcher
	logger     zerolog.Logger
}

func NewScheduler(dispatcher *Dispatcher, logger *zerolog.Logger) *Scheduler {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "scheduler").Logger()
	}
	return &Scheduler{dispatcher: dispatcher, logger: l}
}

// Start blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		summary, err := s.dispatcher.RunOnce(ctx)
		switch {
		case err == nil:
			if summary.Processed > 0 || summary.Reclaimed > 0 {
				s.logger.Debug().Int("processed", summary.Processed).Int("reclaimed", summary.Reclaimed).Msg("scheduled pass")
			}
		case errors.Is(err, domain.ErrDispatchInProgress):
			s.logger.Debug().Msg("dispatch already running, skipping tick")
		case ctx.Err() != nil:
			return
		default:
			s.logger.Error().Err(err).Msg("scheduled dispatch pass failed")
		}
	}
}
