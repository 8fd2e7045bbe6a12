package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Stewz00/go-backoffice-service/internal/lib/logger/sl"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/google/uuid"
)

type Publisher interface {
	Publish(ctx context.Context, key, data []byte) error
}

type Provider interface {
	NewEvents(ctx context.Context, limit int) ([]model.Event, error)
	SetEventDone(ctx context.Context, id uuid.UUID) error
}

// Sender moves outbox events to the publisher on a fixed interval.
type Sender struct {
	log       *slog.Logger
	publisher Publisher
	provider  Provider

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started atomic.Bool
}

func NewSender(log *slog.Logger, publisher Publisher, provider Provider) *Sender {
	return &Sender{
		log:       log,
		publisher: publisher,
		provider:  provider,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start polls for up to limit new events every interval until ctx ends or Stop is called.
func (s *Sender) Start(ctx context.Context, limit int, interval time.Duration) {
	const op = "events.Sender.Start"
	log := s.log.With(slog.String("op", op))

	s.started.Store(true)
	log.Info("starting event sender", slog.Int("limit", limit), slog.Duration("interval", interval))

	go func() {
		defer close(s.done)
		defer log.Info("event sender stopped")

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.flush(ctx, limit)
			}
		}
	}()
}

// Stop ends the polling loop and waits for the in-flight batch.
func (s *Sender) Stop() {
	s.once.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}

func (s *Sender) flush(ctx context.Context, limit int) {
	events, err := s.provider.NewEvents(ctx, limit)
	if err != nil {
		s.log.Error("failed to get new events", sl.Err(err))
		return
	}

	var wg sync.WaitGroup
	for _, e := range events {
		wg.Add(1)
		go func(e model.Event) {
			defer wg.Done()
			s.send(ctx, e)
		}(e)
	}
	wg.Wait()
}

func (s *Sender) send(ctx context.Context, e model.Event) {
	log := s.log.With(slog.String("event_id", e.ID.String()), slog.String("event_type", e.Type))

	if err := s.publisher.Publish(ctx, []byte(e.Type), []byte(e.Payload)); err != nil {
		log.Error("failed to publish event", sl.Err(err))
		return
	}

	if err := s.provider.SetEventDone(ctx, e.ID); err != nil {
		log.Error("failed to mark event as done", sl.Err(err))
	}
}
