package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Stewz00/go-backoffice-service/internal/lib/logger/sl"
)

type Store interface {
	SaveEvent(ctx context.Context, eventType, payload string) error
}

// Recorder writes domain events to the outbox. A nil *Recorder drops them.
type Recorder struct {
	store Store
	log   *slog.Logger
}

func NewRecorder(store Store, log *slog.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// Record stores the event. Failures are logged and never reach the caller.
func (r *Recorder) Record(ctx context.Context, eventType string, payload any) {
	if r == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("failed to encode event", slog.String("event_type", eventType), sl.Err(err))
		return
	}

	if err := r.store.SaveEvent(ctx, eventType, string(data)); err != nil {
		r.log.Error("failed to save event", slog.String("event_type", eventType), sl.Err(err))
	}
}
