package repository

import (
	"context"
	"fmt"

	"github.com/Stewz00/go-backoffice-service/internal/database"
	"github.com/Stewz00/go-backoffice-service/internal/interfaces"
	"github.com/Stewz00/go-backoffice-service/internal/model"
	"github.com/google/uuid"
)

const (
	eventStatusNew  = "new"
	eventStatusDone = "done"
)

// EventRepositoryImpl is the outbox table of domain events
type EventRepositoryImpl struct {
	db *database.DB
}

var _ interfaces.EventRepository = (*EventRepositoryImpl)(nil)

func NewEventRepository(db *database.DB) *EventRepositoryImpl {
	return &EventRepositoryImpl{db: db}
}

func (r *EventRepositoryImpl) SaveEvent(ctx context.Context, eventType, payload string) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO events (id, event_type, payload, status)
		 VALUES ($1::uuid, $2, $3::jsonb, $4)`,
		uuid.NewString(), eventType, payload, eventStatusNew)
	return err
}

// NewEvents returns up to limit unsent events, oldest first.
func (r *EventRepositoryImpl) NewEvents(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id::text, event_type, payload::text, created_at
		 FROM events
		 WHERE status = $1
		 ORDER BY created_at
		 LIMIT $2`,
		eventStatusNew, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			id string
			e  model.Event
		)
		if err := rows.Scan(&id, &e.Type, &e.Payload, &e.Created); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse event id %q: %w", id, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *EventRepositoryImpl) SetEventDone(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE events SET status = $2 WHERE id = $1::uuid`,
		id.String(), eventStatusDone)
	return err
}
