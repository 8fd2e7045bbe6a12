package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventUserRegistered = "user.registered"
	EventSyncCompleted  = "sync.completed"
)

type Event struct {
	ID      uuid.UUID
	Type    string
	Payload string
	Created time.Time
}
