package store

import (
	"context"
	"errors"
	"time"
)

// ErrParticipantNotFound is returned when no profile exists for a connection id.
var ErrParticipantNotFound = errors.New("participant not found")

// Participant is a connected client's transient profile, keyed by the
// transport-assigned connection id.
type Participant struct {
	ConnectionID  string
	UserID        string
	DisplayName   string
	GenderTag     string
	PreferenceTag string
	RegisteredAt  time.Time
	UpdatedAt     time.Time
}

// ParticipantStore persists per-connection profiles.
//
// UpsertParticipant merges field-level: non-empty incoming values overwrite
// the stored ones, empty values leave them untouched, so a client may
// re-register with only the fields it changed. The write must be a single
// atomic upsert (last-write-wins under concurrent registration retries, never
// a torn record). Repeating an identical upsert only refreshes UpdatedAt.
type ParticipantStore interface {
	UpsertParticipant(ctx context.Context, p Participant) error
	GetParticipant(ctx context.Context, connectionID string) (*Participant, error)
}

// Store combines all persistence interfaces.
type Store interface {
	ParticipantStore
	Close() error
}
