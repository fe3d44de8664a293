package stats

import (
	"context"
	"errors"
	"time"
)

// ErrStore marks persistence failures surfaced by the tracker.
var ErrStore = errors.New("stats: store error")

// Session is one continuous usage window of a client.
type Session struct {
	ID           int64     `db:"id"`
	ClientID     int64     `db:"client_id"`
	SessionStart time.Time `db:"session_start"`
	LastVisit    time.Time `db:"last_visit"`
}

// Active reports whether the session is still open at now for the given window.
func (s Session) Active(now time.Time, window time.Duration) bool {
	return s.LastVisit.After(now.Add(-window))
}

// Tx exposes the store operations available inside a per-client critical section.
type Tx interface {
	// FindActiveSession returns the client's session with last_visit after since, or nil.
	FindActiveSession(ctx context.Context, clientID int64, since time.Time) (*Session, error)
	TouchSession(ctx context.Context, sessionID int64, now time.Time) error
	CreateSession(ctx context.Context, clientID int64, now time.Time) (*Session, error)
}

// Store runs fn atomically with respect to other calls for the same client.
// Either every write fn performs is persisted or none is.
type Store interface {
	Atomically(ctx context.Context, clientID int64, fn func(ctx context.Context, tx Tx) error) error
}
