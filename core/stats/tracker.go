package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/hookbot/core/logger"
)

// Tracker records client visits into sessions.
type Tracker struct {
	store  Store
	window time.Duration
}

// NewTracker returns a Tracker using the given rolling window.
func NewTracker(store Store, window time.Duration) *Tracker {
	return &Tracker{store: store, window: window}
}

// RecordVisit extends the client's active session to now or opens a new one.
// Failures wrap ErrStore.
func (t *Tracker) RecordVisit(ctx context.Context, clientID int64, now time.Time) error {
	var (
		session *Session
		created bool
	)
	err := t.store.Atomically(ctx, clientID, func(ctx context.Context, tx Tx) error {
		active, err := tx.FindActiveSession(ctx, clientID, now.Add(-t.window))
		if err != nil {
			return fmt.Errorf("find active session: %w", err)
		}
		if active != nil {
			if err := tx.TouchSession(ctx, active.ID, now); err != nil {
				return fmt.Errorf("touch session %d: %w", active.ID, err)
			}
			active.LastVisit = now
			session = active
			return nil
		}
		s, err := tx.CreateSession(ctx, clientID, now)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		session, created = s, true
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: client %d: %w", ErrStore, clientID, err)
	}

	event := "session.extended"
	if created {
		event = "session.created"
	}
	logger.Debug(ctx, "stats", event,
		slog.String("status", "ok"),
		slog.Int64("session_id", session.ID),
		slog.Time("session_start", session.SessionStart),
		slog.Time("last_visit", session.LastVisit),
		slog.Duration("window", t.window),
	)
	return nil
}
