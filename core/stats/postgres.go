package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	// Two-key form under a fixed namespace; a hash collision only serializes two clients.
	lockClientSQL = `SELECT pg_advisory_xact_lock(hashtext('hookbot.stats'), hashtext($1::text))`

	findActiveSQL = `
SELECT id, client_id, session_start, last_visit
FROM stats
WHERE client_id = $1 AND last_visit > $2
ORDER BY last_visit DESC
LIMIT 1`

	touchSQL = `UPDATE stats SET last_visit = $2 WHERE id = $1`

	createSQL = `
INSERT INTO stats (client_id, session_start, last_visit)
VALUES ($1, $2, $2)
RETURNING id, client_id, session_start, last_visit`
)

// PostgresStore keeps sessions in the stats table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Atomically runs fn in a transaction holding a transaction-scoped advisory lock on clientID.
// The lock is released by commit or rollback, including rollback caused by ctx cancellation.
func (s *PostgresStore) Atomically(ctx context.Context, clientID int64, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, lockClientSQL, clientID); err != nil {
		return fmt.Errorf("lock client: %w", err)
	}
	if err = fn(ctx, pgTx{tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (p pgTx) FindActiveSession(ctx context.Context, clientID int64, since time.Time) (*Session, error) {
	var s Session
	if err := p.tx.GetContext(ctx, &s, findActiveSQL, clientID, since); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (p pgTx) TouchSession(ctx context.Context, sessionID int64, now time.Time) error {
	res, err := p.tx.ExecContext(ctx, touchSQL, sessionID, now)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %d not found", sessionID)
	}
	return nil
}

func (p pgTx) CreateSession(ctx context.Context, clientID int64, now time.Time) (*Session, error) {
	var s Session
	if err := p.tx.GetContext(ctx, &s, createSQL, clientID, now); err != nil {
		return nil, err
	}
	return &s, nil
}
