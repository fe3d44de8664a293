package stats

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and development.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   map[int64]*Session
	nextID int64

	locksMu sync.Mutex
	locks   map[int64]*clientLock
}

// clientLock is a one-slot channel so waiters can give up when their context ends.
type clientLock struct {
	slot chan struct{}
	refs int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  make(map[int64]*Session),
		locks: make(map[int64]*clientLock),
	}
}

// Atomically serializes fn per client and applies its writes only when fn succeeds.
func (m *MemoryStore) Atomically(ctx context.Context, clientID int64, fn func(ctx context.Context, tx Tx) error) error {
	if err := m.lock(ctx, clientID); err != nil {
		return err
	}
	defer m.unlock(clientID)

	tx := &memTx{store: m, touches: make(map[int64]time.Time)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.commit(tx)
	return nil
}

func (m *MemoryStore) lock(ctx context.Context, clientID int64) error {
	m.locksMu.Lock()
	l, ok := m.locks[clientID]
	if !ok {
		l = &clientLock{slot: make(chan struct{}, 1)}
		m.locks[clientID] = l
	}
	l.refs++
	m.locksMu.Unlock()

	select {
	case l.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.release(clientID, l)
		return ctx.Err()
	}
}

func (m *MemoryStore) unlock(clientID int64) {
	m.locksMu.Lock()
	l := m.locks[clientID]
	m.locksMu.Unlock()
	<-l.slot
	m.release(clientID, l)
}

func (m *MemoryStore) release(clientID int64, l *clientLock) {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, clientID)
	}
}

func (m *MemoryStore) commit(tx *memTx) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, at := range tx.touches {
		if row, ok := m.rows[id]; ok {
			row.LastVisit = at
		}
	}
	for _, s := range tx.creates {
		row := *s
		m.rows[row.ID] = &row
	}
}

func (m *MemoryStore) allocID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID
}

// Sessions returns a copy of the client's rows ordered by session_start.
func (m *MemoryStore) Sessions(clientID int64) []Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for _, row := range m.rows {
		if row.ClientID == clientID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SessionStart.Equal(out[j].SessionStart) {
			return out[i].ID < out[j].ID
		}
		return out[i].SessionStart.Before(out[j].SessionStart)
	})
	return out
}

// Len returns the total number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

type memTx struct {
	store   *MemoryStore
	touches map[int64]time.Time
	creates []*Session
}

func (t *memTx) FindActiveSession(_ context.Context, clientID int64, since time.Time) (*Session, error) {
	var best *Session
	consider := func(s Session) {
		if s.ClientID != clientID || !s.LastVisit.After(since) {
			return
		}
		if best == nil || s.LastVisit.After(best.LastVisit) {
			cp := s
			best = &cp
		}
	}

	t.store.mu.RLock()
	for _, row := range t.store.rows {
		s := *row
		if at, ok := t.touches[s.ID]; ok {
			s.LastVisit = at
		}
		consider(s)
	}
	t.store.mu.RUnlock()

	for _, s := range t.creates {
		consider(*s)
	}
	return best, nil
}

func (t *memTx) TouchSession(_ context.Context, sessionID int64, now time.Time) error {
	for _, s := range t.creates {
		if s.ID == sessionID {
			s.LastVisit = now
			return nil
		}
	}
	t.touches[sessionID] = now
	return nil
}

func (t *memTx) CreateSession(_ context.Context, clientID int64, now time.Time) (*Session, error) {
	s := &Session{
		ID:           t.store.allocID(),
		ClientID:     clientID,
		SessionStart: now,
		LastVisit:    now,
	}
	t.creates = append(t.creates, s)
	cp := *s
	return &cp, nil
}
