package questions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/hookbot/core/database"
)

// ErrDuplicateQuestion is returned when the question text already exists.
var ErrDuplicateQuestion = errors.New("questions: duplicate question")

const (
	loadAllSQL = `SELECT question, answer FROM questions ORDER BY id`
	insertSQL  = `INSERT INTO questions (question, answer) VALUES ($1, $2)`
)

// Store reads and writes the questions table.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// LoadAllQuestions returns every stored pair in insertion order.
func (s *Store) LoadAllQuestions(ctx context.Context) ([]Pair, error) {
	var pairs []Pair
	if err := s.db.SelectContext(ctx, &pairs, loadAllSQL); err != nil {
		return nil, fmt.Errorf("select questions: %w", err)
	}
	return pairs, nil
}

// InsertQuestion adds a pair. An existing question yields ErrDuplicateQuestion.
func (s *Store) InsertQuestion(ctx context.Context, p Pair) error {
	if _, err := s.db.ExecContext(ctx, insertSQL, p.Question, p.Answer); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateQuestion, p.Question)
		}
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// MemorySource is a Source backed by a map, for tests and database-less runs.
type MemorySource struct {
	mu    sync.RWMutex
	pairs map[string]string
	order []string
}

func NewMemorySource(pairs ...Pair) *MemorySource {
	m := &MemorySource{pairs: make(map[string]string)}
	for _, p := range pairs {
		_ = m.InsertQuestion(context.Background(), p)
	}
	return m
}

func (m *MemorySource) LoadAllQuestions(context.Context) ([]Pair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Pair, 0, len(m.order))
	for _, q := range m.order {
		out = append(out, Pair{Question: q, Answer: m.pairs[q]})
	}
	return out, nil
}

func (m *MemorySource) InsertQuestion(_ context.Context, p Pair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pairs[p.Question]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateQuestion, p.Question)
	}
	m.pairs[p.Question] = p.Answer
	m.order = append(m.order, p.Question)
	return nil
}
