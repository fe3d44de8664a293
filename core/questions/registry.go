package questions

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/hookbot/core/logger"
)

// Pair is one stored question with its static answer.
type Pair struct {
	Question string `db:"question" yaml:"question"`
	Answer   string `db:"answer" yaml:"answer"`
}

// Source yields the stored question set.
type Source interface {
	LoadAllQuestions(ctx context.Context) ([]Pair, error)
}

type snapshot map[string]Answer

// Registry maps question text to an Answer. Lookups read an immutable
// snapshot; Load publishes a fresh one.
type Registry struct {
	src      Source
	builtins []Builtin
	current  atomic.Pointer[snapshot]
}

// NewRegistry creates an empty registry. Call Load before serving.
func NewRegistry(src Source, builtins ...Builtin) *Registry {
	r := &Registry{src: src, builtins: builtins}
	empty := snapshot{}
	r.current.Store(&empty)
	return r
}

// Load reads every stored question, overlays the built-ins and swaps the
// snapshot in one step. On error the previous snapshot stays in place.
func (r *Registry) Load(ctx context.Context) error {
	start := time.Now()
	var pairs []Pair
	if r.src != nil {
		var err error
		pairs, err = r.src.LoadAllQuestions(ctx)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
	}

	next := make(snapshot, len(pairs)+len(r.builtins))
	for _, p := range pairs {
		if p.Question == "" {
			continue
		}
		next[p.Question] = StaticText(p.Answer)
	}
	for _, b := range r.builtins {
		if b.Question == "" || b.Answer == nil {
			continue
		}
		next[b.Question] = b.Answer
	}
	r.current.Store(&next)

	logger.QA.Info("registry loaded",
		slog.String("event", "registry.load"),
		slog.String("status", "ok"),
		slog.Int("questions", len(next)),
		slog.Int("builtins", len(r.builtins)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}

// Reload is Load under the name used by the SIGHUP handler.
func (r *Registry) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

// Lookup returns the answer registered for question, if any.
func (r *Registry) Lookup(question string) (Answer, bool) {
	a, ok := (*r.current.Load())[question]
	return a, ok
}

// Len reports the number of entries in the current snapshot.
func (r *Registry) Len() int {
	return len(*r.current.Load())
}
