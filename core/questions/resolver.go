package questions

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/hookbot/core/logger"
)

// FallbackText is the reply for questions without an entry.
const FallbackText = "I have no answer. Sorry :("

// Lookuper is the read side of Registry.
type Lookuper interface {
	Lookup(question string) (Answer, bool)
}

// Resolver turns question text into reply text.
type Resolver struct {
	reg Lookuper
}

func NewResolver(reg Lookuper) *Resolver {
	return &Resolver{reg: reg}
}

// Resolve returns the reply for question. A miss yields FallbackText.
// A failing AsyncCompute also degrades to FallbackText; an unknown variant,
// a panicking AsyncCompute or an expired context is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, question string) (string, error) {
	a, ok := r.reg.Lookup(question)
	if !ok {
		logger.Debug(ctx, "questions", "resolve.miss", slog.String("question", logger.SanitizeLimit(question, 64)))
		return FallbackText, nil
	}
	logger.Debug(ctx, "questions", "resolve.hit",
		slog.String("question", logger.SanitizeLimit(question, 64)),
		slog.String("answer_kind", Kind(a)),
	)

	switch v := a.(type) {
	case StaticText:
		return string(v), nil
	case SyncCompute:
		return v(), nil
	case AsyncCompute:
		return r.await(ctx, question, v)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedHandler, a)
	}
}

type asyncResult struct {
	text     string
	err      error
	panicked bool
}

func (r *Resolver) await(ctx context.Context, question string, fn AsyncCompute) (string, error) {
	done := make(chan asyncResult, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error(ctx, "questions", "resolve.panic",
					slog.String("status", "fail"),
					slog.String("question", logger.SanitizeLimit(question, 64)),
					slog.String("answer_kind", Kind(fn)),
					slog.Any("err", rec),
					slog.String("stack", string(debug.Stack())),
				)
				done <- asyncResult{err: fmt.Errorf("%w: %v", ErrHandlerPanic, rec), panicked: true}
			}
		}()
		text, err := fn(ctx)
		done <- asyncResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		if res.panicked {
			return "", res.err
		}
		if res.err != nil {
			logger.Warn(ctx, "questions", "resolve.async",
				slog.String("status", "fail"),
				slog.String("question", logger.SanitizeLimit(question, 64)),
				slog.String("answer_kind", Kind(fn)),
				slog.String("err", res.err.Error()),
			)
			return FallbackText, nil
		}
		return res.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
