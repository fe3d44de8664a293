package hook

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/hookbot/core/database"
	"github.com/m3rciful/hookbot/core/logger"
	"github.com/m3rciful/hookbot/core/questions"
	"github.com/m3rciful/hookbot/core/telegram"
)

var (
	ErrMalformedPayload = telegram.ErrMalformedPayload
	ErrInvalidFields    = telegram.ErrInvalidFields
)

// SessionRecorder records a visit for a user.
type SessionRecorder interface {
	RecordVisit(ctx context.Context, clientID int64, now time.Time) error
}

// AnswerResolver turns question text into reply text.
type AnswerResolver interface {
	Resolve(ctx context.Context, question string) (string, error)
}

// ReplySender delivers a reply. It logs and swallows its own failures.
type ReplySender interface {
	Send(ctx context.Context, chatID int64, text string)
}

// Pipeline handles one webhook delivery: validate, record the visit,
// resolve the answer, send the reply.
type Pipeline struct {
	Sessions SessionRecorder
	Answers  AnswerResolver
	Replies  ReplySender

	// Now defaults to time.Now.
	Now func() time.Time
	// Timeout bounds a single delivery. Zero disables it.
	Timeout time.Duration
}

// Handle processes body and returns the HTTP status for the caller.
// Anything that passed validation gets 200 unless the answer handler is
// broken or the delivery ran out of time.
func (p *Pipeline) Handle(ctx context.Context, body []byte) int {
	start := time.Now()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	in, err := telegram.ParseUpdate(body)
	if err != nil {
		logger.Warn(ctx, "hook", "update.rejected",
			slog.String("status", "rejected"),
			slog.String("error_kind", rejectKind(err)),
			slog.Int("http_code", http.StatusBadRequest),
		)
		return http.StatusBadRequest
	}
	ctx = logger.WithUpdateMeta(ctx, in.UpdateID(), in.UserID, in.ChatID)

	if err := p.Sessions.RecordVisit(ctx, in.UserID, p.now()); err != nil {
		logger.Warn(ctx, "stats", "session.record",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.String("err_code", database.ErrorCode(err)),
		)
	}

	reply, err := p.Answers.Resolve(ctx, in.Text)
	if err != nil {
		return p.fail(ctx, err, start)
	}

	p.Replies.Send(ctx, in.ChatID, reply)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return p.fail(ctx, ctx.Err(), start)
	}

	logger.Info(ctx, "hook", "update.handled",
		slog.String("status", "ok"),
		slog.Int("http_code", http.StatusOK),
		slog.String("question", logger.SanitizeLimit(in.Text, 64)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return http.StatusOK
}

func (p *Pipeline) fail(ctx context.Context, err error, start time.Time) int {
	status := "fail"
	if errors.Is(err, context.DeadlineExceeded) {
		status = "timeout"
	} else if errors.Is(err, context.Canceled) {
		status = "cancelled"
	}
	logger.Error(ctx, "hook", "update.failed",
		slog.String("status", status),
		slog.Int("http_code", http.StatusInternalServerError),
		slog.String("err", err.Error()),
		slog.Bool("handler_bug", errors.Is(err, questions.ErrUnsupportedHandler) || errors.Is(err, questions.ErrHandlerPanic)),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return http.StatusInternalServerError
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func rejectKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrInvalidFields):
		return "invalid_fields"
	default:
		return "unknown"
	}
}
