package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/m3rciful/hookbot/core/logger"
	"github.com/m3rciful/hookbot/core/telegram/netutil"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// maxErrorBody bounds how much of a failed response is read for the log line.
const maxErrorBody = 4 << 10

// DispatchError describes a reply that was not delivered.
type DispatchError struct {
	ChatID      int64
	StatusCode  int    // zero on transport failure
	Description string // Bot API description, if any
	Err         error  // transport cause, if any
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sendMessage to chat %d: %s", e.ChatID, netutil.RedactToken(e.Err.Error()))
	}
	if e.Description != "" {
		return fmt.Sprintf("sendMessage to chat %d: status %d: %s", e.ChatID, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("sendMessage to chat %d: status %d", e.ChatID, e.StatusCode)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Options configures a Sender.
type Options struct {
	Token  string
	APIURL string
	Client *http.Client
	// MaxInFlight bounds concurrent sendMessage calls. Zero means 32.
	MaxInFlight int64
}

// Sender posts replies with sendMessage. It is safe for concurrent use.
type Sender struct {
	client   *http.Client
	endpoint string
	sem      *semaphore.Weighted

	sent   atomic.Uint64
	failed atomic.Uint64
}

// New builds a Sender. The token is only kept inside the endpoint URL.
func New(opts Options) *Sender {
	base := strings.TrimRight(opts.APIURL, "/")
	if base == "" {
		base = DefaultAPIURL
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	limit := opts.MaxInFlight
	if limit <= 0 {
		limit = 32
	}
	return &Sender{
		client:   client,
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", base, opts.Token),
		sem:      semaphore.NewWeighted(limit),
	}
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Send delivers text to chatID with a single attempt. Failures are logged and
// dropped; nothing is returned to the caller.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) {
	start := time.Now()
	err := s.send(ctx, chatID, text)
	elapsed := time.Since(start)
	if err != nil {
		s.failed.Add(1)
		logSendFailure(ctx, chatID, err, elapsed)
		return
	}
	s.sent.Add(1)
	logger.Debug(ctx, "tg.sender", "send",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.Duration("duration", logger.RoundMS(elapsed)),
	)
}

func (s *Sender) send(ctx context.Context, chatID int64, text string) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return &DispatchError{ChatID: chatID, Err: err}
	}
	defer s.sem.Release(1)

	payload, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return &DispatchError{ChatID: chatID, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &DispatchError{ChatID: chatID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &DispatchError{ChatID: chatID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	derr := &DispatchError{ChatID: chatID, StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var api apiResponse
	if json.Unmarshal(raw, &api) == nil && api.Description != "" {
		derr.Description = api.Description
	} else if trimmed := strings.TrimSpace(string(raw)); trimmed != "" {
		derr.Description = logger.SanitizeLimit(trimmed, 200)
	}
	return derr
}

// Stats reports delivered and failed reply counts.
func (s *Sender) Stats() (sent, failed uint64) {
	return s.sent.Load(), s.failed.Load()
}

func logSendFailure(ctx context.Context, chatID int64, err error, elapsed time.Duration) {
	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.Int64("chat_id", chatID),
		slog.String("error", sanitizeErrorMessage(err)),
		slog.String("error_kind", classifyError(err)),
		slog.Duration("duration", logger.RoundMS(elapsed)),
	}
	var derr *DispatchError
	if errors.As(err, &derr) && derr.StatusCode != 0 {
		attrs = append(attrs, slog.Int("http_code", derr.StatusCode))
	}
	logger.Error(ctx, "tg.sender", "send", attrs...)
}
