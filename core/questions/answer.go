package questions

import (
	"context"
	"errors"
)

// ErrUnsupportedHandler reports an answer value outside the three known variants.
var ErrUnsupportedHandler = errors.New("questions: unsupported answer handler")

// ErrHandlerPanic reports an AsyncCompute that panicked instead of returning.
var ErrHandlerPanic = errors.New("questions: answer handler panicked")

// Answer is the closed set of reply shapes a question may map to:
// StaticText, SyncCompute and AsyncCompute.
type Answer interface {
	answer()
}

// StaticText is returned verbatim.
type StaticText string

// SyncCompute is evaluated inline on every lookup. Keep it cheap.
type SyncCompute func() string

// AsyncCompute may block on I/O; the resolver runs it off the request goroutine.
type AsyncCompute func(ctx context.Context) (string, error)

func (StaticText) answer()   {}
func (SyncCompute) answer()  {}
func (AsyncCompute) answer() {}

// Kind names the variant for logs.
func Kind(a Answer) string {
	switch a.(type) {
	case StaticText:
		return "static"
	case SyncCompute:
		return "sync"
	case AsyncCompute:
		return "async"
	case nil:
		return "none"
	default:
		return "unsupported"
	}
}
