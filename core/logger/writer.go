package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// sinkWriter fans each line out to buffered sinks. Lines are written whole under one lock,
// so concurrent request goroutines never interleave partial records.
type sinkWriter struct {
	mu       sync.Mutex
	sinks    []*bufio.Writer
	writeErr error
}

func newSinkWriter(writers []io.Writer, bufSize int) *sinkWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, bufio.NewWriterSize(w, bufSize))
		}
	}
	return &sinkWriter{sinks: sinks}
}

// Write copies p to every sink and flushes it. The first error sticks.
func (w *sinkWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writeErr != nil {
		return w.writeErr
	}
	for _, s := range w.sinks {
		if _, err := s.Write(p); err != nil {
			w.writeErr = err
			return err
		}
		if err := s.Flush(); err != nil {
			w.writeErr = err
			return err
		}
	}
	return nil
}

// Flush drains any buffered bytes left in the sinks.
func (w *sinkWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, s := range w.sinks {
		if err := s.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
