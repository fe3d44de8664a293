package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	dial := &url.Error{Op: "Post", URL: "http://127.0.0.1:1", Err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}
	if !ShouldRetry(dial) {
		t.Fatal("expected dial failure to be retryable")
	}
	if ShouldRetry(context.Canceled) || ShouldRetry(fmt.Errorf("wrapped: %w", context.Canceled)) {
		t.Fatal("cancelled calls must not retry")
	}
	if ShouldRetry(errors.New("bad request")) || ShouldRetry(nil) {
		t.Fatal("plain errors must not retry")
	}
	if !ShouldRetry(&net.DNSError{Err: "timeout", Name: "api.telegram.org", IsTimeout: true}) {
		t.Fatal("expected dns timeout to be retryable")
	}
}

func TestRedactToken(t *testing.T) {
	in := `Post "https://api.telegram.org/bot123456:AAH-x_yZ/sendMessage": dial tcp: refused`
	got := RedactToken(in)
	want := `Post "https://api.telegram.org/bot<redacted>/sendMessage": dial tcp: refused`
	if got != want {
		t.Fatalf("RedactToken = %q", got)
	}
}
