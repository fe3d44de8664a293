package sender

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"syscall"

	"github.com/m3rciful/hookbot/core/telegram/netutil"
)

// classifyError maps a send failure to a short kind for logs.
func classifyError(err error) string {
	if err == nil {
		return ""
	}

	var derr *DispatchError
	if errors.As(err, &derr) && derr.Err == nil {
		switch {
		case derr.StatusCode == 429:
			return "rate_limited"
		case derr.StatusCode >= 500:
			return "http_5xx"
		case derr.StatusCode >= 400:
			return "http_4xx"
		default:
			return "http_status"
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	}

	var alertErr tls.AlertError
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &alertErr) || errors.As(err, &certErr) || errors.As(err, &unknownAuth) {
		return "tls"
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return "dial"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return "timeout"
		}
		if opErr.Op == "dial" {
			return "dial"
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	return "unknown"
}

// sanitizeErrorMessage keeps bot tokens out of logs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return netutil.RedactToken(err.Error())
}
