package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"
)

// StatusCoder is implemented by errors carrying an HTTP response status.
type StatusCoder interface {
	StatusCode() int
}

// TransportErrorClassifier classifies metadata-service request failures.
// Transient: network-level errors (refused, reset, timeout, DNS) and the
// retryable HTTP statuses (429, 500, 502, 503, 504). Everything else,
// including authentication rejections and context cancellation, is fatal.
type TransportErrorClassifier struct{}

// NewTransportErrorClassifier creates a classifier for HTTP transport errors.
func NewTransportErrorClassifier() *TransportErrorClassifier {
	return &TransportErrorClassifier{}
}

// IsTransient reports whether the error is worth retrying.
func (c *TransportErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch sc.StatusCode() {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	return c.isNetworkError(err)
}

func (c *TransportErrorClassifier) isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	// url.Error wraps every transport-level failure from http.Client.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Temporary() || urlErr.Timeout() || c.isNetworkError(urlErr.Err)
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
