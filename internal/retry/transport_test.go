package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) StatusCode() int { return e.code }

func TestTransportErrorClassifier(t *testing.T) {
	c := NewTransportErrorClassifier()

	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", syscall.ECONNRESET, true},
		{"wrapped refused", fmt.Errorf("request: %w", syscall.ECONNREFUSED), true},
		{"url error around refused", &url.Error{Op: "Post", URL: "http://x", Err: syscall.ECONNREFUSED}, true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("down")}, true},
		{"dns timeout", &net.DNSError{IsTimeout: true}, true},
		{"plain error", errors.New("boom"), false},
		{"status 503", statusErr{503}, true},
		{"status 502", statusErr{502}, true},
		{"status 429", statusErr{429}, true},
		{"status 401", statusErr{401}, false},
		{"status 404", statusErr{404}, false},
		{"wrapped status 500", fmt.Errorf("query: %w", statusErr{500}), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.IsTransient(tc.err); got != tc.transient {
				t.Errorf("IsTransient(%v): expected %v, got %v", tc.err, tc.transient, got)
			}
		})
	}
}
