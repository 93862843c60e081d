package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

func TestError_Predicates(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		check     func(error) bool
		retryable bool
	}{
		{"closed", NewConnectionClosedError("gone"), IsConnectionClosed, true},
		{"denied", NewAccessDeniedError("no"), IsAccessDenied, false},
		{"unhandled", NewUnhandledResponseError([]byte{1}), IsUnhandledResponse, false},
		{"auth timeout", NewAuthorizationTimeoutError("slow"), IsAuthorizationTimeout, true},
		{"network", NewNetworkError("tv", "dial", errors.New("boom")), IsNetworkError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("remote: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("predicate false for %v", wrapped)
			}
			if IsRetryable(wrapped) != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", !tt.retryable, tt.retryable)
			}
			if TroubleshootingHint(wrapped) == "" && tt.name != "unhandled" {
				t.Error("expected a troubleshooting hint")
			}
		})
	}

	if IsConnectionClosed(errors.New("plain")) || IsRetryable(nil) {
		t.Error("predicates must be false for foreign errors")
	}
}

func TestNewUnhandledResponseError_CopiesRaw(t *testing.T) {
	raw := []byte{0xaa, 0xbb}
	err := NewUnhandledResponseError(raw)
	raw[0] = 0x00

	if err.Raw[0] != 0xaa {
		t.Error("raw bytes were not copied")
	}
	if !strings.Contains(err.Error(), "aa bb") {
		t.Errorf("Error() = %q, want raw bytes in hex", err.Error())
	}
}

func TestNewNetworkError_Classification(t *testing.T) {
	dnsErr := &net.DNSError{Err: "no such host", Name: "tv.invalid", IsNotFound: true}
	err := NewNetworkError("tv.invalid", "dial failed", dnsErr)
	if !strings.Contains(err.Message, "DNS resolution failed for tv.invalid") {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Retryable {
		t.Error("DNS failures should not be retryable")
	}
	if !errors.Is(err, dnsErr) {
		t.Error("underlying error is not reachable through Unwrap")
	}

	timeout := &net.OpError{Op: "dial", Net: "tcp", Err: context.DeadlineExceeded}
	err = NewNetworkError("10.0.0.5", "dial failed", timeout)
	if !strings.HasSuffix(err.Message, "timed out") {
		t.Errorf("Message = %q, want timeout classification", err.Message)
	}
}

func TestStateString(t *testing.T) {
	if StateAwaitingGrant.String() != "awaiting-grant" {
		t.Errorf("String() = %q", StateAwaitingGrant.String())
	}
	if State(99).String() != "State(99)" {
		t.Errorf("String() = %q", State(99).String())
	}
}

func TestStateCell_ClosedIsTerminal(t *testing.T) {
	var c stateCell
	if !c.set(StateConnecting) {
		t.Fatal("set() refused before close")
	}
	c.close()
	if c.set(StateAuthorized) {
		t.Error("set() succeeded after close")
	}
	if c.load() != StateClosed {
		t.Errorf("load() = %v", c.load())
	}
}
