package remote

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of a command channel failure
type ErrorType int

const (
	// ErrTypeConnectionClosed indicates the peer closed the connection or the channel was closed locally
	ErrTypeConnectionClosed ErrorType = iota
	// ErrTypeAccessDenied indicates the TV rejected the pairing or the user cancelled it
	ErrTypeAccessDenied
	// ErrTypeUnhandledResponse indicates a response byte pattern the legacy protocol does not define
	ErrTypeUnhandledResponse
	// ErrTypeAuthorizationTimeout indicates the WebSocket handshake was not authorized in time
	ErrTypeAuthorizationTimeout
	// ErrTypeNetwork indicates a dial, read or write failure
	ErrTypeNetwork
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConnectionClosed:
		return "Connection Closed"
	case ErrTypeAccessDenied:
		return "Access Denied"
	case ErrTypeUnhandledResponse:
		return "Unhandled Response"
	case ErrTypeAuthorizationTimeout:
		return "Authorization Timeout"
	case ErrTypeNetwork:
		return "Network Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by command channels.
type Error struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Host    string    // TV address (for context)
	Raw     []byte    // Raw response bytes for unhandled responses
	Err     error     // Underlying error (if any)

	// Retryable is set for failures where reconnecting may succeed
	Retryable bool
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Raw != nil {
		msg = fmt.Sprintf("%s (raw: % x)", msg, e.Raw)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s (caused by: %v)", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

func NewConnectionClosedError(message string) *Error {
	return &Error{Type: ErrTypeConnectionClosed, Message: message, Retryable: true}
}

func NewAccessDeniedError(message string) *Error {
	return &Error{Type: ErrTypeAccessDenied, Message: message}
}

// NewUnhandledResponseError keeps a copy of raw for diagnosis.
func NewUnhandledResponseError(raw []byte) *Error {
	return &Error{
		Type:    ErrTypeUnhandledResponse,
		Message: "received unknown response",
		Raw:     append([]byte(nil), raw...),
	}
}

func NewAuthorizationTimeoutError(message string) *Error {
	return &Error{Type: ErrTypeAuthorizationTimeout, Message: message, Retryable: true}
}

// NewNetworkError classifies err the way the failure would be reported to a
// user: timeouts, refused connections, DNS and routing failures.
func NewNetworkError(host, message string, err error) *Error {
	e := &Error{Type: ErrTypeNetwork, Message: message, Host: host, Err: err, Retryable: true}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case os.IsTimeout(err):
		e.Message = message + ": timed out"
	case errors.As(err, &dnsErr):
		e.Message = fmt.Sprintf("%s: DNS resolution failed for %s", message, dnsErr.Name)
		e.Retryable = false
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED):
		e.Message = message + ": connection refused"
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.EHOSTUNREACH):
		e.Message = message + ": host unreachable"
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ENETUNREACH):
		e.Message = message + ": network unreachable"
	}
	return e
}

func isType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

func IsConnectionClosed(err error) bool     { return isType(err, ErrTypeConnectionClosed) }
func IsAccessDenied(err error) bool         { return isType(err, ErrTypeAccessDenied) }
func IsUnhandledResponse(err error) bool    { return isType(err, ErrTypeUnhandledResponse) }
func IsAuthorizationTimeout(err error) bool { return isType(err, ErrTypeAuthorizationTimeout) }
func IsNetworkError(err error) bool         { return isType(err, ErrTypeNetwork) }

// IsRetryable reports whether a new connection attempt may succeed.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// TroubleshootingHint returns a short suggestion for the user, or "".
func TroubleshootingHint(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	switch e.Type {
	case ErrTypeAccessDenied:
		return "Allow this remote on the TV, or remove it from the TV's device list and pair again."
	case ErrTypeAuthorizationTimeout:
		return "Accept the connection prompt on the TV within 30 seconds."
	case ErrTypeConnectionClosed:
		return "The TV closed the connection. Check that it is still on and reconnect."
	case ErrTypeNetwork:
		return "Check that the TV is powered on and reachable on the same network."
	case ErrTypeUnhandledResponse:
		return "The TV replied with an unknown message. Run with --log-level debug and report the raw bytes."
	}
	return ""
}
