package errors

import (
	"errors"
	"fmt"
)

// Client-side error taxonomy. Every network or credential failure surfaced
// by the client is one of these kinds, matchable with errors.Is, with the
// underlying cause chained via %w.
var (
	// ErrConnection covers DNS, TCP, TLS and socket-level failures, and SSE
	// streams that end abnormally.
	ErrConnection = errors.New("connection error")

	// ErrTimeout is raised when a per-call or per-token-request deadline
	// expires.
	ErrTimeout = errors.New("timeout")

	// ErrAuthentication covers missing or invalid local credentials, token
	// endpoint rejections and unsupported auth schemes.
	ErrAuthentication = errors.New("authentication error")

	// ErrMessage indicates a malformed envelope: invalid JSON, missing
	// result and error, or a result that fails schema validation.
	ErrMessage = errors.New("message error")

	// ErrCredential is raised only by keyring write operations.
	ErrCredential = errors.New("credential error")
)

// Connectionf wraps a transport failure as a connection-class error.
func Connectionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConnection, fmt.Sprintf(format, args...))
}

// Timeoutf wraps a deadline expiry as a timeout-class error.
func Timeoutf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTimeout, fmt.Sprintf(format, args...))
}

// Authenticationf wraps a credential or token failure as an
// authentication-class error.
func Authenticationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthentication, fmt.Sprintf(format, args...))
}

// Messagef wraps an envelope defect as a message-class error.
func Messagef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMessage, fmt.Sprintf(format, args...))
}

// Credentialf wraps a keyring write failure as a credential-class error.
func Credentialf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCredential, fmt.Sprintf(format, args...))
}

/*
RemoteAgentError is returned when the peer answered with a JSON-RPC error
object, or with a non-2xx HTTP status on the RPC channel. Code carries the
JSON-RPC error code (or the HTTP status for transport-level rejections).
*/
type RemoteAgentError struct {
	Code    int
	Message string
	Data    any
}

func (e *RemoteAgentError) Error() string {
	return fmt.Sprintf("remote agent error %d: %s", e.Code, e.Message)
}
