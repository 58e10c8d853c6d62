package fetch

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// Kind is the closed set of failure classes the fetch layer can produce.
// Classification happens once, here at the boundary; callers switch on Kind
// and never inspect error strings.
type Kind string

const (
	KindRateLimited       Kind = "rate-limited"       // HTTP 429
	KindConnectionReset   Kind = "connection-reset"   // ECONNRESET
	KindConnectionAborted Kind = "connection-aborted" // ECONNABORTED, socket hang up
	KindTLSHandshake      Kind = "tls-handshake"      // TLS handshake interrupted
	KindPermanent         Kind = "permanent"          // non-retryable status or transport failure
	KindMalformed         Kind = "malformed"          // response body could not be decoded
)

// Error is the tagged error type returned by the fetch layer.
type Error struct {
	Kind       Kind
	StatusCode int // set for status-derived failures, zero otherwise
	URL        string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying with backoff.
func (e *Error) Transient() bool {
	switch e.Kind {
	case KindRateLimited, KindConnectionReset, KindConnectionAborted, KindTLSHandshake:
		return true
	default:
		return false
	}
}

// ErrRetriesExhausted marks an error produced when the retry budget was
// spent on a transient failure. The last transient error is wrapped
// alongside it.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Malformed wraps a decode failure on an otherwise successful response so
// that callers surface it under the same closed kind set.
func Malformed(url string, err error) *Error {
	return &Error{Kind: KindMalformed, URL: url, Err: err}
}

// joinExhausted pairs the exhaustion sentinel with the last transient error
// so both match through errors.Is.
func joinExhausted(last error) error {
	return errors.Join(ErrRetriesExhausted, last)
}

func errStatus(code int) error {
	return fmt.Errorf("unexpected status %d", code)
}

// classifyStatus maps an HTTP status code to a failure kind.
func classifyStatus(status int) Kind {
	if status == 429 {
		return KindRateLimited
	}
	return KindPermanent
}

// classifyTransport maps a transport-level failure to a failure kind.
// Connection resets and aborts and interrupted TLS handshakes are the only
// transient transport conditions; DNS failures, timeouts and everything
// else fail fast as permanent.
func classifyTransport(err error) Kind {
	switch {
	case errors.Is(err, syscall.ECONNRESET):
		return KindConnectionReset
	case errors.Is(err, syscall.ECONNABORTED), errors.Is(err, io.ErrUnexpectedEOF):
		return KindConnectionAborted
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindPermanent
	}

	// The TLS package does not expose a stable handshake-interrupted error
	// value, so the handshake case is matched on the message, here only.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "handshake"):
		return KindTLSHandshake
	case strings.Contains(msg, "connection reset"):
		return KindConnectionReset
	case strings.Contains(msg, "socket hang up"), strings.Contains(msg, "connection aborted"):
		return KindConnectionAborted
	}

	return KindPermanent
}
