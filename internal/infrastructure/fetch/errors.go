package fetch

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrorKind drives the retry policy: Transient errors are retried with
// backoff, Permanent errors fail immediately.
type ErrorKind int

const (
	Transient ErrorKind = iota
	Permanent
)

func (k ErrorKind) String() string {
	if k == Transient {
		return "transient"
	}
	return "permanent"
}

// Error is a typed fetch failure. Status is zero for connection-level
// failures.
type Error struct {
	Kind   ErrorKind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s: %s status %d", e.URL, e.Kind, e.Status)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// statusError maps an HTTP status to a typed error. 5xx and 429 are
// transient; every other non-2xx status is permanent.
func statusError(rawURL string, status int) *Error {
	kind := Permanent
	if status >= 500 || status == 429 {
		kind = Transient
	}
	return &Error{Kind: kind, URL: rawURL, Status: status}
}

// transportError maps a connection-level failure. Timeouts and resets are
// transient; malformed URLs and the rest are permanent.
func transportError(rawURL string, err error) *Error {
	kind := Permanent

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = Transient
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		kind = Transient
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		kind = Transient
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		kind = Transient
	}

	return &Error{Kind: kind, URL: rawURL, Err: err}
}

// IsPermanent reports whether err is a fetch error that must not be retried.
func IsPermanent(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == Permanent
}
