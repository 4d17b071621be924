package core

import (
	"fmt"

	"github.com/juju/errors"
)

// TransportError wraps a send, receive or bind failure of the underlying
// datagram socket. It is always returned to the caller, never retried here.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err (or anything it wraps) is a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// invalidArgument builds the error returned by command constructors
// when a value is outside its declared range.
func invalidArgument(format string, args ...interface{}) error {
	return errors.NotValidf(format, args...)
}

// IsInvalidArgument reports whether err was produced by a rejected command argument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, errors.NotValid)
}

// ProtocolTimeout builds the error reported when no datagram arrived within a wait window.
func ProtocolTimeout(format string, args ...interface{}) error {
	return errors.Timeoutf(format, args...)
}

// IsProtocolTimeout reports whether err is a ProtocolTimeout.
func IsProtocolTimeout(err error) bool {
	return errors.Is(err, errors.Timeout)
}
