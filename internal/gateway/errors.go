package gateway

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed gateway call.
type ErrorKind int

const (
	// KindRejected means the gateway answered with an error status: the
	// request itself was bad (amount, phone, unknown transaction).
	KindRejected ErrorKind = iota

	// KindUnavailable means the gateway never answered: transport failure
	// or timeout. The transaction may or may not exist remotely.
	KindUnavailable

	// KindInternal means the call never left cleanly: request construction
	// or response decoding failed on our side.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is the typed outcome of a failed gateway call.
type Error struct {
	Kind       ErrorKind
	Op         string // endpoint name, e.g. "initiate-pay"
	StatusCode int    // HTTP status for KindRejected, 0 otherwise
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s: %s (%d): %s", e.Op, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err is a gateway error of kind unavailable.
func IsUnavailable(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == KindUnavailable
}

// IsRejected reports whether err is a gateway error of kind rejected.
func IsRejected(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == KindRejected
}
