package collector

import (
	"errors"
	"fmt"

	"github.com/nao1215/changemon/internal/model"
)

var (
	// ErrCollect matches every collection failure.
	ErrCollect = errors.New("collection failed")

	// ErrBodyTooLarge is returned when a response exceeds the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrUnexpectedStatus is returned for non-2xx HTTP responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrAllSourcesFailed is returned when no set source produced a result.
	ErrAllSourcesFailed = errors.New("all sources failed")

	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// Error describes a failed collection of one target.
type Error struct {
	// Source names the collector or tool that failed.
	Source string
	// Target is the target being collected.
	Target model.Target
	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Target, e.Err)
}

// Unwrap returns the underlying failure.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrCollect.
func (e *Error) Is(target error) bool {
	return target == ErrCollect
}

func newError(source string, target model.Target, err error) *Error {
	return &Error{Source: source, Target: target, Err: err}
}
