package discovery

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyActive is returned by Activate while another activation on the
	// same stream is still live. It signals a programming error in the caller.
	ErrAlreadyActive = errors.New("discovery stream already active")

	// ErrDiscoveryFailed matches every *FailedError via errors.Is.
	ErrDiscoveryFailed = errors.New("discovery failed")
)

// FailedError reports a hardware or transport failure that terminated an
// activation. Error returns the reason alone so hosts can display it as-is.
type FailedError struct {
	Reason string
	Err    error
}

// Failure creates a FailedError with the given reason and optional cause.
func Failure(reason string, err error) *FailedError {
	return &FailedError{Reason: reason, Err: err}
}

// Error implements the error interface
func (e *FailedError) Error() string {
	if e.Reason == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}

// Unwrap returns the underlying cause
func (e *FailedError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDiscoveryFailed) true for every FailedError.
func (e *FailedError) Is(target error) bool {
	return target == ErrDiscoveryFailed
}

// Detail returns the reason together with its cause, for logs.
func (e *FailedError) Detail() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (caused by: %v)", e.Reason, e.Err)
	}
	return e.Reason
}

// AsFailure converts any error into a *FailedError, keeping an existing one.
func AsFailure(err error) *FailedError {
	if err == nil {
		return nil
	}
	var fe *FailedError
	if errors.As(err, &fe) {
		return fe
	}
	return Failure(err.Error(), err)
}
