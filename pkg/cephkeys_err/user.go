// pkg/cephkeys_err/user.go

package cephkeys_err

import (
	"errors"
)

// UserError marks an error as expected and user-fixable. Wrapped errors of
// this kind log as warnings and exit zero; everything else is a system
// failure and exits non-zero.
type UserError struct {
	cause error
}

func (e *UserError) Error() string {
	return e.cause.Error()
}

func (e *UserError) Unwrap() error {
	return e.cause
}

// NewExpectedError wraps an error for softer UX handling.
func NewExpectedError(err error) error {
	if err == nil {
		return nil
	}
	return &UserError{cause: err}
}

// IsExpectedUserError checks if the error is marked as expected.
func IsExpectedUserError(err error) bool {
	var e *UserError
	return errors.As(err, &e)
}

// ExitCode maps an error onto the process exit status: 0 for nil or
// expected user errors, 1 otherwise.
func ExitCode(err error) int {
	if err == nil || IsExpectedUserError(err) {
		return 0
	}
	return 1
}
