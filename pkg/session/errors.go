package session

import (
	"errors"
	"fmt"
)

// ErrNotAuthorized means the user holds no active society grant; there is
// no admin capability to enter.
var ErrNotAuthorized = errors.New("user has no active society grant")

// ErrSwitchInProgress means another society switch is in flight. Callers
// should retry once the current switch resolves; nothing is queued.
var ErrSwitchInProgress = errors.New("a society switch is already in progress")

// ErrNotInitialized means the manager has not resolved an identity yet
var ErrNotInitialized = errors.New("session manager is not initialized")

// errSuperseded aborts an in-flight switch overtaken by logout or mode exit
var errSuperseded = errors.New("switch superseded by mode exit")

// AccessDeniedError means the requested society is not in the user's active
// grant set, or the society itself is inactive. Recoverable: re-present the
// available societies.
type AccessDeniedError struct {
	TenantID string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access to society %q denied", e.TenantID)
}
