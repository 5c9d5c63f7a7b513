package lastfm

import (
	"errors"
	"fmt"
)

// Error is an error response from the Last.fm API.
type Error struct {
	Code    int    // Last.fm error code
	Message string // Error message from Last.fm
}

func (e *Error) Error() string {
	return fmt.Sprintf("lastfm: error %d: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is works against a
// code-only target such as &Error{Code: ErrCodeServiceOffline}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary reports whether the request may succeed if retried.
func (e *Error) Temporary() bool {
	switch e.Code {
	case ErrCodeOperationFailed, ErrCodeServiceOffline, ErrCodeTempUnavailable:
		return true
	default:
		return false
	}
}

// Error codes album.getInfo can return.
const (
	ErrCodeInvalidParameters = 6 // includes "Album not found"
	ErrCodeOperationFailed   = 8 // backend error
	ErrCodeInvalidAPIKey     = 10
	ErrCodeServiceOffline    = 11
	ErrCodeTempUnavailable   = 16
	ErrCodeSuspendedAPIKey   = 26
	ErrCodeRateLimitExceeded = 29
)

// ErrInvalidConfig is returned by NewClient for an unusable Config.
var ErrInvalidConfig = errors.New("lastfm: invalid configuration")
