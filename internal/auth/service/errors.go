package service

import (
	"fmt"
	"time"

	dErrors "takenotes/pkg/domain-errors"
)

// ThrottledError is a CodeTooManyRequests error that also carries how long
// the caller should wait. httputil.WriteError turns it into Retry-After.
type ThrottledError struct {
	err        *dErrors.Error
	retryAfter time.Duration
}

func newThrottledError(retryAfter time.Duration) *ThrottledError {
	return &ThrottledError{
		err:        dErrors.New(dErrors.CodeTooManyRequests, "Please wait before requesting another code."),
		retryAfter: retryAfter,
	}
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.err.Error(), e.retryAfter)
}

func (e *ThrottledError) Unwrap() error {
	return e.err
}

// RetryAfterSeconds rounds the wait up to whole seconds, never below one.
func (e *ThrottledError) RetryAfterSeconds() int {
	secs := int((e.retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
