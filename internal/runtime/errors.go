package runtime

import (
	"errors"
	"fmt"
)

// UnprocessableEventError wraps an event the matcher could not evaluate. The
// failure is a property of the payload, so retrying cannot help and the
// poison queue takes the message instead.
type UnprocessableEventError struct {
	Handler     string
	MessageUUID string
	Err         error
}

func (e *UnprocessableEventError) Error() string {
	return fmt.Sprintf("protomatch: unprocessable event %s in %s: %v", e.MessageUUID, e.Handler, e.Err)
}

func (e *UnprocessableEventError) Unwrap() error {
	return e.Err
}

// IsUnprocessable reports whether err, or anything it wraps, is an
// UnprocessableEventError.
func IsUnprocessable(err error) bool {
	var unprocessable *UnprocessableEventError
	return errors.As(err, &unprocessable)
}
