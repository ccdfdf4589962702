package emulator

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the error taxonomy. Match with errors.Is.
var (
	// ErrBadRequest is returned for invalid input, before any side effect.
	ErrBadRequest = errors.New("emulator: bad request")

	// ErrBootTimeout is returned when the boot-completion flag never reads ready.
	ErrBootTimeout = errors.New("emulator: boot timeout")

	// ErrVideoTimeout is returned when no screen capture succeeds in time.
	ErrVideoTimeout = errors.New("emulator: video timeout")
)

// BadRequestError carries a client-facing validation message.
type BadRequestError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *BadRequestError) Error() string {
	return e.Message
}

// Is matches ErrBadRequest.
func (e *BadRequestError) Is(target error) bool {
	return target == ErrBadRequest
}

func badRequest(field, format string, args ...any) error {
	return &BadRequestError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// TimeoutError reports a polling deadline that elapsed.
type TimeoutError struct {
	// Kind is ErrBootTimeout or ErrVideoTimeout.
	Kind error

	Serial  string
	Timeout time.Duration

	// Last is the most recent transient failure seen while polling, if any.
	Last error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	secs := int(e.Timeout.Round(time.Second) / time.Second)
	if e.Kind == ErrVideoTimeout {
		return fmt.Sprintf("Video feed for %s not ready within %d seconds", e.Serial, secs)
	}
	return fmt.Sprintf("Emulator %s did not boot within %d seconds", e.Serial, secs)
}

// Unwrap returns the timeout kind.
func (e *TimeoutError) Unwrap() error {
	return e.Kind
}
