package backend

import (
	"errors"
	"fmt"
)

// Error codes carried by CommandError. What a code means for a particular
// operation is decided by the caller.
const (
	CodeFailed         = 1
	CodeInaccessible   = 2
	CodeMessageFailed  = 3
	CodeUnsupported    = 4
	CodeUnknownCommand = 64
	CodeBadArgument    = 65
)

// ErrNoSession is returned when an operation runs on a value that was not
// obtained from a client.
var ErrNoSession = errors.New("backend: no session")

// ErrSessionReset is returned when the backend state behind a channel was
// replaced in the middle of a critical section, losing the configuration
// sent earlier in it.
var ErrSessionReset = errors.New("backend: session state reset during a critical section")

// CommandError is a failure reported by the backend for one command.
type CommandError struct {
	Command string
	Code    int
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed (code %d)", e.Command, e.Code)
	}
	return fmt.Sprintf("%s: %s (code %d)", e.Command, e.Message, e.Code)
}

// Errorf builds a CommandError with a formatted message.
func Errorf(command string, code int, format string, args ...any) *CommandError {
	return &CommandError{Command: command, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Code extracts the CommandError code from err, or 0 when err does not wrap
// a CommandError.
func Code(err error) int {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

// IsCode reports whether err wraps a CommandError with the given code.
func IsCode(err error, code int) bool {
	return err != nil && Code(err) == code
}
