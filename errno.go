package crab

import (
	"fmt"
	"strings"
	"syscall"
)

// Error is the {message, numeric code} failure record every CRAB operation
// leaves on its File when it returns a non-nil error. Tag is a short static
// label such as "<file format>" or "open"; Errno mirrors POSIX errno
// conventions the way the C implementation this format was distilled from
// reported failures.
type Error struct {
	Tag   string
	Errno syscall.Errno

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Tag, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Tag, e.Errno)
}

// Unwrap exposes the underlying syscall or allocation error, if any, so
// callers can use errors.Is/errors.As against it.
func (e *Error) Unwrap() error {
	return e.cause
}

// perror renders tag+errno the way C's perror(3) would, for FlagPError.
func perror(tag string, errno syscall.Errno) string {
	msg := errno.Error()
	if msg != "" {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}
	return fmt.Sprintf("%s: %s", tag, msg)
}
