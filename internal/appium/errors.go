package appium

import (
	"errors"
	"fmt"
)

// W3C WebDriver error codes the crawler cares about. Codes outside this set
// are carried through verbatim.
const (
	CodeNoSuchElement  = "no such element"
	CodeStaleElement   = "stale element reference"
	CodeTimeout        = "timeout"
	CodeInvalidSession = "invalid session id"
	CodeUnknownError   = "unknown error"
)

// Sentinel errors usable with errors.Is. They match any *Error with the same code.
var (
	ErrNoSuchElement  = &Error{Code: CodeNoSuchElement}
	ErrStaleElement   = &Error{Code: CodeStaleElement}
	ErrTimeout        = &Error{Code: CodeTimeout}
	ErrInvalidSession = &Error{Code: CodeInvalidSession}
)

// Error is a WebDriver error response returned by the Appium server.
type Error struct {
	Code    string
	Message string
	Status  int
	Command string
}

func (e *Error) Error() string {
	switch {
	case e.Command != "" && e.Message != "":
		return fmt.Sprintf("appium %s: %s: %s", e.Command, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("appium: %s: %s", e.Code, e.Message)
	default:
		return "appium: " + e.Code
	}
}

// Is reports whether target is an *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// IsNoSuchElement reports whether err is a "no such element" failure.
func IsNoSuchElement(err error) bool { return errors.Is(err, ErrNoSuchElement) }

// IsStaleElement reports whether err is a stale element reference.
func IsStaleElement(err error) bool { return errors.Is(err, ErrStaleElement) }

// IsTimeout reports whether err is a WebDriver timeout, including bounded waits that expired.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }
