package printer

import (
	"errors"
	"fmt"
)

// Code is a stable identifier for the stage a generation attempt failed in.
type Code string

const (
	CodeBrowserUnavailable Code = "browser_unavailable"
	CodeRenderTimeout      Code = "render_timeout"
	CodeCaptureFailure     Code = "capture_failure"
	CodeAssemblyFailure    Code = "assembly_failure"
	CodePublishFailure     Code = "publish_failure"
)

// Error wraps a stage failure with its stable code. Every stage error bubbles
// to the retry wrapper unchanged; no stage retries itself.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func stageError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// ErrorCode extracts the stage code from err. Errors that did not originate
// in a pipeline stage report an empty code so callers can fall back to a
// generic system error.
func ErrorCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
