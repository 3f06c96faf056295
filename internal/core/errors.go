package core

import (
	"errors"
	"fmt"
)

// Exit codes returned by the CLI.
const (
	ExitOK       = 0
	ExitRuntime  = 1
	ExitUsage    = 2
	ExitAuth     = 3
	ExitNotFound = 4
	ExitTimeout  = 5
)

var (
	// ErrEmptyCredential is returned when an empty credential is submitted. Nothing is sent.
	ErrEmptyCredential = errors.New("credential is empty")
	// ErrNotAuthorized is returned when a command is issued before the handshake completed.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidState is returned when an operation does not apply to the current session state.
	ErrInvalidState = errors.New("invalid session state")
	// ErrUnknownVideo is returned for paths missing from the catalog.
	ErrUnknownVideo = errors.New("unknown video")
	// ErrNotEditing is returned when a video has no open edit buffer.
	ErrNotEditing = errors.New("video is not being edited")
	// ErrNoSearch is returned when no metadata search is active.
	ErrNoSearch = errors.New("no metadata search in progress")
)

// MalformedPayloadError describes a server payload that could not be applied.
type MalformedPayloadError struct {
	Payload string
	Err     error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed server payload: %v", e.Err)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Err
}

// CLIError carries a user-visible message and exit code.
type CLIError struct {
	Code int
	Msg  string
	Err  error
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// WrapError creates a CLIError with an underlying error.
func WrapError(code int, msg string, err error) *CLIError {
	return &CLIError{Code: code, Msg: msg, Err: err}
}

// ExitCode returns the CLI exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	switch {
	case errors.Is(err, ErrEmptyCredential), errors.Is(err, ErrNotAuthorized):
		return ExitAuth
	case errors.Is(err, ErrUnknownVideo):
		return ExitNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrNotEditing), errors.Is(err, ErrNoSearch):
		return ExitUsage
	default:
		return ExitRuntime
	}
}
