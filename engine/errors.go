package engine

import (
	"errors"
	"fmt"
)

// CancelCode categorizes why an outcome was cancelled instead of fulfilled.
type CancelCode string

const (
	// CodeSuperseded indicates another expectation won the match pass.
	CodeSuperseded CancelCode = "SUPERSEDED"

	// CodeTimedOut indicates the active timeout fired before any match.
	CodeTimedOut CancelCode = "TIMED_OUT"

	// CodeTimeoutCleared indicates a timeout was stopped because a match
	// occurred first. Only timeout outcomes carry this code.
	CodeTimeoutCleared CancelCode = "TIMEOUT_CLEARED"

	// CodeUpstreamClosed indicates the input ended (or failed) while the
	// outcome was pending.
	CodeUpstreamClosed CancelCode = "UPSTREAM_CLOSED"

	// CodeCancelled indicates the caller cancelled the handle explicitly.
	CodeCancelled CancelCode = "CANCELLED"

	// CodeStopped indicates the engine shut down.
	CodeStopped CancelCode = "ENGINE_STOPPED"
)

// CancelError is the reason carried by a cancelled outcome.
//
// Two CancelErrors are equal under errors.Is when their codes match, so the
// sentinels below can be used directly:
//
//	_, err := out.Wait(ctx)
//	if errors.Is(err, engine.ErrTimedOut) { ... }
type CancelError struct {
	// Code identifies the cancellation category.
	Code CancelCode

	// Message is a human-readable reason.
	Message string

	// Pattern describes the expectation that was cancelled, if any.
	Pattern string

	// Err is the underlying cause, e.g. the read error that closed the input.
	Err error
}

// Error implements the error interface.
func (e *CancelError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Pattern != "" {
		msg += fmt.Sprintf(" (pattern=%s)", e.Pattern)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CancelError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a CancelError with the same code.
func (e *CancelError) Is(target error) bool {
	t, ok := target.(*CancelError)
	return ok && t.Code == e.Code
}

var (
	ErrSuperseded     = &CancelError{Code: CodeSuperseded, Message: "superseded by another match"}
	ErrTimedOut       = &CancelError{Code: CodeTimedOut, Message: "timed out"}
	ErrTimeoutCleared = &CancelError{Code: CodeTimeoutCleared, Message: "cleared by match"}
	ErrUpstreamClosed = &CancelError{Code: CodeUpstreamClosed, Message: "input closed"}
	ErrCancelled      = &CancelError{Code: CodeCancelled, Message: "cancelled by caller"}
	ErrStopped        = &CancelError{Code: CodeStopped, Message: "engine stopped"}
)

// ErrPending is returned by Outcome.Result while the outcome is unsettled.
var ErrPending = errors.New("engine: outcome pending")

// cancelWith copies a sentinel, attaching the pattern description and cause.
func cancelWith(sentinel *CancelError, pattern string, cause error) *CancelError {
	return &CancelError{
		Code:    sentinel.Code,
		Message: sentinel.Message,
		Pattern: pattern,
		Err:     cause,
	}
}

func isCode(err error, code CancelCode) bool {
	var ce *CancelError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsSuperseded returns true if err is a SUPERSEDED cancellation.
func IsSuperseded(err error) bool { return isCode(err, CodeSuperseded) }

// IsTimedOut returns true if err is a TIMED_OUT cancellation.
func IsTimedOut(err error) bool { return isCode(err, CodeTimedOut) }

// IsTimeoutCleared returns true if err is a TIMEOUT_CLEARED cancellation.
func IsTimeoutCleared(err error) bool { return isCode(err, CodeTimeoutCleared) }

// IsUpstreamClosed returns true if err is an UPSTREAM_CLOSED cancellation.
func IsUpstreamClosed(err error) bool { return isCode(err, CodeUpstreamClosed) }

// IsCancelled returns true if err is a CANCELLED cancellation.
func IsCancelled(err error) bool { return isCode(err, CodeCancelled) }

// IsStopped returns true if err is an ENGINE_STOPPED cancellation.
func IsStopped(err error) bool { return isCode(err, CodeStopped) }
