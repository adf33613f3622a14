package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the ensemble pipeline.
var (
	// ErrNoGenerators indicates that every configured generator model
	// failed. It is the only error Process returns to callers; every
	// other failure degrades instead of aborting.
	ErrNoGenerators = errors.New("no generator models produced a response")

	// ErrEmptyQuestion indicates that Process was called with an empty or
	// whitespace-only question.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrInvalidConfiguration indicates that pipeline construction
	// received invalid or incomplete configuration.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ParseError reports that a judge's reply could not be interpreted as the
// expected structured shape. It fails that judge's evaluation wholly;
// partial field recovery is deliberately not attempted.
type ParseError struct {
	// JudgeName identifies the judge whose reply failed to parse.
	JudgeName string

	// Reason describes what was malformed or missing.
	Reason string

	// Err is the underlying decode or validation error, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("judge %s: unparseable reply: %s: %v", e.JudgeName, e.Reason, e.Err)
	}
	return fmt.Sprintf("judge %s: unparseable reply: %s", e.JudgeName, e.Reason)
}

// Unwrap returns the underlying error for errors.Is/As inspection.
func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError creates a ParseError for the named judge.
func NewParseError(judgeName, reason string, err error) *ParseError {
	return &ParseError{JudgeName: judgeName, Reason: reason, Err: err}
}
