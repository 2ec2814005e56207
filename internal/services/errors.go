package services

import (
	"errors"
	"fmt"
	"strings"

	"readrepeat/internal/queue"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a handler error to the queue status the worker should
// persist. Bad input needs a human (review); everything else may be retried.
func FailureStatus(err error) queue.Status {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return queue.StatusReview
	default:
		return queue.StatusFailed
	}
}

// Message returns the innermost human-readable message of err, without the
// marker and stage prefixes Wrap adds. Reports sent back to the lesson API use
// this so users see "No sentences found in foreign text" rather than the full
// chain.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var detailed interface{ UserMessage() string }
	if errors.As(err, &detailed) {
		return detailed.UserMessage()
	}
	return err.Error()
}

// UserError carries a message intended for the person who submitted the job.
type UserError struct {
	Marker error
	Text   string
}

func (e *UserError) Error() string       { return e.Text }
func (e *UserError) UserMessage() string { return e.Text }
func (e *UserError) Unwrap() error       { return e.Marker }

// NewUserError returns a marker-tagged error whose text is reported verbatim.
func NewUserError(marker error, text string) error {
	if marker == nil {
		marker = ErrValidation
	}
	return &UserError{Marker: marker, Text: text}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
