package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrReportNotFound is returned when the report id resolves to no document.
var ErrReportNotFound = errors.New("report not found")

// ValidationError covers missing request parameters and aggregations
// that yield no renderable content. Mapped to HTTP 400, never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// RenderError is a template/field mismatch. It indicates a defect in
// the template or the field mapping, not a transient condition.
type RenderError struct {
	Diag string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render: %s: %v", e.Diag, e.Err)
	}
	return "render: " + e.Diag
}

func (e *RenderError) Unwrap() error { return e.Err }

// ConversionError is a terminal failure reported by the conversion
// service for one job.
type ConversionError struct {
	JobID   string
	Message string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("conversion job %s failed: %s", e.JobID, e.Message)
}

// ConversionTimeout means the job did not reach a terminal state within
// the wait budget. The job id is abandoned and never polled again.
type ConversionTimeout struct {
	JobID  string
	Waited time.Duration
}

func (e *ConversionTimeout) Error() string {
	return fmt.Sprintf("conversion job %s timed out after %s", e.JobID, e.Waited)
}

// PublishError is a storage write failure. Fatal for the request.
type PublishError struct {
	Key string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Key, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
