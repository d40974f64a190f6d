package landing

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the landing service layer.
var (
	ErrNotFound          = errors.New("landing page not found")
	ErrInvalidConfig     = errors.New("landing page configuration is invalid")
	ErrSlugConflict      = errors.New("slug is already used by another published page")
	ErrUpstreamFailure   = errors.New("content generation failed")
	ErrPublishInProgress = errors.New("another publish for this slug is in progress")
	ErrContentDisabled   = errors.New("content generation is not configured")
)

// ValidationError carries every field violation found in one pass.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + string(f.Kind)
	}
	return fmt.Sprintf("%s (%s)", ErrInvalidConfig, strings.Join(parts, ", "))
}

// Is matches ErrInvalidConfig, and ErrSlugConflict when a slug_taken
// violation is present.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrInvalidConfig:
		return true
	case ErrSlugConflict:
		return e.Has("slug", KindSlugTaken)
	}
	return false
}

// Has reports whether the error contains a violation of kind on field.
func (e *ValidationError) Has(field string, kind ViolationKind) bool {
	for _, f := range e.Fields {
		if f.Field == field && f.Kind == kind {
			return true
		}
	}
	return false
}

// UpstreamError reports a failed call to the content collaborator. No
// partial result accompanies it.
type UpstreamError struct {
	Kind ContentKind
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrUpstreamFailure, e.Kind, e.Err)
}

// Unwrap exposes both ErrUpstreamFailure and the underlying cause, so callers
// can test for either (e.g. context.DeadlineExceeded).
func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstreamFailure, e.Err}
}
