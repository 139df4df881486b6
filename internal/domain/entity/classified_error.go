package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the fixed failure taxonomy every surfaced error falls into.
type ErrorKind string

const (
	ErrorKindNetwork    ErrorKind = "network"
	ErrorKindAPI        ErrorKind = "api"
	ErrorKindFileSystem ErrorKind = "filesystem"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindUnknown    ErrorKind = "unknown"
)

// ClassifiedError is the single user-facing failure record: a kind, a
// headline message and remediation suggestions the panel can render
// directly. It is constructed once at the failure site and never mutated.
type ClassifiedError struct {
	Kind        ErrorKind `json:"kind"`
	Message     string    `json:"message"`
	Details     string    `json:"details,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
}

func (e *ClassifiedError) Error() string { return e.Message }

func NewValidationError(message string, suggestions ...string) *ClassifiedError {
	return &ClassifiedError{
		Kind:        ErrorKindValidation,
		Message:     message,
		Suggestions: suggestions,
	}
}

func NewFileSystemError(message, details string) *ClassifiedError {
	return &ClassifiedError{
		Kind:    ErrorKindFileSystem,
		Message: message,
		Details: details,
		Suggestions: []string{
			"Check file permissions in the workspace",
			"Check available disk space",
		},
	}
}

func NewNetworkError(message, details string, suggestions ...string) *ClassifiedError {
	return &ClassifiedError{
		Kind:        ErrorKindNetwork,
		Message:     message,
		Details:     details,
		Suggestions: suggestions,
	}
}

func NewAPIError(message, details string, suggestions ...string) *ClassifiedError {
	return &ClassifiedError{
		Kind:        ErrorKindAPI,
		Message:     message,
		Details:     details,
		Suggestions: suggestions,
	}
}

// Classify normalizes an arbitrary error for presentation. Errors that are
// already classified pass through untouched; everything else is matched
// case-insensitively against marker substrings, first match wins. Marker
// matching is inherently fuzzy, so callers with structured knowledge of the
// failure should use the constructors instead.
func Classify(err error, context string) *ClassifiedError {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "econnrefused", "enotfound", "timeout", "network"):
		return &ClassifiedError{
			Kind:    ErrorKindNetwork,
			Message: fmt.Sprintf("%s: %s", context, err),
			Suggestions: []string{
				"Verify the backend service is running",
				"Check the backend URL in settings",
			},
		}
	case containsAny(msg, "401", "403", "api key"):
		return &ClassifiedError{
			Kind:    ErrorKindAPI,
			Message: fmt.Sprintf("%s: %s", context, err),
			Suggestions: []string{
				"Check the API key configuration on the backend",
			},
		}
	case containsAny(msg, "enoent", "eacces", "permission"):
		return &ClassifiedError{
			Kind:    ErrorKindFileSystem,
			Message: fmt.Sprintf("%s: %s", context, err),
			Suggestions: []string{
				"Check file permissions in the workspace",
				"Check available disk space",
			},
		}
	default:
		return &ClassifiedError{
			Kind:    ErrorKindUnknown,
			Message: fmt.Sprintf("%s: %s", context, err),
			Suggestions: []string{
				"Retry the operation or report the issue",
			},
		}
	}
}

// KindOf reports the kind an error would surface as, without reclassifying
// already-classified errors. Used for metrics labels.
func KindOf(err error) ErrorKind {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrorKindUnknown
}

func containsAny(s string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(s, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
