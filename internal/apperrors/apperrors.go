// Package apperrors defines the error kinds shared across the document
// store: DocStore, SearchStore, the indexing pipeline, and the
// Coordinator all return errors wrapping one of these sentinels so
// callers (HTTP handlers, the job worker) can branch with errors.Is
// instead of inspecting strings.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// NotFound means the requested namespace or document does not exist.
	NotFound = errors.New("not found")

	// InProgress means the document was ingested but has not finished
	// indexing yet; callers should retry later.
	InProgress = errors.New("indexing in progress")

	// Conflict means a reindex is already running for the namespace, or a
	// schema update collided with one.
	Conflict = errors.New("conflict")

	// BadRequest means the caller's input (a JSONPath, a filter
	// expression, an unset search schema) was rejected by the translator
	// or the Coordinator. The indexing worker also uses it for a stored
	// document body that is not a JSON object.
	BadRequest = errors.New("bad request")

	// TransientIO means a database or search-engine call failed in a way
	// that is expected to succeed on retry.
	TransientIO = errors.New("transient I/O error")

	// Fatal means the operation failed in a way retrying will not fix
	// (e.g. a job of an unknown kind in the indexing queue).
	Fatal = errors.New("fatal error")
)

// BadRequestf wraps a formatted diagnostic under the BadRequest sentinel.
func BadRequestf(format string, args ...any) error {
	return wrapf(BadRequest, format, args...)
}

// Transientf wraps a formatted diagnostic under the TransientIO sentinel.
func Transientf(format string, args ...any) error {
	return wrapf(TransientIO, format, args...)
}

// Fatalf wraps a formatted diagnostic under the Fatal sentinel.
func Fatalf(format string, args ...any) error {
	return wrapf(Fatal, format, args...)
}

func wrapf(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }
