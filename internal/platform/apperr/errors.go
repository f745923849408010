// Package apperr holds the error taxonomy shared by every service and the
// echo error handler that turns it into HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusCoder is implemented by errors that know which HTTP status they
// should surface as.
type StatusCoder interface {
	error
	HTTPStatus() int
}

// ValidationError reports malformed input detected before any persistence
// access or downstream call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) HTTPStatus() int { return http.StatusBadRequest }

// Validation returns a ValidationError with a formatted reason.
func Validation(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a local persistence miss.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) HTTPStatus() int { return http.StatusNotFound }

// NotFound returns a NotFoundError for the given resource and id.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// StatusError reports an illegal prescription status transition request.
type StatusError struct {
	Requested string
	Reason    string
}

func (e *StatusError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("cannot transition prescription to status %s", e.Requested)
}

func (e *StatusError) HTTPStatus() int { return http.StatusBadRequest }

// ForbiddenError reports an authenticated caller acting on a record it does
// not own.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

func (e *ForbiddenError) HTTPStatus() int { return http.StatusForbidden }

// Forbidden returns a ForbiddenError.
func Forbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// ConflictError reports a request that contradicts stored state, e.g. a
// duplicate account email or a decided prescription.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) HTTPStatus() int { return http.StatusConflict }

// UnauthorizedError reports failed credential checks at login.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string { return e.Reason }

func (e *UnauthorizedError) HTTPStatus() int { return http.StatusUnauthorized }

// StatusOf returns the HTTP status carried by err, or 500 when err carries none.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
