// Package apierr is the error taxonomy every handler's response is mapped
// through: a *Error carries the HTTP status and a stable machine-readable
// code alongside the underlying cause, so response.RespondError doesn't
// have to re-derive a status from error text.
package apierr

import (
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Each constructor pins the HTTP status and code a given failure class maps
// to, so callers never have to look up the right http.Status* themselves.
func InvalidInput(err error) *Error        { return New(http.StatusBadRequest, "invalid_input", err) }
func NotFound(err error) *Error            { return New(http.StatusNotFound, "not_found", err) }
func Unauthorized(err error) *Error        { return New(http.StatusUnauthorized, "unauthorized", err) }
func Forbidden(err error) *Error           { return New(http.StatusForbidden, "forbidden", err) }
func Conflict(err error) *Error            { return New(http.StatusConflict, "conflict", err) }
func UpstreamUnavailable(err error) *Error { return New(http.StatusBadGateway, "upstream_unavailable", err) }
func Timeout(err error) *Error             { return New(http.StatusGatewayTimeout, "timeout", err) }
func Internal(err error) *Error            { return New(http.StatusInternalServerError, "internal", err) }
