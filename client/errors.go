package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("resource not found")
	ErrServer       = errors.New("internal server error")
	ErrStatus       = errors.New("request failed")
	ErrNetwork      = errors.New("network error, check your connection")
	ErrConfig       = errors.New("request configuration error")
)

// APIError is returned for every failed call. Kind is one of the
// sentinels above so callers can match with errors.Is.
type APIError struct {
	Kind   error
	Status int
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	msg := e.Kind.Error()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Is(target error) bool { return target == e.Kind }

func (e *APIError) Unwrap() error { return e.Err }

// kindFor buckets an HTTP status.
func kindFor(status int) error {
	switch {
	case status == 401:
		return ErrUnauthorized
	case status == 403:
		return ErrForbidden
	case status == 404:
		return ErrNotFound
	case status >= 500:
		return ErrServer
	default:
		return ErrStatus
	}
}

// Detail returns the server supplied message of an API error, or "".
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}
