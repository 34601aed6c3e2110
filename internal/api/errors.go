package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/samcharles93/nmtdecode/internal/inference"
	"github.com/samcharles93/nmtdecode/internal/search"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// classify maps an error from the translation path to an HTTP status and an
// error type for the response envelope.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, inference.ErrEmptyInput),
		errors.Is(err, search.ErrConfig):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}
