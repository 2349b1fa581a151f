package openailike

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/s-aravindh/unified-llm/internal/transport"
)

type ErrorKind string

const (
	ErrKindAuth       ErrorKind = "auth"
	ErrKindRateLimit  ErrorKind = "rate_limit"
	ErrKindBadRequest ErrorKind = "bad_request"
	ErrKindNotFound   ErrorKind = "not_found"
	ErrKindServer     ErrorKind = "server"
	ErrKindTimeout    ErrorKind = "timeout"
	ErrKindCanceled   ErrorKind = "canceled"
	ErrKindParse      ErrorKind = "parse"
	ErrKindUnknown    ErrorKind = "unknown"
)

// APIError is the provider-agnostic error container returned by Chat and
// ChatStream. It carries a stable classification, the raw error payload and
// retry hints.
type APIError struct {
	Kind ErrorKind

	HTTPStatus   int
	ProviderCode string
	Message      string

	Retryable bool

	// Raw is the raw HTTP response body, when one was received.
	Raw []byte

	Cause error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	return fmt.Sprintf("openailike: %s", msg)
}

func (e *APIError) Unwrap() error { return e.Cause }

func AsAPIError(err error) (*APIError, bool) {
	var e *APIError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func mapError(err error) error {
	if errors.Is(err, context.Canceled) {
		return &APIError{Kind: ErrKindCanceled, Message: "request canceled", Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &APIError{Kind: ErrKindTimeout, Message: "request deadline exceeded", Retryable: true, Cause: err}
	}

	var se *transport.HTTPStatusError
	if errors.As(err, &se) {
		kind, retryable := classifyHTTP(se.StatusCode)
		msg := gjson.GetBytes(se.Body, "error.message").String()
		if msg == "" {
			msg = http.StatusText(se.StatusCode)
		}
		return &APIError{
			Kind:         kind,
			HTTPStatus:   se.StatusCode,
			ProviderCode: gjson.GetBytes(se.Body, "error.code").String(),
			Message:      msg,
			Retryable:    retryable,
			Raw:          append([]byte(nil), se.Body...),
			Cause:        err,
		}
	}

	return &APIError{Kind: ErrKindUnknown, Message: err.Error(), Retryable: true, Cause: err}
}

func classifyHTTP(status int) (ErrorKind, bool) {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrKindAuth, false
	case http.StatusTooManyRequests:
		return ErrKindRateLimit, true
	case http.StatusBadRequest:
		return ErrKindBadRequest, false
	case http.StatusNotFound:
		return ErrKindNotFound, false
	case http.StatusRequestTimeout:
		return ErrKindTimeout, true
	default:
		if status >= 500 {
			return ErrKindServer, true
		}
		return ErrKindUnknown, false
	}
}
