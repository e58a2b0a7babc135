package lumen

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for API conditions callers are expected to branch on.
// All of them are produced by the status classifier and can be tested
// with errors.Is.
var (
	// ErrTooManyRequests indicates the caller triggered rate limiting
	// (HTTP 429). Sending requests more slowly resolves it.
	ErrTooManyRequests = errors.New("too many requests")

	// ErrBusy indicates the scheduler rejected the request because the
	// model's queue is full (HTTP 503 with code QUEUE_FULL). Retrying
	// later or picking another model resolves it.
	ErrBusy = errors.New("model busy: queue full")

	// ErrUnavailable indicates the service is temporarily down, e.g.
	// restarting (HTTP 503 without a queue-full code).
	ErrUnavailable = errors.New("service unavailable")

	// ErrModelNotFound indicates the requested model is not served
	// (HTTP 404 with code MODEL_NOT_FOUND).
	ErrModelNotFound = errors.New("model not found")

	// ErrTimeout indicates the per-request wall-clock budget expired
	// before the response (or the next stream chunk) arrived. It is
	// distinct from other transport failures so callers can tell
	// "server too slow" from "connection broken".
	ErrTimeout = errors.New("request timed out")
)

// HTTPError reports a non-success response the classifier could not map
// to a more specific condition. The body is retained verbatim for
// diagnostics.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// DecodeError reports a stream payload that could not be decoded into the
// task's response shape. It is recoverable: the stream continues and the
// caller may keep pulling events. Raw holds the offending payload text.
type DecodeError struct {
	Raw   string
	cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding stream event %q: %v", e.Raw, e.cause)
}

func (e *DecodeError) Unwrap() error { return e.cause }

// apiError is the machine-readable error body some endpoints return.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// classifyHTTP maps a non-success response to an error. The status code
// selects the candidate condition; where the code alone is ambiguous the
// machine-readable code in the body narrows it. A missing or unparseable
// body code defaults to the more generic interpretation.
func classifyHTTP(statusCode int, body []byte) error {
	var detail apiError
	// Best effort: plenty of error responses are plain text.
	_ = json.Unmarshal(body, &detail)

	switch statusCode {
	case http.StatusTooManyRequests:
		return ErrTooManyRequests
	case http.StatusServiceUnavailable:
		if detail.Code == "QUEUE_FULL" {
			return ErrBusy
		}
		return ErrUnavailable
	case http.StatusNotFound:
		if detail.Code == "MODEL_NOT_FOUND" {
			return ErrModelNotFound
		}
	}
	return &HTTPError{StatusCode: statusCode, Body: string(body)}
}
