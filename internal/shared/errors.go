package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// RequestError is used when we want a specific error message and StatusCode
// surfaced to the client. For routes that need custom error messages, a
// request error can be generated and the router returns the exact message
// inside the request error.
//
// Error codes should be bubbled where the RequestError msg is expected to be
// returned to the user. If the user should see a generic error message but
// the error chain should include more detail for logging purposes, then a
// generic error should be added that provides context.
type RequestError struct {
	StatusCode int
	Err        error
}

func (r *RequestError) Error() string {
	return fmt.Sprintf("status %d: err %v", r.StatusCode, r.Err)
}

// Error kinds of the two-phase completion flow. Every error the reasoner
// returns wraps exactly one of these so the router can pick a status code
// with errors.Is.
var (
	// ErrValidation marks a structurally invalid inbound request, detected
	// before any upstream call.
	ErrValidation = errors.New("validation error")
	// ErrAPI marks an upstream non-2xx status or wrong content type.
	ErrAPI = errors.New("api error")
	// ErrParse marks a malformed upstream payload.
	ErrParse = errors.New("parse error")
	// ErrConfig marks an unknown or unloadable model configuration.
	ErrConfig = errors.New("config error")
	// ErrNetwork marks connection and timeout failures. Never retried:
	// reasoning tokens are billed upstream regardless of outcome.
	ErrNetwork = errors.New("network error")
)

var (
	ErrInvalidRequest      = &RequestError{Err: errors.New("invalid request body"), StatusCode: 400}
	ErrInternalServerError = &RequestError{Err: errors.New("internal server error"), StatusCode: 500}

	ErrMissingDoneToken = &StreamError{Msg: "missing [DONE] token", Code: "missing_done_token"}
	ErrClientGone       = &StreamError{Msg: "client disconnected", Code: "client_gone"}
)

// HTTPStatus maps a reasoner error chain onto the status code the client
// sees. An explicit RequestError in the chain wins.
func HTTPStatus(err error) int {
	var rerr *RequestError
	if errors.As(err, &rerr) {
		return rerr.StatusCode
	}
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConfig):
		return http.StatusBadRequest
	case errors.Is(err, ErrAPI), errors.Is(err, ErrParse), errors.Is(err, ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// StreamError marks mid-stream conditions that are logged and counted but
// never surfaced to a client that already received bytes.
type StreamError struct {
	Msg  string
	Code string
}

func (s *StreamError) Error() string {
	return s.Msg
}

func (s *StreamError) String() string {
	return s.Msg
}
