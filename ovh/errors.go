package ovh

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotCredential is matched by errors.Is for every error reporting a
	// missing or rejected consumer key.
	ErrNotCredential = errors.New("ovh: this credential does not exist")

	// ErrLifecycleBusy is returned when Login or Logout is called while
	// another lifecycle operation is in progress.
	ErrLifecycleBusy = errors.New("ovh: login or logout already in progress")

	// ErrMalformedResponse is returned when a 2xx answer lacks a value
	// the client depends on. Nothing derived from it is kept.
	ErrMalformedResponse = errors.New("ovh: malformed response")

	ErrMissingApplicationKey    = errors.New("ovh: application key is required")
	ErrMissingApplicationSecret = errors.New("ovh: application secret is required")
	ErrUnknownEndpoint          = errors.New("ovh: unknown endpoint")
)

// Error codes reported by the API.
const (
	ErrorCodeNotCredential = "NOT_CREDENTIAL"
	ErrorCodeInvalidCred   = "INVALID_CREDENTIAL"
)

const notCredentialMessage = "This credential does not exist"

// APIError is a non-2xx answer of the API, or a locally synthesized
// NOT_CREDENTIAL failure.
type APIError struct {
	StatusCode int    `json:"-"`
	Status     string `json:"-"`

	// Fields decoded from the error payload, when present.
	ErrorCode string `json:"errorCode"`
	HTTPCode  string `json:"httpCode"`
	Message   string `json:"message"`

	// QueryID is the X-Ovh-QueryId response header.
	QueryID string `json:"-"`

	// Body is the raw response payload.
	Body []byte `json:"-"`
}

func (e *APIError) Error() string {
	switch {
	case e.ErrorCode != "" && e.Message != "":
		return fmt.Sprintf("ovh: %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("ovh: %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("ovh: unexpected status %d", e.StatusCode)
	}
}

// Is reports NOT_CREDENTIAL and INVALID_CREDENTIAL answers as
// ErrNotCredential.
func (e *APIError) Is(target error) bool {
	if target != ErrNotCredential {
		return false
	}

	return e.ErrorCode == ErrorCodeNotCredential || e.ErrorCode == ErrorCodeInvalidCred
}

func notCredential() *APIError {
	return &APIError{
		StatusCode: http.StatusForbidden,
		Status:     http.StatusText(http.StatusForbidden),
		ErrorCode:  ErrorCodeNotCredential,
		Message:    notCredentialMessage,
	}
}
