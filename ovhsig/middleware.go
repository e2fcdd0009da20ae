package ovhsig

import (
	"encoding/json"
	"errors"
	"net/http"
)

// MiddlewareFunc wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// MiddlewareConfig configures the server-side signature verification
// middleware.
type MiddlewareConfig struct {
	// Verify configures how signatures are verified.
	Verify VerifyConfig

	// OnError is called when verification fails. When nil, a JSON error
	// body in the OVH API format is written.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// Middleware returns a MiddlewareFunc that verifies signed requests.
//
// It returns ErrNoResolver if VerifyConfig.Resolver is nil.
func Middleware(cfg MiddlewareConfig) (MiddlewareFunc, error) {
	if cfg.Verify.Resolver == nil {
		return nil, ErrNoResolver
	}

	onError := cfg.OnError
	if onError == nil {
		onError = defaultOnError
	}

	verifyCfg := cfg.Verify

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := VerifyRequest(r, verifyCfg); err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// ErrorBody is the error payload returned by the OVH API.
type ErrorBody struct {
	ErrorCode string `json:"errorCode"`
	HTTPCode  string `json:"httpCode"`
	Message   string `json:"message"`
}

// WriteError writes an OVH API error payload with the given status.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(ErrorBody{
		ErrorCode: code,
		HTTPCode:  http.StatusText(status),
		Message:   message,
	})
}

// defaultOnError maps verification errors to the codes the API uses.
func defaultOnError(w http.ResponseWriter, _ *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSignatureInvalid), errors.Is(err, ErrMalformedHeader):
		WriteError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "Invalid signature")
	case errors.Is(err, ErrTimestampSkew):
		WriteError(w, http.StatusBadRequest, "QUERY_TIME_OUT", "Query out of time")
	case errors.Is(err, ErrSignatureNotFound):
		WriteError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", "You must login first")
	default:
		WriteError(w, http.StatusForbidden, "INVALID_CREDENTIAL", "This credential is not valid")
	}
}
