package ovhsig

import "errors"

// Signing errors.
var (
	// ErrNoCredentials is returned when SignConfig has no Credentials
	// provider configured.
	ErrNoCredentials = errors.New("ovhsig: credentials provider must not be nil")

	// ErrNoApplicationKey is returned when the application key is empty.
	ErrNoApplicationKey = errors.New("ovhsig: application key must not be empty")

	// ErrNoConsumerKey is returned when a signature is requested without
	// a consumer key.
	ErrNoConsumerKey = errors.New("ovhsig: consumer key must not be empty")
)

// Verification errors.
var (
	// ErrNoResolver is returned when VerifyConfig has no SecretResolver
	// configured.
	ErrNoResolver = errors.New("ovhsig: secret resolver must not be nil")

	// ErrSignatureNotFound is returned when one of the X-Ovh-* headers
	// required for verification is missing.
	ErrSignatureNotFound = errors.New("ovhsig: signature headers not found")

	// ErrMalformedHeader is returned when the timestamp or signature
	// header cannot be parsed.
	ErrMalformedHeader = errors.New("ovhsig: malformed signature header")

	// ErrSignatureInvalid is returned when signature verification fails.
	ErrSignatureInvalid = errors.New("ovhsig: signature verification failed")

	// ErrTimestampSkew is returned when the request timestamp is outside
	// the accepted window.
	ErrTimestampSkew = errors.New("ovhsig: timestamp outside accepted window")

	// ErrInvalidKey is returned by resolvers when the application key or
	// consumer key is unknown.
	ErrInvalidKey = errors.New("ovhsig: invalid key")
)
