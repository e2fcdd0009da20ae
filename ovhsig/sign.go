package ovhsig

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names of the OVH API authentication scheme.
const (
	HeaderApplication = "X-Ovh-Application"
	HeaderConsumer    = "X-Ovh-Consumer"
	HeaderTimestamp   = "X-Ovh-Timestamp"
	HeaderSignature   = "X-Ovh-Signature"
	HeaderContentType = "Content-Type"
)

// ContentTypeJSON is sent with every request, signed or not.
const ContentTypeJSON = "application/json;charset=UTF-8"

// SignaturePrefix identifies the signature version in X-Ovh-Signature.
const SignaturePrefix = "$1$"

// Credentials holds the three keys of the signing scheme.
type Credentials struct {
	// ApplicationKey identifies the application (X-Ovh-Application).
	ApplicationKey string

	// ApplicationSecret is the shared secret that enters the signature.
	// It is never sent over the wire.
	ApplicationSecret string

	// ConsumerKey identifies the authenticated user (X-Ovh-Consumer).
	ConsumerKey string
}

// CredentialsProvider supplies credentials at signing time. It allows the
// consumer key to change between requests (login, logout).
type CredentialsProvider interface {
	Credentials() Credentials
}

// StaticCredentials is a CredentialsProvider returning fixed keys.
type StaticCredentials Credentials

// Credentials implements CredentialsProvider.
func (c StaticCredentials) Credentials() Credentials {
	return Credentials(c)
}

// OffsetFunc returns the clock offset in seconds between the local clock
// and the API clock (local minus remote).
type OffsetFunc func(ctx context.Context) (int64, error)

// Request is the signing input. It is consumed once per signature.
type Request struct {
	Method    string
	URL       string
	Body      string
	Timestamp int64
}

// Timestamp returns the API-corrected UNIX timestamp for now.
func Timestamp(now time.Time, offset int64) int64 {
	return now.Unix() - offset
}

// SignatureBase returns the string that is hashed to produce a signature.
// The field order is part of the wire contract and must not change.
func SignatureBase(secret, consumerKey string, req Request) string {
	return strings.Join([]string{
		secret,
		consumerKey,
		req.Method,
		req.URL,
		req.Body,
		strconv.FormatInt(req.Timestamp, 10),
	}, "+")
}

// Signature returns the X-Ovh-Signature value for req.
func Signature(secret, consumerKey string, req Request) string {
	return SignaturePrefix + HexDigest([]byte(SignatureBase(secret, consumerKey, req)))
}

// HeaderOptions describes an authenticated request for Headers.
type HeaderOptions struct {
	Credentials

	Method string
	URL    string

	// Body is the exact serialized request payload, empty when there is
	// no body.
	Body string

	// Offset is the clock offset returned by the API time endpoint.
	Offset int64

	// Now is the local time used for the timestamp. When zero,
	// time.Now() is used.
	Now time.Time
}

// Headers returns the request headers for an API call. When opts is nil
// only the content type is set (unauthenticated call). Otherwise the
// application, consumer, timestamp and signature headers are added.
func Headers(opts *HeaderOptions) http.Header {
	h := make(http.Header, 5)
	h.Set(HeaderContentType, ContentTypeJSON)

	if opts == nil {
		return h
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	ts := Timestamp(now, opts.Offset)

	h.Set(HeaderApplication, opts.ApplicationKey)
	h.Set(HeaderConsumer, opts.ConsumerKey)
	h.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	h.Set(HeaderSignature, Signature(opts.ApplicationSecret, opts.ConsumerKey, Request{
		Method:    opts.Method,
		URL:       opts.URL,
		Body:      opts.Body,
		Timestamp: ts,
	}))

	return h
}

// SignConfig configures signing of *http.Request values.
type SignConfig struct {
	// Credentials supplies the keys. Required.
	Credentials CredentialsProvider

	// Offset supplies the clock offset. When nil, no offset is applied.
	Offset OffsetFunc

	// Now returns the local time. Defaults to time.Now.
	Now func() time.Time
}

// SignRequest signs an HTTP request in-place. The full request URL and
// the request body are covered by the signature; the body is restored so
// it can be sent afterwards.
func SignRequest(r *http.Request, cfg SignConfig) error {
	if cfg.Credentials == nil {
		return ErrNoCredentials
	}

	creds := cfg.Credentials.Credentials()
	if creds.ApplicationKey == "" {
		return ErrNoApplicationKey
	}

	if creds.ConsumerKey == "" {
		return ErrNoConsumerKey
	}

	var offset int64
	if cfg.Offset != nil {
		o, err := cfg.Offset(r.Context())
		if err != nil {
			return err
		}

		offset = o
	}

	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return err
	}

	headers := Headers(&HeaderOptions{
		Credentials: creds,
		Method:      r.Method,
		URL:         r.URL.String(),
		Body:        string(body),
		Offset:      offset,
		Now:         now(),
	})

	for name, values := range headers {
		r.Header[name] = values
	}

	return nil
}
