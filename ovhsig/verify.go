package ovhsig

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SecretResolver returns the application secret bound to applicationKey.
// It should return an error wrapping ErrInvalidKey for unknown keys.
type SecretResolver func(r *http.Request, applicationKey string) (string, error)

// ConsumerValidator checks that consumerKey is a live credential for
// applicationKey.
type ConsumerValidator func(r *http.Request, applicationKey, consumerKey string) error

// VerifyConfig configures server-side verification of signed requests.
type VerifyConfig struct {
	// Resolver looks up the application secret. Required.
	Resolver SecretResolver

	// Consumer, when set, is called after the signature has been checked.
	Consumer ConsumerValidator

	// MaxSkew is the maximum accepted distance between the request
	// timestamp and the server clock. Zero disables the check.
	MaxSkew time.Duration

	// Now returns the server time. Defaults to time.Now.
	Now func() time.Time

	// URL reconstructs the URL the client signed. Defaults to
	// scheme://Host + RequestURI.
	URL func(r *http.Request) string
}

// VerifyRequest verifies the X-Ovh-* headers of an incoming request.
// The body is read and restored.
func VerifyRequest(r *http.Request, cfg VerifyConfig) error {
	if cfg.Resolver == nil {
		return ErrNoResolver
	}

	appKey := r.Header.Get(HeaderApplication)
	consumerKey := r.Header.Get(HeaderConsumer)
	tsHeader := r.Header.Get(HeaderTimestamp)
	sigHeader := r.Header.Get(HeaderSignature)

	if appKey == "" || consumerKey == "" || tsHeader == "" || sigHeader == "" {
		return ErrSignatureNotFound
	}

	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: timestamp %q", ErrMalformedHeader, tsHeader)
	}

	if !strings.HasPrefix(sigHeader, SignaturePrefix) || len(sigHeader) != len(SignaturePrefix)+2*Size {
		return fmt.Errorf("%w: signature %q", ErrMalformedHeader, sigHeader)
	}

	if cfg.MaxSkew > 0 {
		now := time.Now
		if cfg.Now != nil {
			now = cfg.Now
		}

		// Bounds are compared in seconds; ts may be any int64.
		limit := int64(cfg.MaxSkew / time.Second)
		current := now().Unix()

		if ts < current-limit || ts > current+limit {
			return ErrTimestampSkew
		}
	}

	secret, err := cfg.Resolver(r, appKey)
	if err != nil {
		return err
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return err
	}

	signedURL := requestURL(r)
	if cfg.URL != nil {
		signedURL = cfg.URL(r)
	}

	expected := Signature(secret, consumerKey, Request{
		Method:    r.Method,
		URL:       signedURL,
		Body:      string(body),
		Timestamp: ts,
	})

	if subtle.ConstantTimeCompare([]byte(expected), []byte(sigHeader)) != 1 {
		return ErrSignatureInvalid
	}

	if cfg.Consumer != nil {
		return cfg.Consumer(r, appKey, consumerKey)
	}

	return nil
}

// requestURL rebuilds the absolute URL of an incoming server request.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host + r.URL.RequestURI()
}
