package ovh

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cmstar/go-logx"

	"github.com/vitalvas/ovhapi/credstore"
)

// DefaultEndpoint is used when Config.Endpoint is empty.
const DefaultEndpoint = "https://api.ovh.com/1.0"

// ConsumerKeyStorageKey is the storage key of the persisted consumer key.
const ConsumerKeyStorageKey = "ovh-ck"

// DefaultTimeout bounds each HTTP round trip of the default client.
const DefaultTimeout = 30 * time.Second

// Endpoints maps the well known endpoint names to their base URL.
var Endpoints = map[string]string{
	"ovh-eu":        "https://eu.api.ovh.com/1.0",
	"ovh-ca":        "https://ca.api.ovh.com/1.0",
	"ovh-us":        "https://api.us.ovhcloud.com/1.0",
	"kimsufi-eu":    "https://eu.api.kimsufi.com/1.0",
	"kimsufi-ca":    "https://ca.api.kimsufi.com/1.0",
	"soyoustart-eu": "https://eu.api.soyoustart.com/1.0",
	"soyoustart-ca": "https://ca.api.soyoustart.com/1.0",
}

// ResolveEndpoint turns an endpoint name or URL into a base URL without
// trailing slash.
func ResolveEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return DefaultEndpoint, nil
	}

	if u, ok := Endpoints[endpoint]; ok {
		return u, nil
	}

	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return strings.TrimRight(endpoint, "/"), nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownEndpoint, endpoint)
}

// AccessRule grants the consumer key access to method on path. Path may
// end with a * wildcard.
type AccessRule struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
}

// DefaultAccessRules requests every method on every path.
var DefaultAccessRules = []AccessRule{
	{Method: http.MethodGet, Path: "/*"},
	{Method: http.MethodPost, Path: "/*"},
	{Method: http.MethodPut, Path: "/*"},
	{Method: http.MethodDelete, Path: "/*"},
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Navigator sends the user agent to the credential validation page.
type Navigator interface {
	// Location is the address the API redirects to once the credential
	// is validated.
	Location() string

	// Navigate opens url for the user.
	Navigate(ctx context.Context, url string) error
}

// Config configures a Client.
type Config struct {
	// Endpoint is an endpoint name (see Endpoints) or a base URL.
	// Defaults to DefaultEndpoint.
	Endpoint string

	ApplicationKey    string
	ApplicationSecret string

	// ConsumerKey, when set, replaces any persisted consumer key.
	ConsumerKey string

	// AccessRules requested on Login. Defaults to DefaultAccessRules.
	AccessRules []AccessRule

	// Storage persists the consumer key. Nil keeps it in memory only.
	Storage credstore.Store

	// HTTPClient sends requests. Defaults to an *http.Client with Timeout.
	HTTPClient Doer

	// Timeout of the default HTTP client. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Navigator receives the validation URL on Login.
	Navigator Navigator

	Logger logx.Logger

	// Now returns the local time. Defaults to time.Now.
	Now func() time.Time
}

type nopNavigator struct{}

func (nopNavigator) Location() string                      { return "" }
func (nopNavigator) Navigate(context.Context, string) error { return nil }
