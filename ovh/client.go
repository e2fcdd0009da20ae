// Package ovh is a client for the OVH API.
//
// A Client holds the application key and secret of one application and
// the consumer key of the current user. The consumer key is obtained with
// Login, which asks the API for a temporary credential and sends the user
// to its validation page through a Navigator. The key is persisted in a
// credstore.Store so that a later process starts authenticated.
//
// Authenticated calls are signed with the ovhsig scheme. The timestamp of
// each signature is corrected by the offset between the local clock and
// the API clock, fetched once from /auth/time and cached.
//
//	client, err := ovh.NewClient(ctx, ovh.Config{
//	    Endpoint:          "ovh-eu",
//	    ApplicationKey:    ak,
//	    ApplicationSecret: as,
//	    Storage:           store,
//	})
//	if !client.IsAuthenticated() {
//	    cr, err := client.Login(ctx, ovh.LoginOptions{Redirection: "https://example.com/done"})
//	    ...
//	}
//	var me map[string]any
//	err = client.Get(ctx, "/me", &me)
package ovh

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cmstar/go-logx"

	"github.com/vitalvas/ovhapi/ovhsig"
)

// Client calls the OVH API on behalf of one application. It is safe for
// concurrent use.
type Client struct {
	endpoint  string
	rules     []AccessRule
	http      Doer
	navigator Navigator
	logger    logx.Logger
	now       func() time.Time

	creds *credentials
	clock clock

	// lifecycle serializes Login, Logout and SetConsumerKey.
	lifecycle sync.Mutex

	schemaMu sync.Mutex
	schemas  map[string]*Schema
}

// NewClient builds a client and restores the persisted consumer key, if
// any. An explicit Config.ConsumerKey replaces the persisted one and is
// persisted in turn.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ApplicationKey == "" {
		return nil, ErrMissingApplicationKey
	}

	if cfg.ApplicationSecret == "" {
		return nil, ErrMissingApplicationSecret
	}

	endpoint, err := ResolveEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint:  endpoint,
		rules:     cfg.AccessRules,
		http:      cfg.HTTPClient,
		navigator: cfg.Navigator,
		logger:    cfg.Logger,
		now:       cfg.Now,
		schemas:   make(map[string]*Schema),
	}

	if len(c.rules) == 0 {
		c.rules = DefaultAccessRules
	}

	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}

	if c.navigator == nil {
		c.navigator = nopNavigator{}
	}

	if c.logger == nil {
		c.logger = nopLogger{}
	}

	if c.now == nil {
		c.now = time.Now
	}

	c.creds = &credentials{
		keys: Credentials{
			ApplicationKey:    cfg.ApplicationKey,
			ApplicationSecret: cfg.ApplicationSecret,
		},
		store:  cfg.Storage,
		logger: c.logger,
	}

	if cfg.ConsumerKey != "" {
		c.creds.setConsumerKey(ctx, cfg.ConsumerKey)
	} else {
		c.creds.rehydrate(ctx)
	}

	c.logger.Log(logx.LevelDebug, "client ready", "endpoint", c.endpoint, "state", c.State().String())

	return c, nil
}

// Endpoint returns the base URL of the API.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Credentials returns a snapshot of the client keys.
func (c *Client) Credentials() Credentials {
	return c.creds.Credentials()
}

// SignedHTTPClient returns an *http.Client whose requests are signed with
// the client credentials and clock offset. It is meant for calls that
// Do does not cover, such as streaming bodies. Requests must carry the
// absolute URL under Endpoint. While anonymous, requests fail with
// ErrNotCredential before reaching the network, as with Do.
func (c *Client) SignedHTTPClient(base *http.Transport) *http.Client {
	return &http.Client{
		Transport: ovhsig.NewTransport(base, ovhsig.TransportConfig{
			SignConfig: ovhsig.SignConfig{
				Credentials: c.creds,
				Offset:      c.TimeDelta,
				Now:         c.now,
			},
			OnSignError: func(_ *http.Request, err error) error {
				if errors.Is(err, ovhsig.ErrNoConsumerKey) {
					return notCredential()
				}
				return err
			},
		}),
	}
}
