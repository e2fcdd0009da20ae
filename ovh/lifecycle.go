package ovh

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cmstar/go-logx"
)

// State is the authentication state of a Client.
type State int

const (
	StateAnonymous State = iota
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "ANONYMOUS"
	case StateAuthenticated:
		return "AUTHENTICATED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LoginOptions tunes Login.
type LoginOptions struct {
	// Redirection is where the API sends the user after validation.
	// Defaults to Navigator.Location().
	Redirection string

	// AccessRules overrides Config.AccessRules for this login.
	AccessRules []AccessRule
}

// CredentialRequest is the answer of /auth/credential.
type CredentialRequest struct {
	ConsumerKey   string `json:"consumerKey"`
	ValidationURL string `json:"validationUrl"`
	State         string `json:"state"`
}

type credentialBody struct {
	AccessRules []AccessRule `json:"accessRules"`
	Redirection string       `json:"redirection"`
}

// IsAuthenticated reports whether a consumer key is held. It never calls
// the API: the key may still be pending validation or revoked remotely.
func (c *Client) IsAuthenticated() bool {
	return c.creds.isAuthenticated()
}

// State returns the current authentication state.
func (c *Client) State() State {
	if c.creds.isAuthenticated() {
		return StateAuthenticated
	}

	return StateAnonymous
}

// Login requests a new consumer key and sends the user to its validation
// page. A consumer key already held is dropped locally first; it is not
// revoked on the API.
//
// On success the new key is stored and persisted, the state becomes
// AUTHENTICATED and Navigator.Navigate is called with the validation URL.
// A Navigate failure is returned along with the credential request. An
// answer without consumer key or validation URL fails with
// ErrMalformedResponse and leaves the client anonymous.
func (c *Client) Login(ctx context.Context, opts LoginOptions) (*CredentialRequest, error) {
	if !c.lifecycle.TryLock() {
		return nil, ErrLifecycleBusy
	}
	defer c.lifecycle.Unlock()

	if c.creds.isAuthenticated() {
		c.creds.clearConsumerKey(ctx)
		c.logger.Log(logx.LevelInfo, "dropped consumer key before login")
	}

	redirection := opts.Redirection
	if redirection == "" {
		redirection = c.navigator.Location()
	}

	rules := opts.AccessRules
	if len(rules) == 0 {
		rules = c.rules
	}

	var cr CredentialRequest

	err := c.send(ctx, &call{
		method:      http.MethodPost,
		path:        "/auth/credential",
		body:        credentialBody{AccessRules: rules, Redirection: redirection},
		application: true,
	}, &cr)
	if err != nil {
		return nil, err
	}

	if cr.ConsumerKey == "" || cr.ValidationURL == "" {
		return nil, fmt.Errorf("%w: credential request without consumerKey or validationUrl", ErrMalformedResponse)
	}

	c.creds.setConsumerKey(ctx, cr.ConsumerKey)
	c.logger.Log(logx.LevelInfo, "consumer key issued", "state", cr.State)

	if err := c.navigator.Navigate(ctx, cr.ValidationURL); err != nil {
		return &cr, fmt.Errorf("ovh: open validation page: %w", err)
	}

	return &cr, nil
}

// Logout revokes the consumer key on the API and forgets it. The key is
// forgotten even when the API call fails; that error is still returned.
// Logout while anonymous fails with ErrNotCredential without network
// traffic.
func (c *Client) Logout(ctx context.Context) error {
	if !c.lifecycle.TryLock() {
		return ErrLifecycleBusy
	}
	defer c.lifecycle.Unlock()

	if !c.creds.isAuthenticated() {
		return notCredential()
	}

	// No logout request is made without an offset, so the key is kept.
	if _, err := c.TimeDelta(ctx); err != nil {
		return err
	}

	err := c.send(ctx, &call{
		method: http.MethodPost,
		path:   "/auth/logout",
		signed: true,
	}, nil)

	c.creds.clearConsumerKey(ctx)

	if err != nil {
		c.logger.Log(logx.LevelWarn, "remote logout failed", "err", err.Error())
		return err
	}

	c.logger.Log(logx.LevelInfo, "logged out")
	return nil
}

// SetConsumerKey replaces the consumer key, for example with one validated
// out of band. An empty key logs out locally. The key is persisted.
func (c *Client) SetConsumerKey(ctx context.Context, consumerKey string) error {
	if !c.lifecycle.TryLock() {
		return ErrLifecycleBusy
	}
	defer c.lifecycle.Unlock()

	if consumerKey == "" {
		c.creds.clearConsumerKey(ctx)
		return nil
	}

	c.creds.setConsumerKey(ctx, consumerKey)
	return nil
}
