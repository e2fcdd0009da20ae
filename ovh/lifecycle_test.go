package ovh

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/ovhapi/credstore"
	"github.com/vitalvas/ovhapi/ovhtest"
)

func TestState(t *testing.T) {
	assert.Equal(t, "ANONYMOUS", StateAnonymous.String())
	assert.Equal(t, "AUTHENTICATED", StateAuthenticated.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults redirection to navigator location", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		nav := &recordingNavigator{location: "http://127.0.0.1:9999/callback"}
		c := newTestClient(t, srv, func(cfg *Config) { cfg.Navigator = nav })

		assert.False(t, c.IsAuthenticated())

		cr, err := c.Login(ctx, LoginOptions{})
		require.NoError(t, err)

		assert.True(t, c.IsAuthenticated())
		assert.Equal(t, StateAuthenticated, c.State())
		assert.Equal(t, cr.ConsumerKey, c.Credentials().ConsumerKey)
		assert.Equal(t, "pendingValidation", cr.State)
		assert.Equal(t, []string{cr.ValidationURL}, nav.visited())

		reqs := srv.CredentialRequests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "http://127.0.0.1:9999/callback", reqs[0].Redirection)
		assert.Equal(t, []ovhtest.Rule{
			{Method: "GET", Path: "/*"},
			{Method: "POST", Path: "/*"},
			{Method: "PUT", Path: "/*"},
			{Method: "DELETE", Path: "/*"},
		}, reqs[0].AccessRules)
	})

	t.Run("explicit redirection and rules", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		nav := &recordingNavigator{location: "http://ignored"}
		c := newTestClient(t, srv, func(cfg *Config) { cfg.Navigator = nav })

		_, err := c.Login(ctx, LoginOptions{
			Redirection: "https://example.com/done",
			AccessRules: []AccessRule{{Method: "GET", Path: "/me"}},
		})
		require.NoError(t, err)

		reqs := srv.CredentialRequests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "https://example.com/done", reqs[0].Redirection)
		assert.Equal(t, []ovhtest.Rule{{Method: "GET", Path: "/me"}}, reqs[0].AccessRules)
	})

	t.Run("persists consumer key", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		store := credstore.NewMemory()
		c := newTestClient(t, srv, func(cfg *Config) { cfg.Storage = store })

		cr, err := c.Login(ctx, LoginOptions{})
		require.NoError(t, err)

		got, err := store.Get(ctx, ConsumerKeyStorageKey)
		require.NoError(t, err)
		assert.Equal(t, cr.ConsumerKey, got)
	})

	t.Run("relogin drops old key without remote logout", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		c := newTestClient(t, srv)

		first, err := c.Login(ctx, LoginOptions{})
		require.NoError(t, err)

		second, err := c.Login(ctx, LoginOptions{})
		require.NoError(t, err)

		assert.NotEqual(t, first.ConsumerKey, second.ConsumerKey)
		assert.Equal(t, second.ConsumerKey, c.Credentials().ConsumerKey)
		assert.Equal(t, 0, srv.Calls("/auth/logout"))
		assert.True(t, srv.Active(first.ConsumerKey))
	})

	t.Run("failure leaves client anonymous", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		srv.Issue("old")
		c := newTestClient(t, srv, func(cfg *Config) { cfg.ConsumerKey = "old" })

		srv.FailNext("/auth/credential", http.StatusForbidden, "INVALID_KEY")

		cr, err := c.Login(ctx, LoginOptions{})
		assert.Nil(t, cr)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Equal(t, "INVALID_KEY", apiErr.ErrorCode)
		assert.False(t, c.IsAuthenticated())
	})

	t.Run("incomplete answer is rejected", func(t *testing.T) {
		for _, body := range []string{
			`{}`,
			`{"validationUrl":"https://eu.api.ovh.com/auth/?credentialToken=x"}`,
			`{"consumerKey":"ck"}`,
		} {
			doer := &countingDoer{fn: func(*http.Request) (*http.Response, error) {
				return textResponse(http.StatusOK, body), nil
			}}

			store := credstore.NewMemory()
			nav := &recordingNavigator{}

			c, err := NewClient(ctx, Config{
				ApplicationKey:    "A",
				ApplicationSecret: "S",
				HTTPClient:        doer,
				Storage:           store,
				Navigator:         nav,
			})
			require.NoError(t, err)

			cr, err := c.Login(ctx, LoginOptions{})
			assert.ErrorIs(t, err, ErrMalformedResponse, body)
			assert.Nil(t, cr, body)
			assert.False(t, c.IsAuthenticated(), body)
			assert.Empty(t, nav.visited(), body)

			_, err = store.Get(ctx, ConsumerKeyStorageKey)
			assert.ErrorIs(t, err, credstore.ErrNotFound, body)
		}
	})

	t.Run("wrong application key", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		c := newTestClient(t, srv, func(cfg *Config) { cfg.ApplicationKey = "other" })

		_, err := c.Login(ctx, LoginOptions{})

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "INVALID_KEY", apiErr.ErrorCode)
	})

	t.Run("navigation failure is reported", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		nav := &recordingNavigator{err: errors.New("no browser")}
		c := newTestClient(t, srv, func(cfg *Config) { cfg.Navigator = nav })

		cr, err := c.Login(ctx, LoginOptions{})
		require.Error(t, err)
		require.NotNil(t, cr)
		assert.True(t, c.IsAuthenticated())
	})

	t.Run("busy", func(t *testing.T) {
		c, err := NewClient(ctx, Config{ApplicationKey: "A", ApplicationSecret: "S", HTTPClient: &countingDoer{}})
		require.NoError(t, err)

		c.lifecycle.Lock()
		defer c.lifecycle.Unlock()

		_, err = c.Login(ctx, LoginOptions{})
		assert.ErrorIs(t, err, ErrLifecycleBusy)
		assert.ErrorIs(t, c.Logout(ctx), ErrLifecycleBusy)
		assert.ErrorIs(t, c.SetConsumerKey(ctx, "x"), ErrLifecycleBusy)
		assert.False(t, c.IsAuthenticated())
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous fails without network", func(t *testing.T) {
		doer := &countingDoer{}
		c, err := NewClient(ctx, Config{ApplicationKey: "A", ApplicationSecret: "S", HTTPClient: doer})
		require.NoError(t, err)

		err = c.Logout(ctx)
		assert.ErrorIs(t, err, ErrNotCredential)
		assert.Equal(t, 0, doer.count())
	})

	t.Run("success revokes and forgets", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		store := credstore.NewMemory()
		c := newTestClient(t, srv, func(cfg *Config) { cfg.Storage = store })

		cr, err := c.Login(ctx, LoginOptions{})
		require.NoError(t, err)

		require.NoError(t, c.Logout(ctx))

		assert.False(t, c.IsAuthenticated())
		assert.Equal(t, StateAnonymous, c.State())
		assert.False(t, srv.Active(cr.ConsumerKey))
		assert.Equal(t, 1, srv.Calls("/auth/logout"))

		_, err = store.Get(ctx, ConsumerKeyStorageKey)
		assert.ErrorIs(t, err, credstore.ErrNotFound)
	})

	t.Run("remote failure still forgets", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		store := credstore.NewMemory()
		c := newTestClient(t, srv, func(cfg *Config) { cfg.Storage = store })

		_, err := c.Login(ctx, LoginOptions{})
		require.NoError(t, err)

		srv.FailNext("/auth/logout", http.StatusInternalServerError, "INTERNAL_ERROR")

		err = c.Logout(ctx)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
		assert.False(t, c.IsAuthenticated())

		_, err = store.Get(ctx, ConsumerKeyStorageKey)
		assert.ErrorIs(t, err, credstore.ErrNotFound)
	})

	t.Run("revoked key still forgets", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		c := newTestClient(t, srv, func(cfg *Config) { cfg.ConsumerKey = "never-issued" })

		err := c.Logout(ctx)
		assert.ErrorIs(t, err, ErrNotCredential)
		assert.False(t, c.IsAuthenticated())
	})

	t.Run("time failure keeps key", func(t *testing.T) {
		srv := ovhtest.NewServer(ovhtest.Options{})
		defer srv.Close()

		srv.Issue("issued")
		c := newTestClient(t, srv, func(cfg *Config) { cfg.ConsumerKey = "issued" })

		srv.FailNext("/auth/time", http.StatusServiceUnavailable, "UNAVAILABLE")

		err := c.Logout(ctx)
		require.Error(t, err)
		assert.True(t, c.IsAuthenticated())
		assert.Equal(t, 0, srv.Calls("/auth/logout"))
	})
}

func TestSetConsumerKey(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemory()

	c, err := NewClient(ctx, Config{ApplicationKey: "A", ApplicationSecret: "S", Storage: store})
	require.NoError(t, err)

	require.NoError(t, c.SetConsumerKey(ctx, "validated"))
	assert.True(t, c.IsAuthenticated())

	got, err := store.Get(ctx, ConsumerKeyStorageKey)
	require.NoError(t, err)
	assert.Equal(t, "validated", got)

	require.NoError(t, c.SetConsumerKey(ctx, ""))
	assert.False(t, c.IsAuthenticated())

	_, err = store.Get(ctx, ConsumerKeyStorageKey)
	assert.ErrorIs(t, err, credstore.ErrNotFound)
}
