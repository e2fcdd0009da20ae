package ovh

import (
	"context"
	"net/http"
	"testing"

	"github.com/cmstar/go-logx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/ovhapi/credstore"
	"github.com/vitalvas/ovhapi/ovhtest"
)

func TestNewClient(t *testing.T) {
	ctx := context.Background()

	t.Run("requires application key", func(t *testing.T) {
		_, err := NewClient(ctx, Config{ApplicationSecret: "S"})
		assert.ErrorIs(t, err, ErrMissingApplicationKey)
	})

	t.Run("requires application secret", func(t *testing.T) {
		_, err := NewClient(ctx, Config{ApplicationKey: "A"})
		assert.ErrorIs(t, err, ErrMissingApplicationSecret)
	})

	t.Run("defaults", func(t *testing.T) {
		c, err := NewClient(ctx, Config{ApplicationKey: "A", ApplicationSecret: "S"})
		require.NoError(t, err)

		assert.Equal(t, DefaultEndpoint, c.Endpoint())
		assert.Equal(t, DefaultAccessRules, c.rules)
		assert.False(t, c.IsAuthenticated())
		assert.Equal(t, StateAnonymous, c.State())

		hc, ok := c.http.(*http.Client)
		require.True(t, ok)
		assert.Equal(t, DefaultTimeout, hc.Timeout)
	})

	t.Run("named endpoint", func(t *testing.T) {
		c, err := NewClient(ctx, Config{Endpoint: "ovh-ca", ApplicationKey: "A", ApplicationSecret: "S"})
		require.NoError(t, err)
		assert.Equal(t, "https://ca.api.ovh.com/1.0", c.Endpoint())
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		_, err := NewClient(ctx, Config{Endpoint: "ovh-mars", ApplicationKey: "A", ApplicationSecret: "S"})
		assert.ErrorIs(t, err, ErrUnknownEndpoint)
	})

	t.Run("rehydrates persisted consumer key", func(t *testing.T) {
		store := credstore.NewMemory()
		require.NoError(t, store.Set(ctx, ConsumerKeyStorageKey, "persisted"))

		c, err := NewClient(ctx, Config{ApplicationKey: "A", ApplicationSecret: "S", Storage: store})
		require.NoError(t, err)

		assert.True(t, c.IsAuthenticated())
		assert.Equal(t, StateAuthenticated, c.State())
		assert.Equal(t, "persisted", c.Credentials().ConsumerKey)
	})

	t.Run("explicit consumer key wins and is persisted", func(t *testing.T) {
		store := credstore.NewMemory()
		require.NoError(t, store.Set(ctx, ConsumerKeyStorageKey, "persisted"))

		c, err := NewClient(ctx, Config{ApplicationKey: "A", ApplicationSecret: "S", ConsumerKey: "explicit", Storage: store})
		require.NoError(t, err)
		assert.Equal(t, "explicit", c.Credentials().ConsumerKey)

		got, err := store.Get(ctx, ConsumerKeyStorageKey)
		require.NoError(t, err)
		assert.Equal(t, "explicit", got)
	})

	t.Run("broken storage degrades to memory", func(t *testing.T) {
		logs := ovhtest.NewLogRecorder()

		c, err := NewClient(ctx, Config{
			ApplicationKey:    "A",
			ApplicationSecret: "S",
			Storage:           brokenStore{},
			Logger:            logs,
		})
		require.NoError(t, err)
		assert.False(t, c.IsAuthenticated())

		require.NoError(t, c.SetConsumerKey(ctx, "in-memory"))
		assert.True(t, c.IsAuthenticated())
		assert.Equal(t, 2, logs.Count(logx.LevelWarn))
		assert.Contains(t, logs.String(), "op=load")
		assert.Contains(t, logs.String(), "op=save")
	})
}

func TestPersistedLoginSurvivesRestart(t *testing.T) {
	srv := ovhtest.NewServer(ovhtest.Options{})
	defer srv.Close()

	ctx := context.Background()
	store := credstore.NewMemory()

	first := newTestClient(t, srv, func(cfg *Config) { cfg.Storage = store })
	cr, err := first.Login(ctx, LoginOptions{Redirection: "https://example.com/back"})
	require.NoError(t, err)

	second := newTestClient(t, srv, func(cfg *Config) { cfg.Storage = store })
	assert.True(t, second.IsAuthenticated())
	assert.Equal(t, cr.ConsumerKey, second.Credentials().ConsumerKey)

	var me map[string]string
	require.NoError(t, second.Get(ctx, "/me", &me))
	assert.Equal(t, ovhtest.Nichandle, me["nichandle"])
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     string
		wantErr  bool
	}{
		{"empty", "", DefaultEndpoint, false},
		{"named", "ovh-eu", "https://eu.api.ovh.com/1.0", false},
		{"kimsufi", "kimsufi-eu", "https://eu.api.kimsufi.com/1.0", false},
		{"url", "https://api.example.com/1.0/", "https://api.example.com/1.0", false},
		{"plain http", "http://127.0.0.1:8080", "http://127.0.0.1:8080", false},
		{"unknown", "nowhere", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveEndpoint(tt.endpoint)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignedHTTPClient(t *testing.T) {
	srv := ovhtest.NewServer(ovhtest.Options{})
	defer srv.Close()

	srv.Issue("issued")
	c := newTestClient(t, srv, func(cfg *Config) { cfg.ConsumerKey = "issued" })

	hc := c.SignedHTTPClient(nil)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/me", nil)
	require.NoError(t, err)

	resp, err := hc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, srv.Calls("/auth/time"))
}

func TestSignedHTTPClientWhileAnonymous(t *testing.T) {
	srv := ovhtest.NewServer(ovhtest.Options{})
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.SignedHTTPClient(nil).Get(srv.URL + "/me")
	assert.ErrorIs(t, err, ErrNotCredential)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, ErrorCodeNotCredential, apiErr.ErrorCode)
	assert.Equal(t, 0, srv.TotalCalls())
}
