package ovh

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitalvas/ovhapi/ovhtest"
)

func fixedClock(sec int64) func() time.Time {
	return func() time.Time { return time.Unix(sec, 0) }
}

func newTestClient(t *testing.T, srv *ovhtest.Server, mutate ...func(*Config)) *Client {
	t.Helper()

	cfg := Config{
		Endpoint:          srv.URL,
		ApplicationKey:    ovhtest.ApplicationKey,
		ApplicationSecret: ovhtest.ApplicationSecret,
	}

	for _, m := range mutate {
		m(&cfg)
	}

	c, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)

	return c
}

// countingDoer records requests and answers with fn, or fails the test
// when fn is nil.
type countingDoer struct {
	mu    sync.Mutex
	calls int
	fn    func(*http.Request) (*http.Response, error)
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	if d.fn == nil {
		return nil, errors.New("unexpected request " + req.Method + " " + req.URL.String())
	}

	return d.fn(req)
}

func (d *countingDoer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.calls
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

type recordingNavigator struct {
	location string
	err      error

	mu   sync.Mutex
	urls []string
}

func (n *recordingNavigator) Location() string {
	return n.location
}

func (n *recordingNavigator) Navigate(_ context.Context, url string) error {
	n.mu.Lock()
	n.urls = append(n.urls, url)
	n.mu.Unlock()

	return n.err
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.urls...)
}

var errStoreDown = errors.New("store down")

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) (string, error) { return "", errStoreDown }
func (brokenStore) Set(context.Context, string, string) error   { return errStoreDown }
func (brokenStore) Remove(context.Context, string) error        { return errStoreDown }
func (brokenStore) Close() error                                { return nil }
