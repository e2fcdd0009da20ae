package ovh

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/cmstar/go-logx"
	"golang.org/x/sync/singleflight"
)

const timePath = "/auth/time"

// clock caches the offset between the local clock and the API clock.
type clock struct {
	mu    sync.Mutex
	delta int64
	valid bool

	group singleflight.Group
}

func (k *clock) get() (int64, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.delta, k.valid
}

func (k *clock) set(delta int64) {
	k.mu.Lock()
	k.delta = delta
	k.valid = true
	k.mu.Unlock()
}

func (k *clock) reset() {
	k.mu.Lock()
	k.delta = 0
	k.valid = false
	k.mu.Unlock()
}

// TimeDelta returns the local clock minus the API clock, in seconds. The
// first successful call asks /auth/time; the result is cached until
// InvalidateTimeDelta. Concurrent first calls share one request. Errors
// are not cached.
func (c *Client) TimeDelta(ctx context.Context) (int64, error) {
	if delta, ok := c.clock.get(); ok {
		return delta, nil
	}

	v, err, _ := c.clock.group.Do(timePath, func() (interface{}, error) {
		if delta, ok := c.clock.get(); ok {
			return delta, nil
		}

		// Stays nil on an empty or null body.
		var remote *int64
		if err := c.send(ctx, &call{method: http.MethodGet, path: timePath}, &remote); err != nil {
			return nil, err
		}

		if remote == nil {
			return nil, fmt.Errorf("%w: %s returned no timestamp", ErrMalformedResponse, timePath)
		}

		delta := c.now().Unix() - *remote
		c.clock.set(delta)

		c.logger.Log(logx.LevelDebug, "api clock offset", "delta", delta)

		return delta, nil
	})
	if err != nil {
		return 0, err
	}

	return v.(int64), nil
}

// InvalidateTimeDelta drops the cached offset. The next signed call asks
// the API again.
func (c *Client) InvalidateTimeDelta() {
	c.clock.reset()
}
