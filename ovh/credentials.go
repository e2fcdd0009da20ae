package ovh

import (
	"context"
	"errors"
	"sync"

	"github.com/cmstar/go-errx"
	"github.com/cmstar/go-logx"

	"github.com/vitalvas/ovhapi/credstore"
	"github.com/vitalvas/ovhapi/ovhsig"
)

// Credentials holds the application key, application secret and consumer
// key of a client.
type Credentials = ovhsig.Credentials

// credentials keeps the keys of one client. The application key and secret
// never change; the consumer key follows the login state and is mirrored to
// the store.
type credentials struct {
	mu     sync.RWMutex
	keys   Credentials
	store  credstore.Store
	logger logx.Logger
}

var _ ovhsig.CredentialsProvider = (*credentials)(nil)

func (c *credentials) Credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.keys
}

func (c *credentials) consumerKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.keys.ConsumerKey
}

func (c *credentials) isAuthenticated() bool {
	return c.consumerKey() != ""
}

// rehydrate loads the persisted consumer key. A missing entry or an
// unreachable store leaves the client anonymous.
func (c *credentials) rehydrate(ctx context.Context) {
	if c.store == nil {
		return
	}

	ck, err := c.store.Get(ctx, ConsumerKeyStorageKey)
	if errors.Is(err, credstore.ErrNotFound) {
		return
	}
	if err != nil {
		c.storageFailed("load", err)
		return
	}

	c.mu.Lock()
	c.keys.ConsumerKey = ck
	c.mu.Unlock()
}

func (c *credentials) setConsumerKey(ctx context.Context, ck string) {
	c.mu.Lock()
	c.keys.ConsumerKey = ck
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	if err := c.store.Set(context.WithoutCancel(ctx), ConsumerKeyStorageKey, ck); err != nil {
		c.storageFailed("save", err)
	}
}

func (c *credentials) clearConsumerKey(ctx context.Context) {
	c.mu.Lock()
	c.keys.ConsumerKey = ""
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	if err := c.store.Remove(context.WithoutCancel(ctx), ConsumerKeyStorageKey); err != nil {
		c.storageFailed("remove", err)
	}
}

// storageFailed reports a storage error. The client keeps working on the
// in-memory value.
func (c *credentials) storageFailed(op string, err error) {
	err = errx.Wrap("ovh: "+op+" consumer key", err)
	c.logger.Log(logx.LevelWarn, "credential storage unavailable", "op", op, "err", err.Error())
}
